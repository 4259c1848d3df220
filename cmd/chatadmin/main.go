// Command chatadmin provisions chatwire accounts out of band, since the
// wire protocol itself has no account-creation packet (see
// SPEC_FULL.md §12). It prints the newly issued token exactly once, the
// only time it is ever available in plaintext.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/objectiveSquid/chatwire/internal/config"
	"github.com/objectiveSquid/chatwire/internal/store"
	"github.com/objectiveSquid/chatwire/internal/store/sqlite"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatadmin",
		Short:         "Administer a chatwire server's account database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAddUserCmd())
	return root
}

func newAddUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adduser <username>",
		Short: "Create a new account and print its one-time token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return addUser(cmd.Context(), args[0])
		},
	}
}

func addUser(ctx context.Context, username string) error {
	serverCfg, err := config.LoadServer("server_config.yml")
	if err != nil {
		return err
	}

	st, err := sqlite.Open(serverCfg.Database)
	if err != nil {
		return fmt.Errorf("chatadmin: open store: %w", err)
	}
	defer st.Close()
	if err := st.EnsureTables(ctx); err != nil {
		return fmt.Errorf("chatadmin: ensure tables: %w", err)
	}

	token, result, err := st.AddUser(ctx, username)
	if err != nil {
		return fmt.Errorf("chatadmin: add user: %w", err)
	}
	if result != store.AddUserSuccess {
		return fmt.Errorf("chatadmin: %s", result)
	}

	fmt.Println(token)
	return nil
}
