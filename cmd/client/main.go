package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/objectiveSquid/chatwire/internal/config"
	"github.com/objectiveSquid/chatwire/internal/logging"
	"github.com/objectiveSquid/chatwire/internal/protocol"
	"github.com/objectiveSquid/chatwire/internal/session"
	"github.com/objectiveSquid/chatwire/internal/transport"
	"github.com/spf13/cobra"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "client",
		Short:         "Run the chatwire client",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

// run wires the connection and the input/output event queues (spec
// §4.4) but does not itself implement a GUI protocol for producing
// events — that presentation layer is explicitly out of scope (see
// SPEC_FULL.md §13). The input and output channels are created here
// and nothing outside run feeds them, so this binary runs until it
// receives SIGINT or SIGTERM. A dropped server connection does not end
// it: the event loop only returns when its context is cancelled or its
// input channel is closed, and neither happens on a disconnect.
func run(ctx context.Context) error {
	log, err := logging.NewClient()
	if err != nil {
		return fmt.Errorf("client: build logger: %w", err)
	}
	defer log.Sync()

	shared, err := config.LoadShared("shared_config.yml")
	if err != nil {
		return err
	}
	clientCfg, err := config.LoadClient("client_config.yml")
	if err != nil {
		return err
	}

	widths := protocol.Widths{
		IDBytes:     shared.Packets.PacketIDBytes,
		TypeBytes:   shared.Packets.PacketTypeBytes,
		LengthBytes: shared.Packets.PacketDataLengthBytes,
	}

	dialAddr := fmt.Sprintf("%s:%d", clientCfg.Connection.ConnectAddress, clientCfg.Connection.ConnectPort)
	dialTimeout := time.Duration(clientCfg.Connection.AuthenticationTimeout) * time.Second
	raw, err := net.DialTimeout("tcp", dialAddr, dialTimeout)
	if err != nil {
		return fmt.Errorf("client: dial %s: %w", dialAddr, err)
	}

	conn := transport.New(raw, widths, log)
	authCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	client, err := session.Connect(authCtx, conn, clientCfg.User.Token, log)
	cancel()
	if err != nil {
		raw.Close()
		return fmt.Errorf("client: authenticate: %w", err)
	}
	log.Infow("authenticated", "username", client.Username())

	inputEvents := make(chan session.InputEvent)
	outputEvents := make(chan session.OutputEvent)
	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopErr := make(chan error, 1)
	go func() { loopErr <- client.RunEventLoop(loopCtx, inputEvents, outputEvents) }()

	go func() {
		for range outputEvents {
			// A real deployment forwards these to the GUI process.
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		client.Stop(true)
	case err := <-loopErr:
		if err != nil {
			log.Warnw("event loop stopped", "error", err)
		}
	}
	cancelLoop()
	return nil
}
