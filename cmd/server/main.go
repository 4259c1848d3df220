package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/objectiveSquid/chatwire/internal/acceptor"
	"github.com/objectiveSquid/chatwire/internal/config"
	"github.com/objectiveSquid/chatwire/internal/logging"
	"github.com/objectiveSquid/chatwire/internal/middleware"
	"github.com/objectiveSquid/chatwire/internal/protocol"
	"github.com/objectiveSquid/chatwire/internal/ratelimit"
	"github.com/objectiveSquid/chatwire/internal/registry"
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
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the chatwire server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	return cmd
}

func run(ctx context.Context) error {
	log, err := logging.NewServer()
	if err != nil {
		return fmt.Errorf("server: build logger: %w", err)
	}
	defer log.Sync()

	shared, err := config.LoadShared("shared_config.yml")
	if err != nil {
		return err
	}
	serverCfg, err := config.LoadServer("server_config.yml")
	if err != nil {
		return err
	}

	st, err := sqlite.Open(serverCfg.Database)
	if err != nil {
		return fmt.Errorf("server: open store: %w", err)
	}
	defer st.Close()
	if err := st.EnsureTables(ctx); err != nil {
		return fmt.Errorf("server: ensure tables: %w", err)
	}

	widths := protocol.Widths{
		IDBytes:     shared.Packets.PacketIDBytes,
		TypeBytes:   shared.Packets.PacketTypeBytes,
		LengthBytes: shared.Packets.PacketDataLengthBytes,
	}

	a := acceptor.New(acceptor.Options{
		Store:       st,
		Widths:      widths,
		AuthTimeout: time.Duration(serverCfg.Connection.AuthenticationTimeout) * time.Second,
		Middlewares: []middleware.Middleware{
			middleware.Logging(log),
			middleware.Timeout(30 * time.Second),
		},
		NewLimiter: func() *ratelimit.Limiter { return ratelimit.New(20, 40) },
		Log:        log,
	})

	var reg *registry.EtcdRegistry
	advertiseAddr := serverCfg.Registry.AdvertiseAddr
	if len(serverCfg.Registry.Endpoints) > 0 && advertiseAddr != "" {
		reg, err = registry.NewEtcd(serverCfg.Registry.Endpoints)
		if err != nil {
			log.Warnw("registry unavailable, continuing without it", "error", err)
		} else {
			ttl := serverCfg.Registry.LeaseSeconds
			if ttl <= 0 {
				ttl = 10
			}
			if err := reg.Advertise(ctx, advertiseAddr, ttl); err != nil {
				log.Warnw("failed to advertise in registry", "error", err)
			}
		}
	}

	listenAddr := fmt.Sprintf("%s:%d", serverCfg.Connection.ListenAddress, serverCfg.Connection.ListenPort)
	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Serve("tcp", listenAddr) }()
	log.Infow("server listening", "address", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case <-sigCh:
		log.Info("shutting down")
	}

	if reg != nil && advertiseAddr != "" {
		withdrawCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = reg.Withdraw(withdrawCtx, advertiseAddr)
		cancel()
		reg.Close()
	}

	if err := a.Shutdown(10 * time.Second); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return <-serveErr
}
