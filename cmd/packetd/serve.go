package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/packetsock"
	"github.com/Zereker/packetsock/internal/config"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the packet server",
		Long: `Run the packet server.

Settings come from the TOML file given with --config, then from a .env
file in the working directory, then from PACKETD_* environment variables.

Examples:
  packetd serve
  packetd serve --config=/etc/packetd.toml
  PACKETD_TCP_ADDR=:7000 packetd serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger, err := setupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a TOML config file")

	return cmd
}

// setupLogger installs a text slog handler at level as the default logger.
func setupLogger(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, nil
}

func connOptions(cfg config.Config, d packetsock.Dispatcher, logger packetsock.Logger) []packetsock.Option {
	return []packetsock.Option{
		packetsock.DispatcherOption(d),
		packetsock.LoggerOption(logger),
		packetsock.BufferSizeOption(cfg.Conn.SendQueue),
		packetsock.MessageMaxSize(cfg.Conn.MaxFrameSize),
		packetsock.WriteTimeoutOption(cfg.Conn.WriteTimeout),
		packetsock.HeartbeatOption(cfg.Conn.Heartbeat),
	}
}

// newMux serves the WebSocket endpoint, metrics and a health check.
func newMux(cfg config.Config, hub *packetsock.Hub, logger packetsock.Logger) *http.ServeMux {
	ws := packetsock.NewWebSocketHandler(hub, logger)
	ws.ReadLimit = int64(cfg.Conn.MaxFrameSize) + 4
	ws.PongWait = 2 * cfg.Conn.Heartbeat

	mux := http.NewServeMux()
	mux.Handle(cfg.WebSocket.Path, ws)
	if cfg.Metrics.Path != "" {
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	}
	mux.HandleFunc("/health", healthHandler(hub.Registry()))
	return mux
}

func healthHandler(registry *packetsock.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"connections": registry.Len(),
		})
	}
}

// runServe serves until ctx is canceled or a listener fails.
func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	packetsock.RegisterMetrics()

	var tcpServer *packetsock.Server
	if cfg.TCP.Addr != "" {
		addr, err := net.ResolveTCPAddr("tcp", cfg.TCP.Addr)
		if err != nil {
			return err
		}
		tcpServer, err = packetsock.New(addr,
			packetsock.ServerLoggerOption(logger),
			packetsock.ServerReadBufferOption(cfg.TCP.ReadBufferSize),
			packetsock.ServerShutdownTimeoutOption(shutdownTimeout),
		)
		if err != nil {
			return err
		}
	}

	var wsListener net.Listener
	if cfg.WebSocket.Addr != "" {
		ln, err := net.Listen("tcp", cfg.WebSocket.Addr)
		if err != nil {
			if tcpServer != nil {
				_ = tcpServer.Close()
			}
			return err
		}
		wsListener = ln
	}

	hub := packetsock.NewHub(nil, connOptions(cfg, newRouter(logger), logger)...)
	group, gctx := errgroup.WithContext(ctx)

	if wsListener != nil {
		server := &http.Server{
			Handler:           newMux(cfg, hub, logger),
			ReadHeaderTimeout: 10 * time.Second,
			// Hijacked WebSocket connections are not tracked by Shutdown;
			// they stop when gctx is canceled.
			BaseContext: func(net.Listener) context.Context { return gctx },
		}

		group.Go(func() error {
			logger.Info("websocket server started", "addr", wsListener.Addr(), "path", cfg.WebSocket.Path)
			if err := server.Serve(wsListener); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		group.Go(func() error {
			<-gctx.Done()
			logger.Info("websocket server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	if tcpServer != nil {
		group.Go(func() error {
			defer tcpServer.Close()
			if err := tcpServer.Serve(gctx, hub); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := group.Wait()
	logger.Info("packetd stopped", "connections", hub.Registry().Len())
	return err
}
