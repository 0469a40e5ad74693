package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koscakluka/gisa/internal/livekit"
	"github.com/koscakluka/gisa/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control surface",
	Long: `Serve the session API. Sessions started with a roomName join that LiveKit
room as the agent participant; sessions without one are driven over the
/api/session/{id}/stream websocket.

SIGINT or SIGTERM stops accepting requests and ends every session.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		flushLogs, err := setupLogging(os.Stdout)
		if err != nil {
			return err
		}
		defer func() { _ = flushLogs(context.Background()) }()

		creds := livekit.Credentials{
			URL:       cfg.LiveKit.URL,
			APIKey:    cfg.LiveKit.APIKey,
			APISecret: cfg.LiveKit.APISecret,
		}
		srv := server.New(server.NewFactory(cfg), creds)
		httpServer := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveErr := make(chan error, 1)
		go func() {
			serveErr <- httpServer.ListenAndServe()
		}()
		logger.Info("server listening", "addr", httpServer.Addr, "env", cfg.Env,
			slog.Group("providers", "llm", cfg.LLMProvider, "tts", cfg.TTSProvider))
		fmt.Fprintf(cmd.OutOrStdout(), "GISA listening on %s\n", httpServer.Addr)

		select {
		case err := <-serveErr:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = errors.Join(
			httpServer.Shutdown(shutdownCtx),
			srv.Shutdown(shutdownCtx),
		)
		if err != nil {
			return fmt.Errorf("shutdown incomplete: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
