package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/wa-history/internal"
	"github.com/iksnae/wa-history/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversation API and webhook endpoint",
	Long: `Start the HTTP server.

Routes:
  GET  /api/messages/conversations                  List conversations
  GET  /api/messages/:wa_id                         Messages of one conversation
  POST /api/messages                                Record an outbound message {wa_id, text}
  PUT  /api/messages/status/:wa_id/:message_id      Set a message status {status}
  POST /webhook                                     Ingest one webhook payload
  GET  /health                                      Liveness`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore(s)

		e := server.New(server.NewHandler(newIngestor(s, false)))

		errCh := make(chan error, 1)
		go func() {
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()
		internal.LogInfo("API listening on %s", addr)

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		internal.LogInfo("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			internal.LogWarn("Failed to shutdown server gracefully: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :4000)")
}
