package cli

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/adapters/driving/server"
	"github.com/custodia-labs/propdocs/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the REST API: document upload and processing, analysis,
search, entity facts and streaming chat (server-sent events on POST /chat).

The background scheduler reprocesses stale documents and purges expired
cache entries while the server runs.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from settings)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if documentService == nil || searchService == nil || chatService == nil {
		return errors.New("services not configured")
	}

	addr := serveAddr
	if addr == "" && settingsService != nil {
		if settings, err := settingsService.Get(); err == nil {
			addr = settings.ServerAddr
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.SetTimestamps(true)
	stopScheduler := startScheduler(ctx)
	defer stopScheduler()

	srv := server.New(server.Services{
		Documents: documentService,
		Analysis:  analysisService,
		Search:    searchService,
		Chat:      chatService,
		Entities:  entityService,
		Blobs:     blobStore,
	})

	cmd.Printf("propdocs API listening on %s\n", displayAddr(addr))
	return srv.Run(ctx, addr)
}

func displayAddr(addr string) string {
	if addr == "" {
		return server.DefaultAddr
	}
	return addr
}
