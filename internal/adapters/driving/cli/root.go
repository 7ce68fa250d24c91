// Package cli implements the propdocs command line with cobra.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// Services wired by the composition root. Commands check for nil and
// report the missing service instead of panicking.
var (
	searchService   driving.SearchService
	documentService driving.DocumentService
	analysisService driving.AnalysisService
	chatService     driving.ChatService
	entityService   driving.EntityService
	settingsService driving.SettingsService
	blobStore       driven.BlobStore
	scheduler       driving.Scheduler
	schedulerConfig domain.SchedulerConfig
)

// Services groups everything the commands drive.
type Services struct {
	Search          driving.SearchService
	Documents       driving.DocumentService
	Analysis        driving.AnalysisService
	Chat            driving.ChatService
	Entities        driving.EntityService
	Settings        driving.SettingsService
	Blobs           driven.BlobStore
	Scheduler       driving.Scheduler
	SchedulerConfig domain.SchedulerConfig
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "propdocs",
	Short: "Property document intelligence",
	Long: `propdocs ingests property documents (inspection reports, disclosures,
HOA packets, appraisals), runs type-specific analysis and answers questions
about a property with answers grounded in, and cited from, its documents.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the services the commands run against.
func SetServices(s Services) {
	searchService = s.Search
	documentService = s.Documents
	analysisService = s.Analysis
	chatService = s.Chat
	entityService = s.Entities
	settingsService = s.Settings
	blobStore = s.Blobs
	scheduler = s.Scheduler
	schedulerConfig = s.SchedulerConfig
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// startScheduler runs the background scheduler for long-lived commands
// when it is enabled. The returned func stops it.
func startScheduler(ctx context.Context) func() {
	if scheduler == nil || !schedulerConfig.Enabled {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("scheduler stopped: %v", err)
		}
	}()

	return func() {
		cancel()
		if err := scheduler.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "scheduler stop error: %v\n", err)
		}
	}
}
