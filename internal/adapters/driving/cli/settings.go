package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driving"
	"github.com/custodia-labs/propdocs/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, chunking, retrieval and cache options.

Settings live in config.toml under the data directory. API keys may also be
supplied through the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
GEMINI_API_KEY), which takes precedence over the file.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the embedding and LLM providers step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to index document chunks and queries.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for document analysis and chat answers.`,
	RunE:  runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model, settings.Embedding.BaseURL,
		settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Printf("  Batch Size: %d\n", settings.Embedding.BatchSize)
	cmd.Printf("  Requests/sec: %g (burst %d)\n", settings.Embedding.RequestsPerSecond, settings.Embedding.Burst)
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model, settings.LLM.BaseURL,
		settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Size: %d\n", settings.Chunker.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunker.Overlap)
	cmd.Printf("  Min Length: %d\n", settings.Chunker.MinLength)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min Score: %.2f\n", settings.Retrieval.MinScore)
	cmd.Printf("  History Turns: %d (max %d)\n", settings.Retrieval.HistoryTurns, settings.Retrieval.MaxHistoryTurns)
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Entity TTL: %s\n", settings.Cache.EntityTTL)
	cmd.Printf("  Response TTL: %s\n", settings.Cache.ResponseTTL)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.ServerAddr)
	cmd.Printf("  Ingest Concurrency: %d\n", settings.IngestConcurrency)
	cmd.Println()

	// Validation
	if err := services.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Edit config.toml to fix configuration issues.")
	} else if !settings.Embedding.IsConfigured() || !settings.LLM.IsConfigured() {
		cmd.Println("AI providers are not fully configured.")
		cmd.Println("Run 'propdocs settings wizard' to set them up.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set, or set %s)\n", provider.APIKeyEnv())
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

// providerRole is one provider a wizard step configures.
type providerRole struct {
	name      string
	purpose   string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	set       func(s driving.SettingsService, p domain.AIProvider, model, apiKey string) error
	validate  func(s driving.SettingsService, ctx context.Context) error
}

var (
	embeddingRole = providerRole{
		name:      "embedding",
		purpose:   "Embeddings index document passages for retrieval.",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		set:       driving.SettingsService.SetEmbeddingProvider,
		validate:  driving.SettingsService.ValidateEmbeddingConfig,
	}
	llmRole = providerRole{
		name:      "LLM",
		purpose:   "The LLM writes document analyses and chat answers.",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		set:       driving.SettingsService.SetLLMProvider,
		validate:  driving.SettingsService.ValidateLLMConfig,
	}
)

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("propdocs settings wizard")
	cmd.Println()

	in := newPrompter(cmd)
	for i, role := range []providerRole{embeddingRole, llmRole} {
		cmd.Printf("Step %d: %s provider\n", i+1, role.name)
		cmd.Println(role.purpose)
		cmd.Println()
		if err := configureProvider(cmd, in, role); err != nil {
			return err
		}
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := services.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, newPrompter(cmd), embeddingRole)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return configureProvider(cmd, newPrompter(cmd), llmRole)
}

// configureProvider asks for provider, model and key, saves them and
// pings the provider.
func configureProvider(cmd *cobra.Command, in *prompter, role providerRole) error {
	cmd.Printf("Select %s provider\n", role.name)
	for i, p := range role.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := role.providers[parseChoice(in.line(), len(role.providers), 1)-1]

	model := role.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if m := in.line(); m != "" {
		model = m
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = in.secret()
		cmd.Println()
		if apiKey == "" {
			return fmt.Errorf("API key is required for %s", provider.Description())
		}
	}

	if err := role.set(settingsService, provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", role.name, err)
	}

	cmd.Print("Validating configuration... ")
	if err := role.validate(settingsService, cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", role.name, err)
	}
	cmd.Println("OK")
	cmd.Printf("%s provider configured: %s (%s)\n\n", role.name, provider.Description(), model)
	return nil
}

// prompter reads answers from the command's input. Secrets are read
// without echo when the input is a terminal.
type prompter struct {
	r  *bufio.Reader
	fd int
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	p := &prompter{r: bufio.NewReader(in), fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

func (p *prompter) line() string {
	s, _ := p.r.ReadString('\n')
	return strings.TrimSpace(s)
}

func (p *prompter) secret() string {
	if p.fd >= 0 {
		if b, err := term.ReadPassword(p.fd); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return p.line()
}

func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
