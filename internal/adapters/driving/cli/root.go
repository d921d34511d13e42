// Package cli implements the docagent command line interface.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
	"github.com/custodia-labs/docagent/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationStandalone marks commands that run without services.
const annotationStandalone = "standalone"

// ProviderValidator checks that configured AI providers are reachable.
type ProviderValidator interface {
	ValidateEmbedding(ctx context.Context, settings domain.EmbeddingSettings) error
	ValidateLLM(ctx context.Context, settings domain.LLMSettings) error
}

// Options carries the root flags to the bootstrap.
type Options struct {
	// ConfigDir holds config.toml, prompts and the journal.
	ConfigDir string

	// IndexPath overrides the index.path setting when non-empty.
	IndexPath string

	// Ephemeral keeps the index and journal in memory.
	Ephemeral bool
}

// Services are the ports the commands drive.
type Services struct {
	Index     driving.IndexService
	Ingest    driving.IngestService
	Answer    driving.AnswerService
	Settings  driving.SettingsService
	Validator ProviderValidator

	// Unavailable explains why Index, Ingest and Answer are nil when the
	// providers could not be built. Settings commands still work.
	Unavailable error

	// Close releases resources. It may be nil.
	Close func() error
}

// BootstrapFunc builds the services from the root options.
type BootstrapFunc func(opts Options) (*Services, error)

var (
	flagVerbose   bool
	flagConfigDir string
	flagIndexPath string
	flagEphemeral bool

	bootstrap BootstrapFunc

	indexService    driving.IndexService
	ingestService   driving.IngestService
	answerService   driving.AnswerService
	settingsService driving.SettingsService
	validator       ProviderValidator
	unavailable     error
	closeServices   func() error
)

var rootCmd = &cobra.Command{
	Use:   "docagent",
	Short: "Ask questions about your local documents",
	Long: `docagent indexes local documents page by page into an embedding index
and answers questions from the pages nearest to each question, citing the
file and page every answer drew from.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return shutdown()
	},
}

// SetBootstrap registers the function that builds services before a
// command runs.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetServices installs services directly.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	indexService = s.Index
	ingestService = s.Ingest
	answerService = s.Answer
	settingsService = s.Settings
	validator = s.Validator
	unavailable = s.Unavailable
	closeServices = s.Close
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default ~/.docagent)")
	rootCmd.PersistentFlags().StringVar(&flagIndexPath, "index", "", "index directory (overrides index.path)")
	rootCmd.PersistentFlags().BoolVar(&flagEphemeral, "ephemeral", false, "keep the index and journal in memory")
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)
	logger.SetOutput(cmd.ErrOrStderr())

	if cmd.Annotations[annotationStandalone] == "true" || bootstrap == nil || settingsService != nil {
		return nil
	}

	s, err := bootstrap(Options{
		ConfigDir: flagConfigDir,
		IndexPath: flagIndexPath,
		Ephemeral: flagEphemeral,
	})
	if err != nil {
		return err
	}
	SetServices(s)
	return nil
}

func shutdown() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// errServiceUnavailable builds the error returned when a command needs a
// service that could not be built.
func errServiceUnavailable(name string) error {
	if unavailable != nil {
		return errors.Join(errors.New(name+" service not configured"), unavailable)
	}
	return errors.New(name + " service not configured")
}

func requireIndex() error {
	if indexService == nil {
		return errServiceUnavailable("index")
	}
	return nil
}

func requireIngest() error {
	if ingestService == nil {
		return errServiceUnavailable("ingest")
	}
	return nil
}

func requireAnswer() error {
	if answerService == nil {
		return errServiceUnavailable("answer")
	}
	return nil
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}
