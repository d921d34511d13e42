// Command docagent indexes local documents and answers questions about them.
package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/docagent/internal/adapters/driven/ai"
	"github.com/custodia-labs/docagent/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docagent/internal/adapters/driven/flatindex"
	"github.com/custodia-labs/docagent/internal/adapters/driven/storage/indexfile"
	"github.com/custodia-labs/docagent/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docagent/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docagent/internal/adapters/driving/cli"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/core/services"
	"github.com/custodia-labs/docagent/internal/extractors/docx"
	"github.com/custodia-labs/docagent/internal/extractors/html"
	"github.com/custodia-labs/docagent/internal/extractors/markdown"
	"github.com/custodia-labs/docagent/internal/extractors/pdf"
	"github.com/custodia-labs/docagent/internal/extractors/plaintext"
	"github.com/custodia-labs/docagent/internal/logger"
	"github.com/custodia-labs/docagent/internal/postprocessors"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cli.SetBootstrap(bootstrap)
	cli.Execute()
}

// bootstrap wires the adapters behind the driving ports. When the AI
// providers cannot be built the settings commands still work and the
// reason is reported by the commands that need an index.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, configDir)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if opts.IndexPath != "" {
		settings.Index.Path = opts.IndexPath
	}

	out := &cli.Services{
		Settings:  settingsService,
		Validator: ai.NewConfigValidator(),
	}

	aiServices, err := ai.Build(*settings)
	if err != nil {
		logger.Debug("bootstrap: %v", err)
		out.Unavailable = err
		return out, nil
	}

	factory := flatindex.NewFactory(settings.Index.Compression)
	var (
		repo    driven.IndexRepository
		journal driven.MutationJournal
	)
	if opts.Ephemeral {
		repo = memory.NewIndexRepository()
		journal = memory.NewJournal()
	} else {
		store, err := sqlite.NewStore(configDir)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("opening journal: %w", err), aiServices.Close())
		}
		repo = indexfile.NewRepository(factory)
		journal = store
	}

	index := services.NewIndexService(
		settings.Index.Path,
		repo,
		factory,
		aiServices.Embedding,
		services.WithJournal(journal),
		services.WithRebuildStrategy(settings.Index.Rebuild),
		services.WithDefaultDimension(settings.Index.DefaultDimension),
	)

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.DefaultPipeline(registry, settings.Ingest)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("building ingest pipeline: %w", err), journal.Close(), aiServices.Close())
	}

	if err := pdf.CheckAvailable(); err != nil {
		logger.Debug("bootstrap: pdf extraction unavailable: %v\n%s", err, pdf.InstallInstructions())
	}
	ingest := services.NewIngestService(index, pipeline,
		plaintext.New(),
		markdown.New(),
		html.New(),
		docx.New(),
		pdf.New(),
	)

	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		return nil, errors.Join(fmt.Errorf("opening prompts: %w", err), journal.Close(), aiServices.Close())
	}

	out.Index = index
	out.Ingest = ingest
	out.Answer = services.NewAnswerService(index, aiServices.LLM, prompts, settings.Answer.TopK)
	out.Close = func() error {
		return errors.Join(journal.Close(), aiServices.Close())
	}

	logger.Debug("bootstrap: index %s, embedding %s/%s, ephemeral %t",
		settings.Index.Path, settings.Embedding.Provider, aiServices.Embedding.ModelName(), opts.Ephemeral)
	return out, nil
}
