package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/ai"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/config/file"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/directory/jsonfile"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/storage/filestore"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/watcher"
	"github.com/custodia-labs/replyguard/internal/adapters/driving/cli"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/services"
	"github.com/custodia-labs/replyguard/internal/detectors"
	"github.com/custodia-labs/replyguard/internal/extractors"
	"github.com/custodia-labs/replyguard/internal/logger"
	"github.com/custodia-labs/replyguard/internal/postprocessors"
)

// promptsDir is the sub-directory of the config dir holding prompt overrides.
const promptsDir = "prompts"

// buildServices wires adapters into the core services for one command.
func buildServices(_ context.Context, opts cli.BootstrapOptions) (*cli.Services, func(), error) {
	dir := opts.ConfigDir
	if dir == "" {
		d, err := file.DefaultConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve config dir: %w", err)
		}
		dir = d
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(store, dir)
	if opts.SettingsOnly {
		return &cli.Services{Settings: settingsService}, func() {}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	settings.ResolvePaths(dir)

	aiServices, err := ai.Init(settings, opts.CheckLLM)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range aiServices.Warnings {
		logger.Debug("ai: %s", w)
	}

	masking := services.NewMaskingService(detectors.DefaultChains())

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(settings.Index.Processors, map[string]map[string]any{
		"chunker": {"chunk_size": settings.Index.ChunkSize, "overlap": settings.Index.Overlap},
		"owner":   {"markers": settings.Index.OwnerMarkers},
	})
	if err != nil {
		aiServices.Close()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}

	indexStore := filestore.New(settings.Index.Dir, flat.Factory{}, filestore.WithKeep(settings.Index.KeepGenerations))

	ledger, closeLedger := openLedger(settings.Ledger)

	indexService := services.NewIndexService(
		extractors.NewDefaultRegistry(),
		masking,
		pipeline,
		aiServices.EmbeddingService,
		flat.Factory{},
		indexStore,
		settings.Index,
		services.WithLedger(ledger),
	)
	retrievalService := services.NewRetrievalService(indexStore, aiServices.EmbeddingService, settings.Retrieval)

	prompts, err := file.NewPromptStore(filepath.Join(dir, promptsDir))
	if err != nil {
		closeLedger()
		aiServices.Close()
		return nil, nil, fmt.Errorf("open prompts: %w", err)
	}
	replyService := services.NewReplyService(
		masking,
		retrievalService,
		jsonfile.New(settings.Directory.CustomersPath, settings.Directory.StoresPath),
		aiServices.LLMService,
		prompts,
		settings.LLM,
	)

	release := func() {
		closeLedger()
		aiServices.Close()
	}

	return &cli.Services{
		Settings:  settingsService,
		Masking:   masking,
		Index:     indexService,
		Retrieval: retrievalService,
		Reply:     replyService,
		Watcher:   watcher.New(settings.Index.Dir, filestore.CurrentFile),
		Offline:   aiServices.FellBack || settings.LLM.Provider == domain.AIProviderOffline,
	}, release, nil
}

// openLedger opens the SQLite ledger, falling back to an in-memory one
// when it is disabled or cannot be opened.
func openLedger(settings domain.LedgerSettings) (driven.BuildLedger, func()) {
	if !settings.Enabled {
		return memory.NewBuildLedger(), func() {}
	}
	store, err := sqlite.NewStore(settings.Path)
	if err != nil {
		logger.Warn("open build ledger %s: %v; history is kept in memory", settings.Path, err)
		return memory.NewBuildLedger(), func() {}
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("close build ledger: %v", err)
		}
	}
}
