package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/alantheprice/reqgen/pkg/configuration"
	"github.com/alantheprice/reqgen/pkg/doctypes"
	"github.com/alantheprice/reqgen/pkg/documents"
	"github.com/alantheprice/reqgen/pkg/events"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/interfaces/types"
	"github.com/alantheprice/reqgen/pkg/llm"
	"github.com/alantheprice/reqgen/pkg/monitor"
	"github.com/alantheprice/reqgen/pkg/orchestration"
	"github.com/alantheprice/reqgen/pkg/providers"
	providersllm "github.com/alantheprice/reqgen/pkg/providers/llm"
	"github.com/alantheprice/reqgen/pkg/store"
	"github.com/alantheprice/reqgen/pkg/templates"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/alantheprice/reqgen/pkg/validation"
)

// app holds the wired services shared by the commands
type app struct {
	cfg          *configuration.Config
	logger       *utils.Logger
	catalog      *doctypes.Catalog
	factory      *providersllm.Factory
	service      *llm.Service
	templates    *templates.Engine
	validator    *validation.Validator
	generator    *documents.Generator
	projects     interfaces.ProjectStore
	bus          *events.EventBus
	orchestrator *orchestration.Orchestrator

	closers []func() error
}

// loadConfig reads the --config file, or the default location when unset
func loadConfig() (*configuration.Config, error) {
	path := cfgFile
	if path == "" {
		path = configuration.DefaultConfigPath()
	}
	return configuration.Load(path)
}

// stderrIsTerminal reports whether progress can be echoed to an interactive console
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// newApp wires every service from cfg
func newApp(ctx context.Context, cfg *configuration.Config) (*app, error) {
	settings := cfg.Logging.LogSettings()
	settings.Console = stderrIsTerminal()
	logger := utils.ConfigureLogger(settings)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		catalog:   doctypes.Default(),
		validator: validation.NewValidator(),
		bus:       events.NewEventBus(),
	}

	a.factory = providers.NewDefaultFactory(cfg.LLM)
	a.service = llm.NewService(a.factory, llm.Options{
		DefaultProvider:  cfg.LLM.DefaultProvider,
		MaxRetries:       cfg.LLM.MaxRetries,
		AttemptTimeout:   cfg.LLM.Timeout(),
		BatchConcurrency: cfg.Generation.BatchConcurrency,
		Logger:           logger,
	})

	a.templates = templates.NewEngine(templates.Options{
		Dir:      cfg.Templates.Dir,
		CacheTTL: cfg.Templates.CacheTTL(),
	})
	a.generator = documents.NewGenerator(a.catalog, a.service, a.templates, a.validator, documents.Options{
		Temperature:      types.Float64(cfg.Generation.Temperature),
		MaxTokens:        cfg.Generation.MaxTokens,
		BatchConcurrency: cfg.Generation.BatchConcurrency,
		Logger:           logger,
	})

	projects, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.projects = projects
	if closer, ok := projects.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	monitors := monitor.Multi{monitor.NewLogMonitor(logger), monitor.NewEventMonitor(a.bus)}
	if cfg.Logging.RunLogDir != "" {
		runLog, err := monitor.NewRunLogMonitor(cfg.Logging.RunLogDir, cfg.LLM.APIKeys()...)
		if err != nil {
			logger.LogError(fmt.Errorf("run log disabled: %w", err))
		} else {
			monitors = append(monitors, runLog)
			a.closers = append(a.closers, runLog.Close)
		}
	}

	a.orchestrator = orchestration.NewOrchestrator(a.catalog, a.generator, a.projects, orchestration.Options{
		Monitor: monitors,
		Tracker: orchestration.NewProgressTracker(a.bus),
		Logger:  logger,
	})
	return a, nil
}

func openStore(ctx context.Context, settings configuration.StoreSettings) (interfaces.ProjectStore, error) {
	switch settings.Backend {
	case configuration.StoreRedis:
		s, err := store.ConnectRedis(ctx, settings.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open project store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemoryStore(), nil
	}
}

// Close releases the store and run log
func (a *app) Close() error {
	var errs []error
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
