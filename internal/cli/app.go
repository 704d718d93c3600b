package cli

import (
	"context"
	"time"

	"airecruiter/internal/ai"
	"airecruiter/internal/analyzer"
	"airecruiter/internal/config"
	"airecruiter/internal/conversation"
	"airecruiter/internal/errors"
	"airecruiter/internal/evaluator"
	"airecruiter/internal/jobdesc"
	"airecruiter/internal/knowledge"
	"airecruiter/internal/observability"
	"airecruiter/internal/recruitment"
	"airecruiter/internal/resume"
	"airecruiter/internal/server"
	"airecruiter/internal/session"
	"airecruiter/internal/storage"
	"airecruiter/internal/store"
)

// appOptions tune wiring per command
type appOptions struct {
	// JobFile replaces the configured job description file
	JobFile string
	// Watch reloads the job description file on external edits
	Watch bool
	// Observability enables the configured exporters
	Observability bool
}

// app owns every long-lived client a command needs
type app struct {
	cfg     *config.Config
	logger  *errors.Logger
	obs     *observability.ObservabilityManager
	ai      []*ai.Service
	service *recruitment.Service
	closers []func() error
}

// newApp builds the recruitment service from config. A cloud client that
// fails to initialize is replaced by a stand-in that reports unavailable
// on use, so one dead dependency does not stop the others.
func newApp(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if opts.Observability {
		om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version))
		if err != nil {
			logger.LogError(err, "Observability disabled after setup failure")
		} else {
			a.obs = om
		}
	}

	analyzeSvc, analyzePrompt, err := a.operation(ctx, config.OperationAnalyze, ai.DefaultAnalyzePrompt)
	if err != nil {
		return nil, a.fail(err)
	}
	conversationSvc, conversationPrompt, err := a.operation(ctx, config.OperationConversation, ai.DefaultConversationPrompt)
	if err != nil {
		return nil, a.fail(err)
	}
	evaluateSvc, evaluatePrompt, err := a.operation(ctx, config.OperationEvaluate, ai.DefaultEvaluatePrompt)
	if err != nil {
		return nil, a.fail(err)
	}

	records := a.newRecordStore(ctx)
	objects := a.newObjectStore(ctx)

	sessions, err := session.New(ctx, cfg.Session, logger)
	if err != nil {
		return nil, a.fail(err)
	}
	a.closers = append(a.closers, sessions.Close)

	jobFile := cfg.JobDescription.File
	if opts.JobFile != "" {
		jobFile = opts.JobFile
	}
	holder, err := jobdesc.NewHolder(jobFile, logger)
	if err != nil {
		return nil, a.fail(err)
	}
	if opts.Watch && cfg.JobDescription.Watch && holder.File() != "" {
		a.startWatcher(holder)
	}

	a.service = recruitment.New(recruitment.Deps{
		Extractor:    resume.NewExtractor(cfg.App.MaxFileSize),
		Objects:      objects,
		Analyzer:     analyzer.New(analyzeSvc, analyzePrompt, cfg.Conversation.Language, logger),
		Greeter:      analyzer.Greeting,
		Conversation: conversation.New(conversationSvc, a.newRetriever(ctx), conversationPrompt, cfg.Conversation, logger),
		Evaluator: evaluator.New(evaluateSvc, records, evaluatePrompt, evaluator.Options{
			Language:     cfg.Conversation.Language,
			NoTranscript: cfg.Conversation.NoTranscriptPlaceholder,
		}, logger),
		Records:   records,
		Sessions:  sessions,
		JobDesc:   holder,
		Observer:  a.obs,
		ListLimit: cfg.Warehouse.ListLimit,
	}, logger)

	return a, nil
}

// operation builds the model client and prompt for one call site. A client
// that cannot be created is replaced by an unavailable stand-in; a bad
// prompt template is a config error.
func (a *app) operation(ctx context.Context, name, fallbackPrompt string) (*ai.Service, *ai.Prompt, error) {
	opCfg, ok := a.cfg.GetOperationConfig(name)
	if !ok {
		return nil, nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Unknown AI operation: "+name, nil)
	}

	prompt, err := ai.OperationPrompt(name, opCfg, fallbackPrompt)
	if err != nil {
		return nil, nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid "+name+" prompt", err)
	}

	svc, err := ai.NewService(ctx, &opCfg, a.cfg.GCP, name, a.obs, a.logger)
	if err != nil {
		svc = ai.UnavailableService(name, err, a.logger)
	}
	a.ai = append(a.ai, svc)
	a.closers = append(a.closers, svc.Close)
	return svc, prompt, nil
}

func (a *app) newRecordStore(ctx context.Context) store.Store {
	var records store.Store
	var err error
	switch a.cfg.Warehouse.Backend {
	case "bigquery":
		records, err = store.NewBigQueryStore(ctx, a.cfg.Warehouse, a.cfg.GCP, a.logger)
	default:
		records = store.NewMemoryStore()
	}
	if err != nil {
		return store.NewUnavailable(err, a.logger)
	}
	a.closers = append(a.closers, records.Close)
	return records
}

func (a *app) newObjectStore(ctx context.Context) storage.ObjectStore {
	var objects storage.ObjectStore
	var err error
	switch a.cfg.Storage.Backend {
	case "gcs":
		objects, err = storage.NewGCSStore(ctx, a.cfg.Storage, a.cfg.GCP)
	default:
		objects, err = storage.NewLocalStore(a.cfg.Storage.LocalDir)
	}
	if err != nil {
		return storage.NewUnavailable(err, a.logger)
	}
	a.closers = append(a.closers, objects.Close)
	return objects
}

// newRetriever returns a retriever whose lookups are empty when search is
// disabled or the client cannot be created.
func (a *app) newRetriever(ctx context.Context) *knowledge.Retriever {
	var backend knowledge.SearchBackend
	if a.cfg.Knowledge.Enabled {
		de, err := knowledge.NewDiscoveryEngineBackend(ctx, a.cfg.Knowledge, a.cfg.GCP)
		if err != nil {
			a.logger.LogError(err, "Knowledge search unavailable, interviews continue without context")
		} else {
			backend = de
			a.closers = append(a.closers, de.Close)
		}
	}
	return knowledge.NewRetriever(backend, a.cfg.Knowledge, a.cfg.GCP.ProjectID, a.obs, a.logger)
}

func (a *app) startWatcher(holder *jobdesc.Holder) {
	watcher, err := jobdesc.NewWatcher(holder, a.cfg.JobDescription.DebounceDelay, a.logger)
	if err == nil {
		err = watcher.Start()
	}
	if err != nil {
		a.logger.LogError(err, "Job description watcher not started", "file", holder.File())
		return
	}
	a.closers = append(a.closers, watcher.Stop)
}

// models lists the AI services for the health endpoint
func (a *app) models() []server.ModelChecker {
	models := make([]server.ModelChecker, 0, len(a.ai))
	for _, svc := range a.ai {
		models = append(models, svc)
	}
	return models
}

// fail releases what was built so far and returns err
func (a *app) fail(err error) error {
	a.Close()
	return err
}

// Close releases clients in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close client", "error", err.Error())
		}
	}
	a.closers = nil

	if a.obs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.obs.Shutdown(ctx); err != nil {
			a.logger.LogError(err, "Failed to shutdown observability")
		}
	}
}
