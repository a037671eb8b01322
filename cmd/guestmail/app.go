package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"guestmail/internal/adapters"
	"guestmail/internal/audit"
	"guestmail/internal/config"
	"guestmail/internal/generate"
	"guestmail/internal/interpret"
	"guestmail/internal/knowledge"
	"guestmail/internal/ledger"
	"guestmail/internal/logging"
	"guestmail/internal/refine"
	"guestmail/internal/signals"
	"guestmail/internal/templates"
	"guestmail/internal/workspace"
)

// app holds everything a command needs, resolved from the workspace and its
// config.yaml.
type app struct {
	ws     *workspace.Workspace
	cfg    *config.Config
	logger *slog.Logger
	audit  *audit.Logger
	store  *signals.Store
	sink   signals.Sink

	templatesPath string
	knowledgeDir  string
	ledgerPath    string

	closers []io.Closer
}

func loadApp(workspacePath string) (*app, error) {
	if strings.TrimSpace(workspacePath) == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(workspacePath)
	if err != nil {
		return nil, err
	}
	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(ws.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{ws: ws, cfg: cfg, logger: logger}
	paths := []struct {
		dst      *string
		value    string
		fallback string
		name     string
	}{
		{&a.templatesPath, cfg.TemplatesFile, ws.TemplatesPath, "templates_file"},
		{&a.knowledgeDir, cfg.KnowledgeDir, ws.KnowledgeDir, "knowledge_dir"},
		{&a.ledgerPath, cfg.LedgerDB, ws.LedgerDBPath, "ledger_db"},
	}
	for _, p := range paths {
		if *p.dst, err = ws.ResolveOr(p.value, p.fallback); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p.name, err)
		}
	}
	auditPath, err := ws.ResolveOr(cfg.AuditDB, ws.AuditDBPath)
	if err != nil {
		return nil, fmt.Errorf("resolve audit_db: %w", err)
	}
	signalsDir, err := ws.ResolveOr(cfg.SignalsDir, ws.SignalsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve signals_dir: %w", err)
	}
	a.audit = audit.NewLogger(auditPath)

	a.store = signals.NewStore(signalsDir)
	a.store.ArchiveThresholdBytes = cfg.Signals.ArchiveThresholdBytes
	a.store.Retention = cfg.Retention()
	a.store.Logger = logger
	a.sink = a.store
	if brokers := cfg.Signals.Kafka.Brokers; len(brokers) > 0 {
		kafkaSink := signals.NewKafkaSink(brokers, cfg.Signals.Kafka.Topic, logger)
		a.closers = append(a.closers, kafkaSink)
		a.sink = signals.MultiSink{a.store, kafkaSink}
		logger.Debug("mirroring signals to kafka", "brokers", brokers, "topic", cfg.Signals.Kafka.Topic)
	}
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// logEvent writes an audit event. Audit failures never fail a command.
func (a *app) logEvent(eventType string, payload map[string]any) {
	if err := a.audit.LogEvent(audit.ActorCLI, eventType, payload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
}

func (a *app) interpreter() *interpret.Interpreter {
	return interpret.New(interpret.Options{StaffMarkers: a.cfg.StaffMarkers})
}

// openLedger opens the reviewed-question ledger and registers it for Close.
func (a *app) openLedger() (*ledger.Store, error) {
	store, err := ledger.Open(a.ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.closers = append(a.closers, store)
	return store, nil
}

func (a *app) generator() (*generate.Generator, error) {
	store, err := a.openLedger()
	if err != nil {
		return nil, err
	}
	return generate.New(generate.Options{
		CorpusPath:        a.templatesPath,
		Cache:             templates.NewCache(a.cfg.TemplateCacheTTL).WithLoader(corpusLoader(a.logger)),
		Thresholds:        a.cfg.Ranker,
		Knowledge:         knowledge.NewStore(a.knowledgeDir),
		Ledger:            store,
		Sink:              a.sink,
		Signature:         a.cfg.Signature,
		SignatureImageURL: a.cfg.SignatureImageURL,
		Logger:            a.logger,
	}), nil
}

// corpusLoader reads the template corpus and logs each (re)load, so cache
// expiry is visible at debug level.
func corpusLoader(logger *slog.Logger) func(string) ([]templates.EmailTemplate, error) {
	return func(path string) ([]templates.EmailTemplate, error) {
		corpus, err := templates.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("template corpus loaded", "path", path, "templates", len(corpus))
		return corpus, nil
	}
}

// refiner builds the refiner for executor, falling back to the configured
// one when executor is empty.
func (a *app) refiner(executor string) (*refine.Refiner, error) {
	if executor == "" {
		executor = a.cfg.Refine.Executor
	}
	var llm adapters.LLM
	switch executor {
	case "claude":
		llm = &adapters.ClaudeAdapter{Command: a.cfg.Refine.Command, Model: a.cfg.Refine.Model}
	case "mock":
		llm = &adapters.MockAdapter{}
	default:
		return nil, fmt.Errorf("unknown executor: %s", executor)
	}
	return refine.New(refine.Options{
		LLM:     llm,
		Model:   a.cfg.Refine.Model,
		Timeout: a.cfg.Refine.Timeout,
		Sink:    a.sink,
		Logger:  a.logger,
	}), nil
}
