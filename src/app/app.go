package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/elee1766/quorum/src/apiclient"
	"github.com/elee1766/quorum/src/config"
	"github.com/elee1766/quorum/src/dispatch"
	"github.com/elee1766/quorum/src/markup"
	"github.com/elee1766/quorum/src/provider"
	"github.com/elee1766/quorum/src/session"
	"github.com/elee1766/quorum/src/storage"
	"github.com/elee1766/quorum/src/synth"
)

// ErrEnvCredential means the credential was seeded from the environment and
// cannot be changed through the store
var ErrEnvCredential = errors.New("credential comes from the environment")

// App represents the main application with all services
type App struct {
	Config   *config.Config
	Table    provider.Table
	Client   *apiclient.Client
	DB       *storage.DB
	Store    *storage.Store
	Session  *session.Session
	Renderer *markup.Renderer
	Logger   *slog.Logger
}

// Options holds the process-level inputs for creating an App
type Options struct {
	Logger     *slog.Logger
	Getenv     func(string) string // defaults to os.Getenv
	HTTPClient *http.Client        // optional transport override
}

// New creates a new App instance with all services initialized
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	table := provider.Builtin().WithBaseURLs(cfg.BaseURLs())

	db, err := storage.Open(ctx, cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	store := storage.NewStore(db, logger)

	sess, err := session.Load(ctx, table, store, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	for id, cred := range cfg.EnvCredentials(getenv) {
		sess.Seed(id, cred)
	}

	client := apiclient.NewClient(apiclient.Config{
		Logger:     logger,
		Timeout:    cfg.Dispatch.Timeout.Std(),
		HTTPClient: opts.HTTPClient,
		UserAgent:  cfg.Dispatch.UserAgent,
	})

	var renderOpts []markup.Option
	if cfg.Render.Strict {
		renderOpts = append(renderOpts, markup.WithStrictEscaping())
	}
	if cfg.Render.Highlight {
		renderOpts = append(renderOpts, markup.WithHighlighting(cfg.Render.Style))
	}

	return &App{
		Config:   cfg,
		Table:    table,
		Client:   client,
		DB:       db,
		Store:    store,
		Session:  sess,
		Renderer: markup.New(renderOpts...),
		Logger:   logger,
	}, nil
}

// Dispatcher builds a dispatcher over the app's session. sink may be nil.
func (a *App) Dispatcher(sink dispatch.EventSink) *dispatch.Dispatcher {
	return dispatch.New(a.Client, a.Session, a.Table,
		dispatch.WithEventSink(sink),
		dispatch.WithRenderer(a.Renderer),
		dispatch.WithRecorder(a.Store),
		dispatch.WithLogger(a.Logger),
	)
}

// Orchestrator builds the synthesizer over the app's session
func (a *App) Orchestrator() *synth.Orchestrator {
	return synth.New(a.Client, a.Session, a.Table,
		synth.WithPriority(a.Config.PriorityIDs()),
		synth.WithFallbackLength(a.Config.Synthesis.FallbackLength),
		synth.WithLogger(a.Logger),
	)
}

// RestoreLatest loads the most recent stored round into the session. It
// reports false when no round was recorded.
func (a *App) RestoreLatest(ctx context.Context) (bool, error) {
	round, responses, ok, err := a.Store.LatestRound(ctx)
	if err != nil || !ok {
		return false, err
	}
	a.Session.Restore(round, responses)
	return true, nil
}

// SetCredential stores a credential and forgets the models listed under the
// previous one.
func (a *App) SetCredential(ctx context.Context, id provider.ID, credential string) error {
	if err := a.Session.SetCredential(ctx, id, credential); err != nil {
		return err
	}
	a.Client.ForgetModels(id)
	return nil
}

// DeleteCredential removes a stored credential along with its cached model
// list. Environment credentials are refused.
func (a *App) DeleteCredential(ctx context.Context, id provider.ID) error {
	if a.Session.IsSeeded(id) {
		return fmt.Errorf("%w: unset %s instead", ErrEnvCredential, a.Config.Providers[string(id)].APIKeyEnv)
	}
	if err := a.Session.DeleteCredential(ctx, id); err != nil {
		return err
	}
	a.Client.ForgetModels(id)
	return nil
}

// Models resolves the model list for id using its credential, and drops a
// stored choice the provider no longer offers.
func (a *App) Models(ctx context.Context, id provider.ID) ([]provider.Model, error) {
	desc, err := a.Table.Get(id)
	if err != nil {
		return nil, err
	}

	cred, _ := a.Session.Credential(id)
	models := a.Client.ResolveModels(ctx, desc, cred)

	if _, err := a.Session.ReconcileModel(ctx, id, models); err != nil {
		return models, err
	}
	return models, nil
}

// Close closes all resources held by the app
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
