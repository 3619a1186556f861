package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/five82/galley/internal/config"
	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/kv"
	"github.com/five82/galley/internal/ledger"
	"github.com/five82/galley/internal/logging"
	"github.com/five82/galley/internal/prefs"
	"github.com/five82/galley/internal/schema"
	"github.com/five82/galley/internal/ui"
)

// Options configure the galley application. Empty fields fall back to the
// config file.
type Options struct {
	ConfigPath string
	SchemaPath string
	APIBase    string
	PrefsPath  string // empty uses default ~/.config/galley/prefs.toml
	Verbose    bool
}

// Env is the wired set of dependencies every command starts from.
type Env struct {
	Config  config.Config
	Logger  *zap.Logger
	Grids   schema.Set
	Session *kv.SQLite
	Client  *ledger.Client
	Policy  controller.SavePolicy
}

// Setup loads config and grid definitions, opens the log and the session
// store, and builds the ledger client with any stored token.
func Setup(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.SchemaPath != "" {
		cfg.SchemaPath = opts.SchemaPath
	}
	if opts.APIBase != "" {
		cfg.APIBase = opts.APIBase
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	policy, err := controller.ParseSavePolicy(cfg.SavePolicy)
	if err != nil {
		return nil, err
	}

	grids, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("load grids: %w", err)
	}

	logger, err := logging.New(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	session, err := kv.OpenSQLite(cfg.SessionDBPath())
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	token, err := session.Get(ctx, kv.KeyToken)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		logger.Warn("read stored token failed", zap.Error(err))
	}

	client, err := ledger.NewClient(cfg.APIBase,
		ledger.WithToken(token),
		ledger.WithTimeout(cfg.RequestTimeout),
		ledger.WithLogger(logger.Named("ledger")),
	)
	if err != nil {
		_ = session.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("init ledger client: %w", err)
	}

	logger.Info("galley starting",
		zap.String("api", client.BaseURL()),
		zap.Int("grids", len(grids.Grids)),
		zap.String("save_policy", cfg.SavePolicy))

	return &Env{
		Config:  cfg,
		Logger:  logger,
		Grids:   grids,
		Session: session,
		Client:  client,
		Policy:  policy,
	}, nil
}

// Close releases the session store and flushes the log.
func (e *Env) Close() error {
	err := e.Session.Close()
	_ = e.Logger.Sync()
	return err
}

// Controller builds the controller for one grid, backed by the ledger API.
func (e *Env) Controller(def schema.Definition) (*controller.Controller, error) {
	return controller.New(def.Schema(), e.Client.Source(def),
		controller.WithLogger(e.Logger.Named("grid")),
		controller.WithSavePolicy(e.Policy),
	)
}

// Run boots the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		env.Logger.Warn("load prefs failed", zap.Error(err))
	}

	pollCtx, stopPoll := context.WithCancel(ctx)
	health := &Health{}
	pollDone := StartPoller(pollCtx, health, env.Client, defaultPollInterval, env.Logger.Named("health"))
	defer func() {
		stopPoll()
		<-pollDone
	}()

	return ui.Run(ui.Options{
		Context:   ctx,
		Grids:     env.Grids,
		Open:      env.Controller,
		Session:   env.Session,
		Health:    health,
		Logger:    env.Logger.Named("ui"),
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		LastGrid:  userPrefs.LastGrid,
		LogPath:   env.Config.LogPath(),
		ExportDir: env.Config.ExportDir(),
	})
}

// Login stores token for later sessions.
func (e *Env) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := e.Session.Set(ctx, kv.KeyToken, token); err != nil {
		return err
	}
	e.Logger.Info("session token stored")
	return nil
}

// Logout forgets the stored token.
func (e *Env) Logout(ctx context.Context) error {
	if err := e.Session.Remove(ctx, kv.KeyToken); err != nil {
		return err
	}
	e.Logger.Info("session token removed")
	return nil
}

// TokenAge reports when the stored token was saved. ok is false when there
// is none.
func (e *Env) TokenAge(ctx context.Context) (saved time.Time, ok bool, err error) {
	saved, err = e.Session.UpdatedAt(ctx, kv.KeyToken)
	if errors.Is(err, kv.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return saved, true, nil
}
