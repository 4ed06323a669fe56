package app

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"

	"crmcore/internal/config"
	"crmcore/internal/db"
	"crmcore/internal/engine"
	"crmcore/internal/logging"
	"crmcore/internal/migrate"
)

// Options select the workspace and override the logging section of crmcore.yml.
type Options struct {
	Workspace string
	LogLevel  string
	LogFormat string
	LogOutput io.Writer
}

// Runtime is an opened workspace: migrated database, loaded config and the engine on top.
type Runtime struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Logger    *slog.Logger
	Engine    engine.Engine
}

// Open prepares the workspace directory, loads crmcore.yml (defaults when absent),
// opens and migrates the database and wires the engine.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	if _, err := db.EnsureWorkspace(opts.Workspace); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	level, format := cfg.Log.Level, cfg.Log.Format
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := logging.New(level, format, out)

	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("workspace opened", "workspace", opts.Workspace, "db", db.Path(opts.Workspace))
	return &Runtime{
		Workspace: opts.Workspace,
		DB:        conn,
		Config:    cfg,
		Logger:    logger,
		Engine:    engine.New(conn, cfg, logger),
	}, nil
}

func (r *Runtime) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}
