package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-cli/internal/api"
	"github.com/taskboard/taskboard-cli/internal/config"
	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/ctxkey"
	"github.com/taskboard/taskboard-cli/internal/service"
	"github.com/taskboard/taskboard-cli/internal/session"
	"github.com/taskboard/taskboard-cli/internal/transport"
)

// App wires the full client stack for one CLI invocation: config, logger,
// credential store, session manager, request pipeline, and the domain
// services. Commands get it from newApp in their RunE.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    credstore.Store
	Session  *session.Manager
	Auth     *service.AuthService
	Projects *service.ProjectService
	Tasks    *service.TaskService
	Registry *prometheus.Registry
}

// newApp loads configuration and assembles the client stack. The session is
// initialized from storage here, before any command logic runs, so every
// gate check sees reconciled state.
func newApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := buildLogger(cfg.Log)
	slog.SetDefault(logger)

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(store, logger)
	manager.OnTerminated(func(reason string) {
		fmt.Fprintln(os.Stderr, "Your session has expired. Run `taskboard login` to sign in again.")
	})

	// The refresher goes through a bare client: the refresh exchange must
	// not re-enter the pipeline it is rescuing.
	bare := api.NewClient(api.WithBaseURL(cfg.API.URL))

	var registry *prometheus.Registry
	pipelineOpts := []transport.Option{
		transport.WithLogger(logger),
		transport.WithExpiredStatus(cfg.API.ExpiredStatus),
		transport.WithSessionExpiredHook(manager.Terminate),
	}
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		pipelineOpts = append(pipelineOpts, transport.WithMetrics(transport.NewMetrics(registry)))
	}
	pipeline := transport.NewPipeline(store, api.NewRefresher(bare), pipelineOpts...)

	client := api.NewClient(
		api.WithBaseURL(cfg.API.URL),
		api.WithHTTPClient(&http.Client{Transport: pipeline, Timeout: cfg.API.Timeout}),
	)

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Session:  manager,
		Auth:     service.NewAuthService(client, store, manager, logger),
		Projects: service.NewProjectService(client),
		Tasks:    service.NewTaskService(client),
		Registry: registry,
	}

	if err := manager.Initialize(); err != nil {
		return nil, err
	}
	return app, nil
}

// ctx returns the command context enriched with the app logger and the
// command path, so the api layer logs with the fields of the command that
// triggered the request.
func (a *App) ctx(cmd *cobra.Command) context.Context {
	return ctxkey.WithLogger(cmd.Context(), a.Logger.With("command", cmd.CommandPath()))
}

// Close releases the credential store.
func (a *App) Close() {
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("failed to close credential store", "error", err)
	}
}

// buildLogger creates the slog logger per config. Logs go to stderr so
// command output on stdout stays scriptable.
func buildLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// buildStore creates the credential store for the configured driver.
func buildStore(cfg *config.Config, logger *slog.Logger) (credstore.Store, error) {
	switch cfg.Credentials.Driver {
	case "file", "":
		path := cfg.Credentials.Path
		if path == "" {
			path = credstore.DefaultPath()
		}
		return credstore.NewFileStore(path, logger), nil
	case "memory":
		return credstore.NewMemoryStore(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Credentials.RedisAddr})
		return credstore.NewRedisStore(client, cfg.Credentials.RedisProfile, cfg.Credentials.RedisTTL), nil
	default:
		return nil, fmt.Errorf("unknown credentials driver %q", cfg.Credentials.Driver)
	}
}
