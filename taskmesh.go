// Package taskmesh provides a high-level façade over the runner, admission
// gate and server packages enabling rapid construction of gated workflow
// orchestrators. Most applications interact with this package by:
//  1. Building a node topology (local, remote, sequential, parallel, loop)
//  2. Creating a TaskMesh via New() with a root node and optional cooldown
//  3. Running workflows directly (Run) or serving them over HTTP (Serve)
//
// FromConfig assembles the whole stack — store backend, gate, model, server —
// from a config.Config, which is how a deployed binary exposes a workflow as
// a remote capability. All defaults are safe for local development.
package taskmesh

import (
	"context"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hupe1980/taskmesh/admission"
	"github.com/hupe1980/taskmesh/config"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/model/anthropic"
	"github.com/hupe1980/taskmesh/model/openai"
	"github.com/hupe1980/taskmesh/runner"
	"github.com/hupe1980/taskmesh/server"
)

// Options configures a TaskMesh instance.
type Options struct {
	// CooldownStore backs the admission gate. Nil with a zero
	// CooldownPeriod means no gate is installed.
	CooldownStore admission.Store

	// CooldownPeriod is the per-node cooldown window. Zero disables the
	// gate.
	CooldownPeriod time.Duration

	// GuardedNodes restricts the gate to the named nodes; empty guards all.
	GuardedNodes []string

	// Interceptors are appended after the gate in the execution chain.
	Interceptors []core.Interceptor

	// NodeTimeout / RunTimeout bound execution; zero means unbounded.
	NodeTimeout time.Duration
	RunTimeout  time.Duration

	// Logger defaults to the no-op logger.
	Logger logging.Logger
}

// TaskMesh aggregates the runner and its admission chain.
type TaskMesh struct {
	opts   Options
	runner *runner.Runner
}

// New creates a TaskMesh for the given root node.
func New(root core.Node, optFns ...func(o *Options)) *TaskMesh {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	var interceptors []core.Interceptor
	if opts.CooldownPeriod > 0 {
		store := opts.CooldownStore
		if store == nil {
			store = admission.NewMemoryStore()
		}

		gateOpts := []admission.GateOption{admission.WithLogger(opts.Logger)}
		if len(opts.GuardedNodes) > 0 {
			gateOpts = append(gateOpts, admission.WithGuardedNodes(opts.GuardedNodes...))
		}

		interceptors = append(interceptors, admission.NewGate(store, opts.CooldownPeriod, gateOpts...))
	}
	interceptors = append(interceptors, opts.Interceptors...)

	r := runner.New(root, func(o *runner.Options) {
		o.Interceptors = interceptors
		o.NodeTimeout = opts.NodeTimeout
		o.RunTimeout = opts.RunTimeout
		o.Logger = opts.Logger
	})

	return &TaskMesh{opts: opts, runner: r}
}

// Runner exposes the underlying runner.
func (m *TaskMesh) Runner() *runner.Runner { return m.runner }

// Run executes the workflow once.
func (m *TaskMesh) Run(ctx context.Context, input string, seed map[string]any) (*core.Result, *core.State, error) {
	return m.runner.Run(ctx, input, seed)
}

// Serve exposes the workflow over HTTP until ctx is cancelled.
func (m *TaskMesh) Serve(ctx context.Context, optFns ...func(o *server.Options)) error {
	srv := server.New(m.runner, optFns...)
	return srv.ListenAndServe(ctx)
}

// FromConfig assembles a TaskMesh around the given root node from a resolved
// configuration: cooldown store backend, gate, timeouts and logger.
func FromConfig(cfg config.Config, root core.Node) (*TaskMesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := loggerFromConfig(cfg.Log)
	if err != nil {
		return nil, err
	}

	store, err := storeFromConfig(cfg.Cooldown)
	if err != nil {
		return nil, err
	}

	return New(root, func(o *Options) {
		o.CooldownStore = store
		o.CooldownPeriod = cfg.Cooldown.Period
		o.GuardedNodes = cfg.Cooldown.Nodes
		o.NodeTimeout = cfg.Run.NodeTimeout
		o.RunTimeout = cfg.Run.RunTimeout
		o.Logger = logger
	}), nil
}

// ServeFromConfig wires FromConfig plus the HTTP server settings and serves
// until ctx is cancelled.
func ServeFromConfig(ctx context.Context, cfg config.Config, root core.Node) error {
	m, err := FromConfig(cfg, root)
	if err != nil {
		return err
	}

	return m.Serve(ctx, func(o *server.Options) {
		o.Addr = cfg.Server.Addr
		o.PublicURL = cfg.Server.PublicURL
		o.RateLimit = rate.Limit(cfg.Server.RateLimit)
		o.RateBurst = cfg.Server.RateBurst
		o.ShutdownTimeout = cfg.Server.ShutdownTimeout
		o.Logger = m.opts.Logger
	})
}

// ModelFromConfig builds the configured reasoning engine adapter.
func ModelFromConfig(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case "mock", "":
		return model.NewMockModel(cfg.Name, "mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func storeFromConfig(cfg config.CooldownConfig) (admission.Store, error) {
	switch cfg.Store {
	case "memory", "":
		return admission.NewMemoryStore(), nil
	case "http":
		return admission.NewHTTPStore(cfg.URL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		return admission.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown cooldown store %q", cfg.Store)
	}
}

func loggerFromConfig(cfg config.LogConfig) (logging.Logger, error) {
	logCfg := logging.DefaultConfig()

	switch cfg.Level {
	case "debug":
		logCfg.Level = logging.LevelDebug
	case "info", "":
		logCfg.Level = logging.LevelInfo
	case "warn":
		logCfg.Level = logging.LevelWarn
	case "error":
		logCfg.Level = logging.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	logCfg.Format = cfg.Format

	return logging.New(logCfg), nil
}
