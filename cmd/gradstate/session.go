package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/born-ml/gradstate/internal/checkpoint"
	"github.com/born-ml/gradstate/internal/config"
	"github.com/born-ml/gradstate/internal/nn"
	"github.com/born-ml/gradstate/internal/optim"
)

// session is the network, updater and optional store shared by the
// inspect and serve commands.
type session struct {
	cfg     config.Config
	logger  *slog.Logger
	graph   *nn.Graph
	updater *optim.GraphUpdater
	store   *checkpoint.Store
}

func addSessionFlags(flags *pflag.FlagSet) {
	d := config.Default()
	flags.String("updater", d.Updater, "Update rule: sgd, momentum, nesterovs, adam, rmsprop, adagrad")
	flags.Float32("lr", d.LR, "Learning rate")
	flags.Float32("momentum", d.Momentum, "Momentum coefficient")
	flags.Int("steps", d.Steps, "Synthetic gradient steps to run")
	flags.Int("scale", d.Scale, "Divide channel and unit counts by this factor")
	flags.Int64("seed", d.Seed, "Seed for synthetic gradients")
	flags.String("db", d.DB, "Checkpoint database path or DSN")
	flags.String("db-driver", d.DBDriver, "Checkpoint database driver: sqlite3 or mysql")
	flags.String("resume", "", "Load this run from the checkpoint database before stepping")
	flags.String("log-level", d.LogLevel.String(), "Log level: debug, info, warn, error")
}

// loadConfig reads the environment and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env")
	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("updater") {
		cfg.Updater, _ = flags.GetString("updater")
	}
	if flags.Changed("lr") {
		cfg.LR, _ = flags.GetFloat32("lr")
	}
	if flags.Changed("momentum") {
		cfg.Momentum, _ = flags.GetFloat32("momentum")
	}
	if flags.Changed("steps") {
		cfg.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("scale") {
		cfg.Scale, _ = flags.GetInt("scale")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("db") {
		cfg.DB, _ = flags.GetString("db")
	}
	if flags.Changed("db-driver") {
		cfg.DBDriver, _ = flags.GetString("db-driver")
	}
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return config.Config{}, fmt.Errorf("--log-level: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

// newSession builds the reference network and an initialized updater, and
// restores a checkpoint when --resume is set.
func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr())

	g, err := nn.ReferenceConvNet(cfg.Scale)
	if err != nil {
		return nil, err
	}

	oc, err := cfg.OptimConfig()
	if err != nil {
		return nil, err
	}
	u, err := optim.NewGraphUpdater(g.Layers(), oc, optim.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	// A zero in optim.Config selects the rule default, so apply the
	// resolved values explicitly to honour --momentum 0.
	u.SetLR(cfg.LR)
	u.SetMomentum(cfg.Momentum)
	if err := u.Init(); err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, graph: g, updater: u}

	if cfg.DB != "" {
		s.store, err = checkpoint.OpenDSN(cfg.DBDriver, cfg.DB, checkpoint.WithLogger(logger))
		if err != nil {
			return nil, err
		}
	}

	if run, _ := cmd.Flags().GetString("resume"); run != "" {
		if s.store == nil {
			return nil, fmt.Errorf("--resume needs a checkpoint database (--db)")
		}
		if err := s.store.Load(ctx, run, u); err != nil {
			s.close()
			return nil, err
		}
	}

	return s, nil
}

// run applies cfg.Steps updates with synthetic normal gradients.
func (s *session) run() error {
	rng := rand.New(rand.NewSource(s.cfg.Seed)) //nolint:gosec // synthetic gradients
	for step := range s.cfg.Steps {
		if err := s.updater.Step(syntheticGrads(s.graph, rng)); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		s.updater.ZeroGrad()
	}
	s.logger.Debug("synthetic steps done", "steps", s.cfg.Steps)
	return nil
}

// syntheticGrads draws a N(0, 1) gradient for every parameter.
func syntheticGrads(g *nn.Graph, rng *rand.Rand) optim.Gradients {
	grads := optim.Gradients{}
	for _, l := range g.Layers() {
		params := l.Parameters()
		if len(params) == 0 {
			continue
		}
		layerGrads := make(map[string][]float32, len(params))
		for _, p := range params {
			grad := make([]float32, p.Size())
			for i := range grad {
				grad[i] = float32(rng.NormFloat64())
			}
			layerGrads[p.Name()] = grad
		}
		grads[l.Name()] = layerGrads
	}
	return grads
}

func (s *session) close() {
	if s.store != nil {
		s.store.Close()
	}
}
