package optim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/born-ml/gradstate/internal/nn"
	"github.com/born-ml/gradstate/internal/parallel"
)

// GraphUpdater keeps one LayerUpdater per layer of a graph.
//
// Layers are independent, so Step runs them on a worker pool. The
// GraphUpdater itself is safe for concurrent use: Step, Init and
// LoadStateDict take a write lock, inspection methods a read lock.
//
// Example:
//
//	u, err := optim.NewGraphUpdater(g.Layers(), optim.Config{
//	    Updater:  optim.KindNesterovs,
//	    Momentum: 0.9,
//	}, optim.WithLogger(logger))
//
//	if err := u.Step(grads); err != nil {
//	    return err
//	}
type GraphUpdater struct {
	mu sync.RWMutex

	rule             Rule
	hyper            Hyper
	layerUpdaters    []*LayerUpdater
	layerUpdatersMap map[string]int

	parallel parallel.Config
	logger   *slog.Logger
}

var _ Optimizer = (*GraphUpdater)(nil)

// Option configures a GraphUpdater.
type Option func(*GraphUpdater)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(g *GraphUpdater) {
		g.logger = logger
	}
}

// WithParallel sets the worker pool used by Step.
func WithParallel(cfg parallel.Config) Option {
	return func(g *GraphUpdater) {
		g.parallel = cfg
	}
}

// NewGraphUpdater creates one LayerUpdater per layer, all sharing the rule
// selected by cfg. Layer names must be unique.
func NewGraphUpdater(layers []nn.Layer, cfg Config, opts ...Option) (*GraphUpdater, error) {
	rule, err := NewRule(cfg)
	if err != nil {
		return nil, err
	}

	g := &GraphUpdater{
		rule:             rule,
		hyper:            rule.Defaults(),
		layerUpdaters:    make([]*LayerUpdater, 0, len(layers)),
		layerUpdatersMap: make(map[string]int, len(layers)),
		parallel:         parallel.DefaultConfig(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, l := range layers {
		if _, dup := g.layerUpdatersMap[l.Name()]; dup {
			return nil, fmt.Errorf("optim: duplicate layer name %q", l.Name())
		}
		u := NewLayerUpdater(l, rule)
		u.logger = g.logger
		g.layerUpdatersMap[l.Name()] = len(g.layerUpdaters)
		g.layerUpdaters = append(g.layerUpdaters, u)
	}

	return g, nil
}

// Rule returns the shared update rule.
func (g *GraphUpdater) Rule() Rule {
	return g.rule
}

// Kind returns the kind of the update rule.
func (g *GraphUpdater) Kind() Kind {
	return g.rule.Kind()
}

// Init allocates accumulators for every parameter of every layer.
func (g *GraphUpdater) Init() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	for _, u := range g.layerUpdaters {
		errs = append(errs, u.Init())
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	g.logger.Info("initialized updater state",
		"rule", g.rule.Kind().String(),
		"layers", len(g.layerUpdaters),
	)
	return nil
}

// Step applies one update to every layer.
//
// grads may omit layers and parameters; those fall back to
// Parameter.Grad() or are skipped. Every layer's gradients are checked
// before any layer is updated, so an unknown layer or a size mismatch
// anywhere leaves the whole graph untouched.
func (g *GraphUpdater) Step(grads Gradients) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for name := range grads {
		if _, ok := g.layerUpdatersMap[name]; !ok {
			return fmt.Errorf("optim: %q: %w", name, ErrUnknownLayer)
		}
	}

	work := make([][]paramGrad, len(g.layerUpdaters))
	for i, u := range g.layerUpdaters {
		w, err := u.check(grads[u.layer.Name()])
		if err != nil {
			return err
		}
		work[i] = w
	}

	h := g.hyper
	return parallel.ForEach(len(g.layerUpdaters), func(i int) error {
		return g.layerUpdaters[i].apply(work[i], h)
	}, g.parallel)
}

// ZeroGrad clears the gradients of every parameter.
func (g *GraphUpdater) ZeroGrad() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, u := range g.layerUpdaters {
		for _, p := range u.layer.Parameters() {
			p.ZeroGrad()
		}
	}
}

// GetLR returns the current learning rate.
func (g *GraphUpdater) GetLR() float32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hyper.LR
}

// SetLR updates the learning rate.
//
// Useful for learning rate scheduling during training.
func (g *GraphUpdater) SetLR(lr float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hyper.LR = lr
}

// SetMomentum updates the momentum coefficient.
func (g *GraphUpdater) SetMomentum(momentum float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hyper.Momentum = momentum
}

// Hyper returns the hyperparameters used by the next Step.
func (g *GraphUpdater) Hyper() Hyper {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hyper
}

// ForLayer returns the updater of the named layer.
//
// The returned LayerUpdater is not guarded by the GraphUpdater's lock.
func (g *GraphUpdater) ForLayer(name string) (*LayerUpdater, bool) {
	i, ok := g.layerUpdatersMap[name]
	if !ok {
		return nil, false
	}
	return g.layerUpdaters[i], true
}

// LayerUpdaters returns the per-layer updaters in graph order.
func (g *GraphUpdater) LayerUpdaters() []*LayerUpdater {
	return g.layerUpdaters
}

// Validate checks every layer's state against its parameter table.
func (g *GraphUpdater) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	for _, u := range g.layerUpdaters {
		errs = append(errs, u.Validate())
	}
	return errors.Join(errs...)
}

// NamedSize pairs a parameter name with an element count.
type NamedSize struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// LayerSummary reports parameter and updater state sizes for one layer.
type LayerSummary struct {
	Layer     string      `json:"layer"`
	Rule      string      `json:"rule"`
	NumParams int         `json:"num_params"`
	Slots     int         `json:"slots"`
	Params    []NamedSize `json:"params"`
	State     []NamedSize `json:"state"`
}

// String formats the summary as one tab-separated line:
//
//	l0_cnn	1000	{W=900, b=100}	 Updater size: {W=900, b=100}
func (s LayerSummary) String() string {
	return fmt.Sprintf("%s\t%d\t%s\t Updater size: %s", s.Layer, s.NumParams, formatSizes(s.Params), formatSizes(s.State))
}

func formatSizes(sizes []NamedSize) string {
	parts := make([]string, len(sizes))
	for i, s := range sizes {
		parts[i] = fmt.Sprintf("%s=%d", s.Name, s.Size)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Summary returns a LayerSummary per layer in graph order.
func (g *GraphUpdater) Summary() []LayerSummary {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]LayerSummary, len(g.layerUpdaters))
	for i, u := range g.layerUpdaters {
		out[i] = summarize(u)
	}
	return out
}

// SummaryOf returns the summary of the named layer.
func (g *GraphUpdater) SummaryOf(name string) (LayerSummary, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	u, ok := g.ForLayer(name)
	if !ok {
		return LayerSummary{}, false
	}
	return summarize(u), true
}

func summarize(u *LayerUpdater) LayerSummary {
	s := LayerSummary{
		Layer:     u.layer.Name(),
		Rule:      u.state.Rule().Kind().String(),
		NumParams: u.layer.NumParams(),
		Slots:     len(u.state.Rule().Slots()),
		Params:    []NamedSize{},
		State:     []NamedSize{},
	}
	for _, p := range u.layer.Parameters() {
		s.Params = append(s.Params, NamedSize{Name: p.Name(), Size: p.Size()})
	}
	for name := range u.state.ParameterNames() {
		s.State = append(s.State, NamedSize{Name: name, Size: u.state.SizeOf(name)})
	}
	return s
}

// StateEntry is one accumulator of one layer in a state dict.
type StateEntry struct {
	Layer string
	Accumulator
}

// StateDict exports every accumulator of every layer, in graph order.
func (g *GraphUpdater) StateDict() []StateEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []StateEntry
	for _, u := range g.layerUpdaters {
		for _, a := range u.state.Export() {
			out = append(out, StateEntry{Layer: u.layer.Name(), Accumulator: a})
		}
	}
	return out
}

// LoadStateDict replaces the state of every layer with entries.
//
// Layers without entries end up with empty state. Entries are validated
// against the parameter tables first; an error leaves all state unchanged.
func (g *GraphUpdater) LoadStateDict(entries []StateEntry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	byLayer := make(map[string][]Accumulator)
	for _, e := range entries {
		if _, ok := g.layerUpdatersMap[e.Layer]; !ok {
			return fmt.Errorf("optim: load state: %q: %w", e.Layer, ErrUnknownLayer)
		}
		byLayer[e.Layer] = append(byLayer[e.Layer], e.Accumulator)
	}

	// Import into scratch states first so a bad layer cannot leave the
	// graph half loaded.
	staged := make(map[string]*State, len(g.layerUpdaters))
	for _, name := range slices.Sorted(maps.Keys(g.layerUpdatersMap)) {
		u := g.layerUpdaters[g.layerUpdatersMap[name]]
		scratch := &LayerUpdater{layer: u.layer, state: NewState(g.rule), logger: u.logger}
		if err := scratch.Load(byLayer[name]); err != nil {
			return err
		}
		staged[name] = scratch.state
	}

	for name, st := range staged {
		u := g.layerUpdaters[g.layerUpdatersMap[name]]
		u.state = st
	}

	g.logger.Info("loaded updater state", "entries", len(entries), "layers", len(byLayer))
	return nil
}
