package optim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/born-ml/gradstate/internal/nn"
)

// LayerUpdater applies an update rule to one layer's parameters.
//
// It owns the layer's State. Parameters are keyed by their name in the
// layer's parameter table; a layer without parameters never gets any
// accumulators.
type LayerUpdater struct {
	layer  nn.Layer
	state  *State
	strict bool // every parameter was ensured by Init
	logger *slog.Logger
}

// NewLayerUpdater creates an updater for layer with an empty State.
func NewLayerUpdater(layer nn.Layer, rule Rule) *LayerUpdater {
	return &LayerUpdater{
		layer:  layer,
		state:  NewState(rule),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Layer returns the layer being updated.
func (u *LayerUpdater) Layer() nn.Layer {
	return u.layer
}

// State returns the accumulator state.
func (u *LayerUpdater) State() *State {
	return u.state
}

// Init allocates accumulators for every parameter up front instead of on
// the first Step. After Init, Validate also reports missing accumulators.
func (u *LayerUpdater) Init() error {
	for _, p := range u.layer.Parameters() {
		if p.Size() == 0 {
			continue
		}
		if err := u.state.Ensure(p.Name(), p.Size()); err != nil {
			return fmt.Errorf("optim: layer %q: %w", u.layer.Name(), err)
		}
	}
	u.strict = true
	return nil
}

type paramGrad struct {
	param *nn.Parameter
	grad  []float32
}

// Step applies one update to every parameter that has a gradient.
//
// Gradients come from grads keyed by parameter name, falling back to
// Parameter.Grad(). Parameters with neither are skipped. All gradients are
// checked before anything is written, so a size mismatch leaves both the
// parameters and the accumulators untouched.
func (u *LayerUpdater) Step(grads map[string][]float32, h Hyper) error {
	work, err := u.check(grads)
	if err != nil {
		return err
	}
	return u.apply(work, h)
}

// check resolves the gradient of every parameter and validates its size
// against the parameter and any existing accumulators. It writes nothing.
func (u *LayerUpdater) check(grads map[string][]float32) ([]paramGrad, error) {
	name := u.layer.Name()

	for pname := range grads {
		if u.layer.Param(pname) == nil {
			return nil, fmt.Errorf("optim: layer %q: %q: %w", name, pname, ErrUnknownParameter)
		}
	}

	var work []paramGrad
	for _, p := range u.layer.Parameters() {
		if p.Size() == 0 {
			continue
		}
		grad, ok := grads[p.Name()]
		if !ok {
			grad = p.Grad()
		}
		if grad == nil {
			continue
		}
		if len(grad) != p.Size() {
			return nil, fmt.Errorf("optim: layer %q: %q: gradient has %d elements, parameter %d: %w",
				name, p.Name(), len(grad), p.Size(), ErrShapeMismatch)
		}
		if size := u.state.SizeOf(p.Name()); size != Absent && size != p.Size() {
			return nil, fmt.Errorf("optim: layer %q: %q: parameter has %d elements, state %d: %w",
				name, p.Name(), p.Size(), size, ErrStateDrift)
		}
		work = append(work, paramGrad{param: p, grad: grad})
	}
	return work, nil
}

// apply updates the accumulators and parameters of work returned by check.
func (u *LayerUpdater) apply(work []paramGrad, h Hyper) error {
	name := u.layer.Name()

	allocated := 0
	for _, w := range work {
		pname := w.param.Name()
		if u.state.SizeOf(pname) == Absent {
			allocated++
		}
		if err := u.state.Ensure(pname, w.param.Size()); err != nil {
			return fmt.Errorf("optim: layer %q: %w", name, err)
		}
		delta, err := u.state.Update(pname, w.grad, h)
		if err != nil {
			return fmt.Errorf("optim: layer %q: %w", name, err)
		}
		if err := w.param.AddInPlace(delta); err != nil {
			return fmt.Errorf("optim: layer %q: %w", name, err)
		}
	}

	if allocated > 0 {
		u.logger.Debug("allocated updater state",
			"layer", name,
			"rule", u.state.Rule().Kind().String(),
			"params", allocated,
		)
	}
	return nil
}

// Validate checks that the State tracks exactly the layer's parameters
// with matching sizes.
//
// Orphan accumulators and size differences are always reported. Missing
// accumulators are reported only after Init, since Step allocates them
// lazily.
func (u *LayerUpdater) Validate() error {
	name := u.layer.Name()
	sizes := nn.ParamSizes(u.layer)

	var errs []error
	for _, p := range u.layer.Parameters() {
		got := u.state.SizeOf(p.Name())
		if got == Absent && !u.strict {
			continue
		}
		if got != p.Size() {
			errs = append(errs, fmt.Errorf("optim: layer %q: %q: parameter has %d elements, state %d: %w",
				name, p.Name(), p.Size(), got, ErrStateDrift))
		}
	}
	for pname := range u.state.ParameterNames() {
		if _, ok := sizes[pname]; !ok {
			errs = append(errs, fmt.Errorf("optim: layer %q: orphan state for %q: %w", name, pname, ErrStateDrift))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		u.logger.Warn("updater state drift", "layer", name, "err", err)
	}
	return err
}

// Load replaces the State with accs after checking them against the
// layer's parameter table.
func (u *LayerUpdater) Load(accs []Accumulator) error {
	name := u.layer.Name()
	for _, a := range accs {
		p := u.layer.Param(a.Param)
		if p == nil {
			return fmt.Errorf("optim: layer %q: %q: %w", name, a.Param, ErrUnknownParameter)
		}
		if p.Size() != a.Size {
			return fmt.Errorf("optim: layer %q: %q: parameter has %d elements, saved state %d: %w",
				name, a.Param, p.Size(), a.Size, ErrSizeMismatch)
		}
	}
	if err := u.state.Import(accs); err != nil {
		return fmt.Errorf("optim: layer %q: %w", name, err)
	}
	return nil
}
