package optim

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Absent is returned by State.SizeOf for a name with no accumulator.
const Absent = -1

// entry is the state kept for one parameter.
type entry struct {
	size  int
	acc   [][]float32 // one buffer per rule slot, each of len size
	steps int
}

// State owns the accumulators of one layer's parameters.
//
// For each parameter name it keeps one zero-initialized buffer per rule
// slot, all exactly as large as the parameter. Buffers are allocated on
// Ensure and kept until the State is dropped.
//
// A State is not safe for concurrent use. Distinct States share nothing,
// so different layers may be updated from different goroutines.
type State struct {
	rule    Rule
	entries map[string]*entry
}

// NewState creates an empty State that updates with rule.
func NewState(rule Rule) *State {
	if rule == nil {
		panic("optim: NewState with nil rule")
	}
	return &State{
		rule:    rule,
		entries: make(map[string]*entry),
	}
}

// Rule returns the update rule.
func (s *State) Rule() Rule {
	return s.rule
}

// Ensure allocates zeroed accumulators of size elements for name if it has
// none yet. Ensuring an existing name with the same size is a no-op.
//
// Returns ErrInvalidSize for size <= 0 and ErrSizeMismatch if name already
// has accumulators of a different size.
func (s *State) Ensure(name string, size int) error {
	if size <= 0 {
		return fmt.Errorf("optim: %q: size %d: %w", name, size, ErrInvalidSize)
	}
	if e, ok := s.entries[name]; ok {
		if e.size != size {
			return fmt.Errorf("optim: %q: have %d elements, asked for %d: %w", name, e.size, size, ErrSizeMismatch)
		}
		return nil
	}

	slots := s.rule.Slots()
	acc := make([][]float32, len(slots))
	for i := range acc {
		acc[i] = make([]float32, size)
	}
	s.entries[name] = &entry{size: size, acc: acc}
	return nil
}

// Update applies the rule to the accumulators of name and returns the
// delta to add to the parameter.
//
// Returns ErrUnknownParameter if name was never ensured and ErrShapeMismatch
// if grad has a different length than the accumulators. On error the
// accumulators are left unchanged.
func (s *State) Update(name string, grad []float32, h Hyper) ([]float32, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("optim: %q: %w", name, ErrUnknownParameter)
	}
	if len(grad) != e.size {
		return nil, fmt.Errorf("optim: %q: gradient has %d elements, accumulator %d: %w",
			name, len(grad), e.size, ErrShapeMismatch)
	}

	delta := make([]float32, e.size)
	e.steps++
	s.rule.Apply(e.acc, grad, delta, h, e.steps)
	return delta, nil
}

// SizeOf returns the element count of the accumulators for name, or Absent.
func (s *State) SizeOf(name string) int {
	if e, ok := s.entries[name]; ok {
		return e.size
	}
	return Absent
}

// Steps returns how many updates have been applied to name.
func (s *State) Steps(name string) int {
	if e, ok := s.entries[name]; ok {
		return e.steps
	}
	return 0
}

// ParameterNames returns the tracked names in sorted order.
//
// The sequence can be ranged over any number of times; each pass reflects
// the names tracked when it starts.
func (s *State) ParameterNames() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, name := range slices.Sorted(maps.Keys(s.entries)) {
			if !yield(name) {
				return
			}
		}
	}
}

// Len returns the number of tracked names.
func (s *State) Len() int {
	return len(s.entries)
}

// Buffer returns a copy of one accumulator buffer.
func (s *State) Buffer(name, slot string) ([]float32, bool) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	i := slices.Index(s.rule.Slots(), slot)
	if i < 0 {
		return nil, false
	}
	return slices.Clone(e.acc[i]), true
}

// Accumulator is one exported accumulator buffer.
//
// Rules without slots export one record per parameter with an empty Slot
// and nil Data so the tracked names and sizes survive a round trip.
type Accumulator struct {
	Param string
	Slot  string
	Size  int
	Step  int
	Data  []float32
}

// Export returns copies of every accumulator, ordered by parameter then slot.
func (s *State) Export() []Accumulator {
	slots := s.rule.Slots()
	var out []Accumulator
	for name := range s.ParameterNames() {
		e := s.entries[name]
		if len(slots) == 0 {
			out = append(out, Accumulator{Param: name, Size: e.size, Step: e.steps})
			continue
		}
		for i, slot := range slots {
			out = append(out, Accumulator{
				Param: name,
				Slot:  slot,
				Size:  e.size,
				Step:  e.steps,
				Data:  slices.Clone(e.acc[i]),
			})
		}
	}
	return out
}

// Import replaces all accumulators with accs.
//
// Every parameter must come with exactly the rule's slots, all of the same
// size and step. Nothing is replaced if validation fails.
func (s *State) Import(accs []Accumulator) error {
	slots := s.rule.Slots()
	entries := make(map[string]*entry)

	for _, a := range accs {
		if a.Size <= 0 {
			return fmt.Errorf("optim: import %q/%q: size %d: %w", a.Param, a.Slot, a.Size, ErrInvalidSize)
		}
		if a.Step < 0 {
			return fmt.Errorf("optim: import %q/%q: negative step %d", a.Param, a.Slot, a.Step)
		}

		e, ok := entries[a.Param]
		if !ok {
			e = &entry{size: a.Size, steps: a.Step, acc: make([][]float32, len(slots))}
			entries[a.Param] = e
		}
		if e.size != a.Size || e.steps != a.Step {
			return fmt.Errorf("optim: import %q: slots disagree on size or step", a.Param)
		}

		if len(slots) == 0 {
			if a.Slot != "" || a.Data != nil {
				return fmt.Errorf("optim: import %q: %v keeps no accumulators, got slot %q", a.Param, s.rule.Kind(), a.Slot)
			}
			if ok {
				return fmt.Errorf("optim: import %q: duplicate record", a.Param)
			}
			continue
		}

		i := slices.Index(slots, a.Slot)
		if i < 0 {
			return fmt.Errorf("optim: import %q: unknown slot %q for %v", a.Param, a.Slot, s.rule.Kind())
		}
		if e.acc[i] != nil {
			return fmt.Errorf("optim: import %q: duplicate slot %q", a.Param, a.Slot)
		}
		if len(a.Data) != a.Size {
			return fmt.Errorf("optim: import %q/%q: %d values for size %d: %w", a.Param, a.Slot, len(a.Data), a.Size, ErrShapeMismatch)
		}
		e.acc[i] = slices.Clone(a.Data)
	}

	for name, e := range entries {
		for i, buf := range e.acc {
			if buf == nil {
				return fmt.Errorf("optim: import %q: missing slot %q", name, slots[i])
			}
		}
	}

	s.entries = entries
	return nil
}
