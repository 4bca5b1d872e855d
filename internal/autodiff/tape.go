package autodiff

import (
	"github.com/born-ml/adjoint/internal/arena"
)

// Tape records the computation graph of one forward pass and replays it in
// reverse.
//
// Every node created through a Tape lives in the Tape's arena. Nodes that
// propagate their own adjoint are appended to the tape in creation order;
// container elements whose adjoint is propagated by their owning node are
// allocated on the arena only (see NewNoChain).
//
// Usage:
//
//	tape := NewTape()
//	x := tape.NewVar(3)
//	y := tape.NewVar(2)
//	f := tape.Mul(tape.Square(x), y) // f = x² · y
//	tape.Backward(f)
//	x.Adj() // 12
//	y.Adj() // 9
//	tape.Reset()
//
// A Tape is not safe for concurrent use; give each goroutine its own.
type Tape struct {
	arena *arena.Arena
	varis *arena.Pool[Vari]
	refs  *arena.Pool[*Vari]

	ops    []*Vari       // nodes with a reverse step, in creation order
	nested []nestedScope // innermost last
}

// nestedScope is the state to restore when a nested scope ends.
type nestedScope struct {
	mark arena.Mark
	ops  int
}

// Option configures a Tape.
type Option func(*options)

type options struct {
	arena    arena.Config
	capacity int
}

// WithArenaConfig sets the configuration of the tape's arena.
func WithArenaConfig(cfg arena.Config) Option {
	return func(o *options) { o.arena = cfg }
}

// WithCapacity preallocates room for n recorded operations.
func WithCapacity(n int) Option {
	if n < 0 {
		panic("autodiff: negative tape capacity")
	}
	return func(o *options) { o.capacity = n }
}

// NewTape creates an empty tape with its own arena.
func NewTape(opts ...Option) *Tape {
	o := options{
		arena:    arena.DefaultConfig(),
		capacity: 64, // Pre-allocate for common case
	}
	for _, opt := range opts {
		opt(&o)
	}

	a := arena.New(o.arena)
	return &Tape{
		arena: a,
		varis: arena.Attach[Vari](a),
		refs:  arena.Attach[*Vari](a),
		ops:   make([]*Vari, 0, o.capacity),
	}
}

// Arena returns the arena backing this tape, e.g. to register auxiliary
// objects for cleanup.
func (t *Tape) Arena() *arena.Arena {
	return t.arena
}

// NumOps returns the number of recorded nodes with a reverse step.
func (t *Tape) NumOps() int {
	return len(t.ops)
}

// At returns the i-th recorded node in creation order.
func (t *Tape) At(i int) *Vari {
	return t.ops[i]
}

// NumVaris returns the number of arena node slots in use, recorded or not.
func (t *Tape) NumVaris() int {
	return t.varis.Len()
}

// Owns reports whether v was allocated by this tape and not yet released.
func (t *Tape) Owns(v Var) bool {
	return t.varis.Owns(v.vi)
}

// NewVar records an independent variable.
func (t *Tape) NewVar(x float64) Var {
	vi := t.alloc(x)
	t.push(vi)
	return Var{vi: vi}
}

// NewVars records one independent variable per value.
func (t *Tape) NewVars(xs []float64) []Var {
	out := make([]Var, len(xs))
	for i, x := range xs {
		out[i] = t.NewVar(x)
	}
	return out
}

// NewNode records a node with value val whose reverse step adds
// adj · partials[i] to operands[i]. Constant operands are dropped; if all
// operands are constant the result is a constant and nothing is allocated.
// Operands and partials are copied into the arena.
func (t *Tape) NewNode(val float64, operands []Var, partials []float64) Var {
	if len(operands) != len(partials) {
		panic("autodiff: operands and partials length mismatch")
	}
	n := 0
	for _, op := range operands {
		if op.vi != nil {
			n++
		}
	}
	if n == 0 {
		return Constant(val)
	}

	vi := t.alloc(val)
	vi.operands = t.refs.AllocSlice(n)
	vi.partials = t.arena.Floats(n)
	k := 0
	for i, op := range operands {
		if op.vi == nil {
			continue
		}
		vi.operands[k] = op.vi
		vi.partials[k] = partials[i]
		k++
	}
	t.push(vi)
	return Var{vi: vi}
}

// NewNodeRefs records a node over operands that were already collected into
// arena memory (see AllocRefs and AllocFloats). The slices are kept, not
// copied.
func (t *Tape) NewNodeRefs(val float64, operands []*Vari, partials []float64) Var {
	if len(operands) != len(partials) {
		panic("autodiff: operands and partials length mismatch")
	}
	vi := t.alloc(val)
	vi.operands = operands
	vi.partials = partials
	t.push(vi)
	return Var{vi: vi}
}

// NewCustom records a node with value val whose reverse step is c.
func (t *Tape) NewCustom(val float64, c Chainer) Var {
	vi := t.alloc(val)
	vi.chainer = c
	t.push(vi)
	return Var{vi: vi}
}

// Record appends a valueless node whose reverse step is c. It is used by
// container operations whose outputs were created with NewNoChain; it must be
// called after the outputs exist and before anything reads them.
func (t *Tape) Record(c Chainer) {
	vi := t.alloc(0)
	vi.chainer = c
	t.push(vi)
}

// NewNoChain allocates a node that is not recorded on the tape. Its adjoint is
// propagated by the container node that owns it.
func (t *Tape) NewNoChain(val float64) Var {
	return Var{vi: t.alloc(val)}
}

// AllocRefs returns n zeroed node references from the arena.
func (t *Tape) AllocRefs(n int) []*Vari {
	return t.refs.AllocSlice(n)
}

// AllocFloats returns n zeroed float64 slots from the arena.
func (t *Tape) AllocFloats(n int) []float64 {
	return t.arena.Floats(n)
}

// StartNested opens a nested scope. Backward only replays nodes recorded
// inside the innermost scope, and RecoverNested releases them.
func (t *Tape) StartNested() {
	t.nested = append(t.nested, nestedScope{
		mark: t.arena.Mark(),
		ops:  len(t.ops),
	})
}

// IsNested reports whether a nested scope is open.
func (t *Tape) IsNested() bool {
	return len(t.nested) > 0
}

// RecoverNested releases everything recorded since the matching StartNested.
func (t *Tape) RecoverNested() {
	if len(t.nested) == 0 {
		panic("autodiff: RecoverNested called with no nested scope")
	}
	scope := t.nested[len(t.nested)-1]
	t.nested = t.nested[:len(t.nested)-1]

	clear(t.ops[scope.ops:])
	t.ops = t.ops[:scope.ops]
	t.arena.Rewind(scope.mark)
}

// Reset releases every node, runs registered cleanups and empties the tape.
// All Vars obtained from this tape become invalid.
func (t *Tape) Reset() {
	if len(t.nested) > 0 {
		panic("autodiff: Reset called inside a nested scope")
	}
	clear(t.ops)
	t.ops = t.ops[:0]
	t.arena.Reset()
}

// ZeroAdjoints sets the adjoint of every node of the innermost scope (the
// whole tape when not nested) back to zero, so Backward can run again.
func (t *Tape) ZeroAdjoints() {
	zero := func(v *Vari) { v.adj = 0 }
	if len(t.nested) == 0 {
		t.varis.Each(zero)
		return
	}
	t.varis.EachSince(t.nested[len(t.nested)-1].mark, zero)
}

func (t *Tape) alloc(val float64) *Vari {
	vi := t.varis.Alloc()
	vi.val = val
	return vi
}

func (t *Tape) push(vi *Vari) {
	t.ops = append(t.ops, vi)
}

// scopeStart is the index of the first node of the innermost scope.
func (t *Tape) scopeStart() int {
	if len(t.nested) == 0 {
		return 0
	}
	return t.nested[len(t.nested)-1].ops
}
