package autodiff

// Backward runs the reverse pass from root.
//
// Algorithm:
//  1. Seed the adjoint of root with 1 (d root / d root)
//  2. Walk recorded nodes from the last one down to the first node of the
//     innermost scope
//  3. Each node adds adj · partial into the adjoints of its operands
//
// Operands are always created before the nodes that read them, so by the time
// a node's reverse step runs every reader has already contributed to its
// adjoint.
//
// Afterwards every Var of the scope exposes d root / d var through Adj.
// Adjoints accumulate: call ZeroAdjoints before running Backward again on the
// same graph.
//
// Backward panics if root is a constant or was not allocated by this tape
// (including nodes released by Reset or RecoverNested).
func (t *Tape) Backward(root Var) {
	if root.vi == nil {
		panic("backward: root is a constant (no operations recorded for it)")
	}
	if !t.varis.Owns(root.vi) {
		panic("backward: root was not recorded on this tape")
	}

	root.vi.adj = 1
	start := t.scopeStart()
	for i := len(t.ops) - 1; i >= start; i-- {
		t.ops[i].chain()
	}
}

// Grad runs Backward from root and returns the adjoints of wrt.
func (t *Tape) Grad(root Var, wrt []Var) []float64 {
	t.Backward(root)
	return Adjs(wrt)
}
