package pathrec

// Outcome describes how a single path was reconciled.
type Outcome struct {
	Original   string
	Rewritten  string // path after strategy rewrites, before normalization
	Key        string // canonical key to look up
	Strategy   string // name of the strategy that applied, empty if none
	Skip       bool   // path is a sentinel and must not be matched
	Unresolved bool   // a strategy applied but could only partially rewrite the path
}

// Reconciler turns analyzer-specific paths into canonical keys.
// It never fails: an unrecognized path simply yields its own normalized key.
type Reconciler struct {
	strategies []Strategy
}

// New returns a Reconciler trying strategies in the given order.
// Without strategies it only normalizes.
func New(strategies ...Strategy) *Reconciler {
	return &Reconciler{strategies: strategies}
}

// NewDefault returns a Reconciler equipped with the bytecode strategy.
func NewDefault(opts BytecodeOptions) *Reconciler {
	return New(NewBytecodeStrategy(opts))
}

// Reconcile derives the canonical key for p. The first applicable strategy wins.
func (r *Reconciler) Reconcile(p string) Outcome {
	out := Outcome{Original: p, Rewritten: p}
	if p == UnknownOrigin {
		out.Skip = true
		return out
	}

	for _, s := range r.strategies {
		if !s.Applies(p) {
			continue
		}
		out.Rewritten, out.Unresolved = s.Rewrite(p)
		out.Strategy = s.Name()
		break
	}

	out.Key = Key(out.Rewritten)
	return out
}
