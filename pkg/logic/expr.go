// Package logic provides the boolean combinator shared by dialogue conditions and unlock
// requirements. Leaves are opaque to this package; callers supply the leaf evaluator.
package logic

// Op identifies the shape of an expression node.
type Op string

const (
	OpLeaf Op = "leaf"
	OpAll  Op = "all"
	OpAny  Op = "any"
)

// Expr is a finite, acyclic predicate tree over leaves of type L.
type Expr[L any] struct {
	Op    Op        `json:"op"`
	Leaf  L         `json:"leaf,omitempty"`
	Terms []Expr[L] `json:"terms,omitempty"`
}

// Leaf wraps a single leaf predicate.
func Leaf[L any](leaf L) Expr[L] {
	return Expr[L]{Op: OpLeaf, Leaf: leaf}
}

// All is true when every term is true. All() is true.
func All[L any](terms ...Expr[L]) Expr[L] {
	return Expr[L]{Op: OpAll, Terms: terms}
}

// Any is true when at least one term is true. Any() is false.
func Any[L any](terms ...Expr[L]) Expr[L] {
	return Expr[L]{Op: OpAny, Terms: terms}
}

// Eval evaluates the expression left to right, short-circuiting both combinators.
// The first leaf error aborts evaluation and is returned with a false result.
func Eval[L any](e Expr[L], leaf func(L) (bool, error)) (bool, error) {
	switch e.Op {
	case OpAll:
		for _, t := range e.Terms {
			ok, err := Eval(t, leaf)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case OpAny:
		for _, t := range e.Terms {
			ok, err := Eval(t, leaf)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	default:
		return leaf(e.Leaf)
	}
}

// Walk visits every leaf in declaration order.
func Walk[L any](e Expr[L], visit func(L)) {
	if e.Op == OpAll || e.Op == OpAny {
		for _, t := range e.Terms {
			Walk(t, visit)
		}
		return
	}
	visit(e.Leaf)
}
