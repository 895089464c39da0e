package symbolic

import (
	"sort"

	"github.com/pkg/errors"
)

// {{{ dependency collection

// DependencyMapper collects the leaves an expression depends on. With
// CompositeLeaves set, operator bindings are treated as opaque dependencies
// and not descended into; otherwise only variables and scalar parameters
// are reported. Results are deduplicated and ordered by their string
// rendering so callers see a stable list.
type DependencyMapper struct {
	CompositeLeaves bool
}

func (d DependencyMapper) Dependencies(e Expr) []Expr {
	seen := make(map[string]Expr)
	d.collect(e, seen)

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	deps := make([]Expr, len(keys))
	for i, k := range keys {
		deps[i] = seen[k]
	}
	return deps
}

func (d DependencyMapper) collect(e Expr, seen map[string]Expr) {
	switch n := e.(type) {
	case *Variable:
		seen[n.String()] = n
	case *ScalarParameter:
		seen[n.String()] = n
	case *OperatorBinding:
		if d.CompositeLeaves {
			seen[n.String()] = n
			return
		}
		d.collect(n.Field, seen)
	case *Sum:
		for _, ch := range n.Children {
			d.collect(ch, seen)
		}
	case *Product:
		for _, ch := range n.Children {
			d.collect(ch, seen)
		}
	case *Quotient:
		d.collect(n.Num, seen)
		d.collect(n.Den, seen)
	case *BoundaryPair:
		d.collect(n.Field, seen)
		d.collect(n.BField, seen)
	case *ExprArray:
		for _, ch := range n.Components {
			d.collect(ch, seen)
		}
	}
}

// }}}

// {{{ flop counting

// FlopCounter estimates the per-node arithmetic cost of the scalar parts of
// an expression. Operator applications are not charged here; their cost
// depends on the discretization and is accounted for at evaluation.
type FlopCounter struct{}

func (FlopCounter) Count(e Expr) (flops int) {
	var rec func(Expr) int
	rec = func(e Expr) int {
		switch n := e.(type) {
		case *Sum:
			total := len(n.Children) - 1
			for _, ch := range n.Children {
				total += rec(ch)
			}
			return total
		case *Product:
			total := len(n.Children) - 1
			for _, ch := range n.Children {
				total += rec(ch)
			}
			return total
		case *Quotient:
			return 1 + rec(n.Num) + rec(n.Den)
		case *OperatorBinding:
			return rec(n.Field)
		case *BoundaryPair:
			return rec(n.Field) + rec(n.BField)
		case *ExprArray:
			total := 0
			for _, ch := range n.Components {
				total += rec(ch)
			}
			return total
		}
		return 0
	}
	return rec(e)
}

// }}}

// {{{ walking and bound operator collection

// Walk visits every node of the tree in preorder.
func Walk(e Expr, visit func(Expr)) {
	visit(e)
	mapChildren(e, func(c Expr) Expr {
		Walk(c, visit)
		return c
	})
}

// CollectBoundOperators returns every operator binding in the tree whose
// operator satisfies pred, in preorder.
func CollectBoundOperators(e Expr, pred func(Operator) bool) []*OperatorBinding {
	var found []*OperatorBinding
	Walk(e, func(e Expr) {
		if binding, ok := e.(*OperatorBinding); ok && pred(binding.Op) {
			found = append(found, binding)
		}
	})
	return found
}

// }}}

// {{{ error checking

// ErrorChecker validates an expression against the spatial dimension of the
// mesh before any rewriting happens, so misuse surfaces as one clear error
// instead of a failure deep in evaluation.
type ErrorChecker struct {
	Dim int
}

func (c ErrorChecker) Check(e Expr) error {
	for _, binding := range CollectBoundOperators(e, func(op Operator) bool {
		return IsDiffBase(op) || IsRefDiffBase(op)
	}) {
		var axis int
		if IsDiffBase(binding.Op) {
			axis = DiffAxis(binding.Op)
		} else {
			switch op := binding.Op.(type) {
			case RefDiffOp:
				axis = op.RstAxis
			case RefStiffnessTOp:
				axis = op.RstAxis
			case RefQuadStiffnessTOp:
				axis = op.RstAxis
			}
		}
		if axis >= c.Dim {
			return errors.Errorf(
				"expression differentiates along non-existent axis %d in %dD",
				axis, c.Dim)
		}
	}
	return nil
}

// }}}
