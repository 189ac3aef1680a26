// Package filter evaluates saved row predicates against computed order rows.
package filter

import (
	"errors"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/rs/zerolog/log"
)

// Expr is a compiled filter expression.
type Expr struct {
	Source string
	root   Node
}

// Compile parses src. Syntax errors unwrap to domain.ErrExpressionSyntax.
func Compile(src string) (*Expr, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return &Expr{Source: src, root: root}, nil
}

// Validate reports whether src would compile.
func Validate(src string) error {
	_, err := Parse(src)
	return err
}

// RowEnv binds a row's limit, stock and order.
func RowEnv(row domain.OrderRow) Env {
	return Env{
		IdentLimit: float64(row.Limit),
		IdentStock: row.Stock,
		IdentOrder: float64(row.Order),
	}
}

// Match evaluates the expression for one row.
func (e *Expr) Match(row domain.OrderRow) (bool, error) {
	v, err := e.root.Eval(RowEnv(row))
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func (e *Expr) String() string { return e.root.String() }

// Set is a conjunction of expressions.
type Set []*Expr

// CompileAll compiles every non-blank source, failing on the first syntax
// error.
func CompileAll(sources []string) (Set, error) {
	set := make(Set, 0, len(sources))
	for _, src := range sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		expr, err := Compile(src)
		if err != nil {
			return nil, err
		}
		set = append(set, expr)
	}
	return set, nil
}

// Keep reports whether every expression holds for row. An evaluation error
// such as division by zero drops the row.
func (s Set) Keep(row domain.OrderRow) bool {
	for _, expr := range s {
		ok, err := expr.Match(row)
		if err != nil {
			if !errors.Is(err, ErrDivisionByZero) {
				log.Warn().Err(err).Str("product", row.Product).Str("expression", expr.Source).Msg("filter: evaluation failed")
			}
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// Apply returns the rows kept by every expression, preserving order.
func (s Set) Apply(rows []domain.OrderRow) []domain.OrderRow {
	if len(s) == 0 {
		return rows
	}
	kept := make([]domain.OrderRow, 0, len(rows))
	for _, row := range rows {
		if s.Keep(row) {
			kept = append(kept, row)
		}
	}
	return kept
}
