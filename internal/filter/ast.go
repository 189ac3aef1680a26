package filter

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrDivisionByZero is returned when a row makes a divisor zero. The row is
// dropped, the batch continues.
var ErrDivisionByZero = errors.New("division by zero")

// Env binds identifier names to the values of one row.
type Env map[string]float64

// Node is an expression tree node.
type Node interface {
	Eval(env Env) (Value, error)
	String() string
}

// Value is either a number or a boolean. Booleans count as 1 and 0 in
// arithmetic, numbers are true when non-zero.
type Value struct {
	Num    float64
	IsBool bool
}

func number(f float64) Value { return Value{Num: f} }

func boolean(b bool) Value {
	if b {
		return Value{Num: 1, IsBool: true}
	}
	return Value{Num: 0, IsBool: true}
}

func (v Value) Truthy() bool { return v.Num != 0 }

type Literal struct {
	Value float64
}

func (n *Literal) Eval(Env) (Value, error) { return number(n.Value), nil }

func (n *Literal) String() string { return strconv.FormatFloat(n.Value, 'f', -1, 64) }

type Ident struct {
	Name string
}

func (n *Ident) Eval(env Env) (Value, error) {
	v, ok := env[n.Name]
	if !ok {
		return Value{}, fmt.Errorf("unbound identifier %s", n.Name)
	}
	return number(v), nil
}

func (n *Ident) String() string { return n.Name }

type Unary struct {
	Op string
	X  Node
}

func (n *Unary) Eval(env Env) (Value, error) {
	x, err := n.X.Eval(env)
	if err != nil {
		return Value{}, err
	}
	if n.Op == "not" {
		return boolean(!x.Truthy()), nil
	}
	return number(-x.Num), nil
}

func (n *Unary) String() string {
	if n.Op == "not" {
		return "(not " + n.X.String() + ")"
	}
	return "(" + n.Op + n.X.String() + ")"
}

type BinOp struct {
	Op   string
	L, R Node
}

func (n *BinOp) Eval(env Env) (Value, error) {
	l, err := n.L.Eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.R.Eval(env)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case "+":
		return number(l.Num + r.Num), nil
	case "-":
		return number(l.Num - r.Num), nil
	case "*":
		return number(l.Num * r.Num), nil
	case "/":
		if r.Num == 0 {
			return Value{}, ErrDivisionByZero
		}
		return number(l.Num / r.Num), nil
	}
	return Value{}, fmt.Errorf("unknown operator %s", n.Op)
}

func (n *BinOp) String() string { return "(" + n.L.String() + " " + n.Op + " " + n.R.String() + ")" }

type Cmp struct {
	Op   string
	L, R Node
}

func (n *Cmp) Eval(env Env) (Value, error) {
	l, err := n.L.Eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := n.R.Eval(env)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case ">":
		return boolean(l.Num > r.Num), nil
	case ">=":
		return boolean(l.Num >= r.Num), nil
	case "<":
		return boolean(l.Num < r.Num), nil
	case "<=":
		return boolean(l.Num <= r.Num), nil
	case "==":
		return boolean(l.Num == r.Num), nil
	case "!=":
		return boolean(l.Num != r.Num), nil
	}
	return Value{}, fmt.Errorf("unknown comparison %s", n.Op)
}

func (n *Cmp) String() string { return "(" + n.L.String() + " " + n.Op + " " + n.R.String() + ")" }

// Logical short-circuits: the right side is not evaluated when the left
// side decides the result.
type Logical struct {
	Op   string
	L, R Node
}

func (n *Logical) Eval(env Env) (Value, error) {
	l, err := n.L.Eval(env)
	if err != nil {
		return Value{}, err
	}
	if n.Op == "and" && !l.Truthy() {
		return boolean(false), nil
	}
	if n.Op == "or" && l.Truthy() {
		return boolean(true), nil
	}
	r, err := n.R.Eval(env)
	if err != nil {
		return Value{}, err
	}
	return boolean(r.Truthy()), nil
}

func (n *Logical) String() string { return "(" + n.L.String() + " " + n.Op + " " + n.R.String() + ")" }
