// Package formula compiles user-supplied arithmetic expressions into material
// property overrides and volumetric heat sources.
//
// Property formulas see the temperature as T (K). Source formulas see r and z
// (m) and the simulated time t (s). Both may reference named parameters given
// at compile time and call exp, log, sqrt, pow, abs, min, max and
// gauss(x, mu, sigma).
package formula

import (
	"fmt"
	"math"
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/san-kum/furnacesim/internal/material"
)

// Functions available to every formula.
var Functions = map[string]govaluate.ExpressionFunction{
	"exp":  unary("exp", math.Exp),
	"log":  unary("log", math.Log),
	"sqrt": unary("sqrt", math.Sqrt),
	"abs":  unary("abs", math.Abs),
	"pow": func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs("pow", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Pow(x[0], x[1]), nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs("min", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Min(x[0], x[1]), nil
	},
	"max": func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs("max", 2, args)
		if err != nil {
			return nil, err
		}
		return math.Max(x[0], x[1]), nil
	},
	"gauss": func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs("gauss", 3, args)
		if err != nil {
			return nil, err
		}
		d := (x[0] - x[1]) / x[2]
		return math.Exp(-d * d / 2), nil
	},
}

func unary(name string, fn func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		x, err := floatArgs(name, 1, args)
		if err != nil {
			return nil, err
		}
		return fn(x[0]), nil
	}
}

func floatArgs(name string, n int, args []interface{}) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("formula: got %d arguments for function '%s', but needs %d", len(args), name, n)
	}
	out := make([]float64, n)
	for k, a := range args {
		v, ok := a.(float64)
		if !ok {
			return nil, fmt.Errorf("formula: argument %d of '%s' is %T, not a number", k+1, name, a)
		}
		out[k] = v
	}
	return out, nil
}

// Expression is a compiled formula. It is read-only after Compile and may be
// evaluated from several goroutines.
type Expression struct {
	source string
	expr   *govaluate.EvaluableExpression
	params map[string]interface{}
}

// Compile parses source and checks that every variable it references is
// either one of vars or a key of params.
func Compile(source string, vars []string, params map[string]float64) (*Expression, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(source, Functions)
	if err != nil {
		return nil, fmt.Errorf("formula: parsing %q: %v", source, err)
	}

	known := make(map[string]bool, len(vars)+len(params))
	for _, v := range vars {
		known[v] = true
	}
	p := make(map[string]interface{}, len(params))
	for k, v := range params {
		known[k] = true
		p[k] = v
	}
	for _, v := range expr.Vars() {
		if !known[v] {
			names := make([]string, 0, len(known))
			for k := range known {
				names = append(names, k)
			}
			sort.Strings(names)
			return nil, fmt.Errorf("formula: unknown variable %q in %q (known: %v)", v, source, names)
		}
	}
	return &Expression{source: source, expr: expr, params: p}, nil
}

func (e *Expression) String() string { return e.source }

// Eval evaluates the formula with the given variable values. Non-numeric and
// non-finite results are errors.
func (e *Expression) Eval(vars map[string]float64) (float64, error) {
	in := make(map[string]interface{}, len(e.params)+len(vars))
	for k, v := range e.params {
		in[k] = v
	}
	for k, v := range vars {
		in[k] = v
	}
	out, err := e.expr.Evaluate(in)
	if err != nil {
		return 0, fmt.Errorf("formula: evaluating %q: %v", e.source, err)
	}
	v, ok := out.(float64)
	if !ok {
		return 0, fmt.Errorf("formula: %q returned %T, not a number", e.source, out)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("formula: %q returned non-finite value %v", e.source, v)
	}
	return v, nil
}

// Overrides replaces material property curves with formulas of T.
type Overrides struct {
	exprs map[material.Property]*Expression
}

// NewOverrides compiles one formula per property name.
func NewOverrides(formulas map[string]string, params map[string]float64) (*Overrides, error) {
	o := &Overrides{exprs: make(map[material.Property]*Expression, len(formulas))}
	for name, src := range formulas {
		p := material.Property(name)
		if !isProperty(p) {
			return nil, fmt.Errorf("formula: unknown property %q (want one of %v)", name, material.Properties)
		}
		e, err := Compile(src, []string{"T"}, params)
		if err != nil {
			return nil, fmt.Errorf("formula: property %s: %w", name, err)
		}
		o.exprs[p] = e
	}
	return o, nil
}

func isProperty(p material.Property) bool {
	for _, q := range material.Properties {
		if p == q {
			return true
		}
	}
	return false
}

// Property implements material.Override.
func (o *Overrides) Property(name material.Property, t float64) (float64, bool, error) {
	e, ok := o.exprs[name]
	if !ok {
		return 0, false, nil
	}
	v, err := e.Eval(map[string]float64{"T": t})
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// Formula returns the source of the override for name, if any.
func (o *Overrides) Formula(name material.Property) (string, bool) {
	e, ok := o.exprs[name]
	if !ok {
		return "", false
	}
	return e.String(), true
}

func (o *Overrides) Len() int { return len(o.exprs) }

// Source is a volumetric heat source formula of r, z and t in W/m^3.
type Source struct {
	*Expression
}

func NewSource(source string, params map[string]float64) (*Source, error) {
	e, err := Compile(source, []string{"r", "z", "t"}, params)
	if err != nil {
		return nil, err
	}
	return &Source{Expression: e}, nil
}

// Evaluate implements heatsource.SourceExpression.
func (s *Source) Evaluate(r, z, t float64) (float64, error) {
	return s.Eval(map[string]float64{"r": r, "z": z, "t": t})
}
