package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/beetle/pkg/beetle"
	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/pose"
	"github.com/chazu/beetle/pkg/shape"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a v3.Vec so positions and angles can be passed between
// builtins, e.g. (point-to (vec3 1 2 0)).
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	order      []string
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
// A keyword followed by another keyword, or by nothing, is a bare flag.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if _, seen := result.kw[name]; !seen {
			result.order = append(result.order, name)
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toPoint2 extracts a cross-section point from a two-number list.
func toPoint2(s zygo.Sexp) (v2.Vec, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return v2.Vec{}, err
	}
	if len(items) != 2 {
		return v2.Vec{}, fmt.Errorf("expected a point of 2 numbers, got %d", len(items))
	}
	a, err := toFloat64(items[0])
	if err != nil {
		return v2.Vec{}, err
	}
	b, err := toFloat64(items[1])
	if err != nil {
		return v2.Vec{}, err
	}
	return v2.Vec{X: a, Y: b}, nil
}

// toTriple reads up to three components given as positional numbers, a
// single vec3, or :x :y :z keywords. Components that are not given stay
// nil so callers can leave them unchanged.
func toTriple(args []zygo.Sexp) ([3]*float64, error) {
	var out [3]*float64
	pa := parseArgs(args)

	if len(pa.positional) == 1 {
		if v, ok := pa.positional[0].(*sexpVec3); ok {
			x, y, z := v.vec.X, v.vec.Y, v.vec.Z
			out = [3]*float64{&x, &y, &z}
			pa.positional = nil
		}
	}
	if len(pa.positional) > 3 {
		return out, fmt.Errorf("expected at most 3 numbers, got %d", len(pa.positional))
	}
	for i, p := range pa.positional {
		f, err := toFloat64(p)
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i+1, err)
		}
		out[i] = &f
	}
	for i, name := range []string{"x", "y", "z"} {
		v, ok := pa.kw[name]
		if !ok {
			continue
		}
		f, err := toFloat64(v)
		if err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
		out[i] = &f
	}
	for name := range pa.kw {
		if name != "x" && name != "y" && name != "z" {
			return out, fmt.Errorf("unknown keyword :%s", name)
		}
	}
	return out, nil
}

func oneNumber(args []zygo.Sexp) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected 1 number, got %d arguments", len(args))
	}
	return toFloat64(args[0])
}

func noArgs(args []zygo.Sexp) error {
	if len(args) != 0 {
		return fmt.Errorf("takes no arguments, got %d", len(args))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtinFunc is a builtin body; registerBuiltins adds context checks and
// error prefixes around it.
type builtinFunc func(args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the beetle command surface into a zygomys
// environment. Every command runs against c and refuses to run once ctx
// is done.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens and kebab-case names are recognised.
func registerBuiltins(ctx context.Context, env *zygo.Zlisp, c *beetle.Controller) {
	add := func(name string, fn builtinFunc) {
		display := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			if err := ctx.Err(); err != nil {
				return zygo.SexpNull, err
			}
			v, err := fn(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
			}
			return v, nil
		})
	}

	// (vec3 1 2 3)
	add("vec3", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i := range xyz {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("component %d: %w", i+1, err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (clear)
	add("clear", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if err := noArgs(args); err != nil {
			return zygo.SexpNull, err
		}
		c.Clear()
		return zygo.SexpNull, nil
	})

	// (move 2) or (move :z 2) or (move :x 1 :y -1)
	add("move", func(args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 1 || (len(pa.positional) == 1 && len(pa.kw) > 0) {
			return zygo.SexpNull, fmt.Errorf("expected steps or :axis steps pairs")
		}
		if len(pa.positional) == 1 {
			steps, err := toFloat64(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, err
			}
			return zygo.SexpNull, c.Forward(steps)
		}
		if len(pa.order) == 0 {
			return zygo.SexpNull, fmt.Errorf("expected steps or :axis steps pairs")
		}
		for _, name := range pa.order {
			axis, err := pose.ParseAxis(name)
			if err != nil {
				return zygo.SexpNull, err
			}
			steps, err := toFloat64(pa.kw[name])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			if err := c.Move(axis, steps); err != nil {
				return zygo.SexpNull, err
			}
		}
		return zygo.SexpNull, nil
	})

	// (forward 10)
	add("forward", func(args []zygo.Sexp) (zygo.Sexp, error) {
		steps, err := oneNumber(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, c.Forward(steps)
	})

	// (go-to 1 2 3) or (go-to :z 5) or (go-to (vec3 1 2 3))
	add("go_to", func(args []zygo.Sexp) (zygo.Sexp, error) {
		t, err := toTriple(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if t[0] == nil && t[1] == nil && t[2] == nil {
			return zygo.SexpNull, fmt.Errorf("requires at least one coordinate")
		}
		return zygo.SexpNull, c.Goto(t[0], t[1], t[2])
	})

	// (point-to 1 2 3) or (point-to (vec3 1 2 3))
	add("point_to", func(args []zygo.Sexp) (zygo.Sexp, error) {
		t, err := toTriple(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if t[0] == nil || t[1] == nil || t[2] == nil {
			return zygo.SexpNull, fmt.Errorf("requires a full x y z target")
		}
		return zygo.SexpNull, c.PointTo(v3.Vec{X: *t[0], Y: *t[1], Z: *t[2]})
	})

	// (rotate :z 90) or (rotate 0 0 90)
	add("rotate", func(args []zygo.Sexp) (zygo.Sexp, error) {
		t, err := toTriple(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, c.Rotate(t[0], t[1], t[2])
	})

	// (set-rotation :z 0) or (set-rotation 0 0 0)
	add("set_rotation", func(args []zygo.Sexp) (zygo.Sexp, error) {
		t, err := toTriple(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, c.SetRotation(t[0], t[1], t[2])
	})

	// (set-color "#ff8800") or (set-color 255 136 0)
	add("set_color", func(args []zygo.Sexp) (zygo.Sexp, error) {
		var col colorful.Color
		switch len(args) {
		case 1:
			s, err := toKeywordString(args[0])
			if err != nil {
				return zygo.SexpNull, err
			}
			if col, err = material.ParseColor(s); err != nil {
				return zygo.SexpNull, err
			}
		case 3:
			var rgb [3]float64
			for i := range rgb {
				f, err := toFloat64(args[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("channel %d: %w", i+1, err)
				}
				rgb[i] = f
			}
			col = material.RGB(rgb[0], rgb[1], rgb[2])
		default:
			return zygo.SexpNull, fmt.Errorf("expected a hex string or 3 channels, got %d arguments", len(args))
		}
		return zygo.SexpNull, c.SetColor(col)
	})

	// (set-base "circle") or (set-base :square) or
	// (set-base (list (list 0 0) (list 1 0) (list 0 1) (list 0 0)))
	add("set_base", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("expected a shape name or a list of points, got %d arguments", len(args))
		}
		if _, ok := args[0].(*zygo.SexpStr); ok {
			name, _ := toKeywordString(args[0])
			kind, err := shape.ParseKind(name)
			if err != nil {
				return zygo.SexpNull, err
			}
			return zygo.SexpNull, c.SetExtrusionBase(kind, nil)
		}
		items, err := sexpListToSlice(args[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		pts := make([]v2.Vec, 0, len(items))
		for i, item := range items {
			p, err := toPoint2(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("point %d: %w", i+1, err)
			}
			pts = append(pts, p)
		}
		return zygo.SexpNull, c.SetExtrusionBase(shape.KindCustom, pts)
	})

	// (set-scale 2)
	add("set_scale", func(args []zygo.Sexp) (zygo.Sexp, error) {
		s, err := oneNumber(args)
		if err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, c.SetScale(s)
	})

	// (start-extruding)
	add("start_extruding", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if err := noArgs(args); err != nil {
			return zygo.SexpNull, err
		}
		return zygo.SexpNull, c.StartExtruding()
	})

	// (stop-extruding)
	add("stop_extruding", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if err := noArgs(args); err != nil {
			return zygo.SexpNull, err
		}
		c.StopExtruding()
		return zygo.SexpNull, nil
	})

	// (position) returns a vec3
	add("position", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if err := noArgs(args); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: c.Position()}, nil
	})

	// (rotation) returns a vec3 of degrees
	add("rotation", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if err := noArgs(args); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: c.Rotation()}, nil
	})

	// (scale)
	add("scale", func(args []zygo.Sexp) (zygo.Sexp, error) {
		if err := noArgs(args); err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpFloat{Val: c.Scale()}, nil
	})
}
