package engine

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/chazu/beetle/pkg/beetle"
	"github.com/chazu/beetle/pkg/shape"
	"github.com/chazu/beetle/pkg/trail"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Preprocessing tests
// ---------------------------------------------------------------------------

func TestPreprocessKeywords(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "simple keyword",
			input:  `(rotate :z 90)`,
			expect: `(rotate "__kw_z" 90)`,
		},
		{
			name:   "multiple keywords",
			input:  `(go-to :x 1 :y 2)`,
			expect: `(go_to "__kw_x" 1 "__kw_y" 2)`,
		},
		{
			name:   "keyword in string preserved",
			input:  `"thing with :keyword inside"`,
			expect: `"thing with :keyword inside"`,
		},
		{
			name:   "assignment operator preserved",
			input:  `(def x := 10)`,
			expect: `(def x := 10)`,
		},
		{
			name:   "kebab-case identifier",
			input:  `(start-extruding)`,
			expect: `(start_extruding)`,
		},
		{
			name:   "minus operator preserved",
			input:  `(- 10 5)`,
			expect: `(- 10 5)`,
		},
		{
			name:   "negative literal preserved",
			input:  `(move :y -2)`,
			expect: `(move "__kw_y" -2)`,
		},
		{
			name:   "comment converted to // style",
			input:  `;; comment with :keyword`,
			expect: `// comment with :keyword`,
		},
		{
			name:   "single semicolon comment",
			input:  `; simple comment`,
			expect: `// simple comment`,
		},
		{
			name:   "hex colour string preserved",
			input:  `(set-color "#ff-880")`,
			expect: `(set_color "#ff-880")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preprocessSource(tt.input)
			if got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestParseArgsFlagsAndOrder(t *testing.T) {
	args := []zygo.Sexp{
		&zygo.SexpStr{S: kwPrefix + "z"}, &zygo.SexpInt{Val: 2},
		&zygo.SexpStr{S: kwPrefix + "flag"},
		&zygo.SexpStr{S: kwPrefix + "x"}, &zygo.SexpInt{Val: 1},
		&zygo.SexpInt{Val: 7},
	}
	pa := parseArgs(args)
	if got := strings.Join(pa.order, ","); got != "z,flag,x" {
		t.Errorf("order = %s, want z,flag,x", got)
	}
	if pa.kw["flag"] != zygo.SexpNull {
		t.Errorf("flag followed by a keyword should be null, got %v", pa.kw["flag"])
	}
	if len(pa.positional) != 1 {
		t.Errorf("expected 1 positional argument, got %d", len(pa.positional))
	}
}

// ---------------------------------------------------------------------------
// Builtin tests
// ---------------------------------------------------------------------------

// run evaluates source on a fresh stage and fails on any error.
func run(t *testing.T, source string) (*beetle.Controller, *Result) {
	t.Helper()
	stage := newStage(t)
	res, evalErrs, err := NewEngine().Evaluate(context.Background(), stage, source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	return stage, res
}

// runErr evaluates source and returns the first eval error.
func runErr(t *testing.T, source string) (*beetle.Controller, EvalError) {
	t.Helper()
	stage := newStage(t)
	_, evalErrs, err := NewEngine().Evaluate(context.Background(), stage, source)
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected an eval error")
	}
	return stage, evalErrs[0]
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestCircleTube(t *testing.T) {
	stage, res := run(t, `
(start-extruding)
(forward 1)
(forward 1)
(stop-extruding)
`)
	if res.Stats.Segments != 2 {
		t.Fatalf("expected 2 segments, got %d", res.Stats.Segments)
	}
	box, err := stage.BoundingBox()
	if err != nil {
		t.Fatalf("BoundingBox: %v", err)
	}
	if !near(box.Max.X-box.Min.X, 2) {
		t.Errorf("length = %f, want 2", box.Max.X-box.Min.X)
	}
	if !near(box.Max.Y, 0.5) || !near(box.Max.Z, 0.5) {
		t.Errorf("radius = (%f, %f), want 0.5", box.Max.Y, box.Max.Z)
	}
	if stage.Extruding() {
		t.Error("stop-extruding should stop")
	}
}

func TestSquareVolume(t *testing.T) {
	_, res := run(t, `
(set-base "square")
(start-extruding)
(forward 3)
`)
	if !near(res.Stats.Volume, 3) {
		t.Errorf("volume = %f, want 3", res.Stats.Volume)
	}
}

func TestMoveAlongAxes(t *testing.T) {
	stage, _ := run(t, `
(move 2)
(move :y 1 :z -1)
`)
	if got := stage.Position(); got != (v3.Vec{X: 2, Y: 1, Z: -1}) {
		t.Errorf("position = %v, want (2, 1, -1)", got)
	}
}

func TestGoToForms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   v3.Vec
	}{
		{"positional", `(go-to 1 2 3)`, v3.Vec{X: 1, Y: 2, Z: 3}},
		{"keyword", `(go-to 1 2 3) (go-to :z 5)`, v3.Vec{X: 1, Y: 2, Z: 5}},
		{"vec3", `(go-to (vec3 4 5 6))`, v3.Vec{X: 4, Y: 5, Z: 6}},
		{"partial positional", `(go-to 7)`, v3.Vec{X: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, _ := run(t, tt.source)
			if got := stage.Position(); got != tt.want {
				t.Errorf("position = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRotateAndPointTo(t *testing.T) {
	stage, _ := run(t, `
(rotate :z 90)
(forward 2)
`)
	p := stage.Position()
	if !near(p.X, 0) || !near(p.Y, 2) {
		t.Errorf("after a left turn position = %v, want (0, 2, 0)", p)
	}

	stage, _ = run(t, `
(point-to 0 0 5)
(forward 1)
`)
	p = stage.Position()
	if !near(p.Z, 1) || !near(p.X, 0) {
		t.Errorf("after pointing up position = %v, want (0, 0, 1)", p)
	}

	stage, _ = run(t, `
(rotate 0 0 45)
(set-rotation :z 10)
`)
	if r := stage.Rotation(); !near(r.Z, 10) {
		t.Errorf("yaw = %f, want 10", r.Z)
	}
}

func TestSetColor(t *testing.T) {
	stage, _ := run(t, `(set-color "#ff0000")`)
	if c := stage.Beetle().Color(); !near(c.R, 1) || !near(c.G, 0) {
		t.Errorf("colour = %v, want red", c)
	}

	stage, _ = run(t, `(set-color 0 0 255)`)
	if c := stage.Beetle().Color(); !near(c.B, 1) || !near(c.R, 0) {
		t.Errorf("colour = %v, want blue", c)
	}

	_, e := runErr(t, `(set-color "not a colour")`)
	if !strings.Contains(e.Message, "set-color") {
		t.Errorf("error should name the builtin, got %q", e.Message)
	}
}

func TestSetBase(t *testing.T) {
	stage, _ := run(t, `(set-base :triangle)`)
	if k := stage.Beetle().Section().Kind(); k != shape.KindTriangle {
		t.Errorf("kind = %s, want triangle", k)
	}

	stage, res := run(t, `
(set-base (list (list 0 0) (list 1 0) (list 1 1) (list 0 0)))
(start-extruding)
(forward 2)
`)
	if k := stage.Beetle().Section().Kind(); k != shape.KindCustom {
		t.Errorf("kind = %s, want custom", k)
	}
	if !near(res.Stats.Volume, 1) {
		t.Errorf("volume = %f, want 1", res.Stats.Volume)
	}

	stage, e := runErr(t, `(set-base "blob")`)
	if stage.Beetle().Section().Kind() != shape.KindCircle {
		t.Error("a rejected shape must keep the previous section")
	}
	if e.Message == "" {
		t.Error("expected an error message")
	}

	runErr(t, `(set-base (list))`)
	runErr(t, `(set-base (list (list 1 2 3)))`)
}

func TestSetScale(t *testing.T) {
	stage, res := run(t, `
(set-base "square")
(set-scale 2)
(start-extruding)
(forward 1)
(scale)
`)
	if stage.Scale() != 2 {
		t.Errorf("scale = %f, want 2", stage.Scale())
	}
	if !strings.HasPrefix(res.Value, "2") {
		t.Errorf("(scale) = %q, want 2", res.Value)
	}
	if !near(res.Stats.Volume, 8) {
		t.Errorf("volume = %f, want 8", res.Stats.Volume)
	}

	_, e := runErr(t, `(set-scale 0)`)
	if !strings.Contains(e.Message, "scale") {
		t.Errorf("unexpected message %q", e.Message)
	}
}

func TestClearBuiltin(t *testing.T) {
	stage, res := run(t, `
(start-extruding)
(forward 1)
(clear)
`)
	if res.Stats.Segments != 0 {
		t.Errorf("expected no segments after clear, got %d", res.Stats.Segments)
	}
	if _, err := stage.BoundingBox(); err != trail.ErrEmpty {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if !stage.Extruding() {
		t.Error("clear should not stop extruding")
	}
}

func TestQueries(t *testing.T) {
	_, res := run(t, `
(go-to 1 2 3)
(position)
`)
	if res.Value != "(vec3 1 2 3)" {
		t.Errorf("(position) = %q", res.Value)
	}

	stage, res := run(t, `
(rotate :z 30)
(rotation)
`)
	if !strings.HasPrefix(res.Value, "(vec3 ") {
		t.Errorf("(rotation) = %q", res.Value)
	}
	if r := stage.Rotation(); !near(r.Z, 30) {
		t.Errorf("yaw = %f, want 30", r.Z)
	}
}

func TestVariablesAndLoops(t *testing.T) {
	_, res := run(t, `
(def step 0.5)
(defn step-twice [] (forward step) (forward step))
(start-extruding)
(step-twice)
(step-twice)
`)
	if res.Stats.Segments != 4 {
		t.Errorf("expected 4 segments, got %d", res.Stats.Segments)
	}
}

func TestBuiltinArgumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"forward without steps", `(forward)`, "forward"},
		{"forward with a string", `(forward "far")`, "expected number"},
		{"move with unknown axis", `(move :w 1)`, "axis"},
		{"go-to with nothing", `(go-to)`, "coordinate"},
		{"point-to partial", `(point-to 1 2)`, "x y z"},
		{"rotate unknown keyword", `(rotate :roll 10)`, "unknown keyword"},
		{"vec3 arity", `(vec3 1 2)`, "3 arguments"},
		{"clear with args", `(clear 1)`, "no arguments"},
		{"too many numbers", `(go-to 1 2 3 4)`, "at most 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, e := runErr(t, tt.source)
			if !strings.Contains(e.Message, tt.want) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.want)
			}
		})
	}
}

func TestFailedCommandKeepsEarlierTrail(t *testing.T) {
	stage, _ := runErr(t, `
(set-base "square")
(start-extruding)
(forward 1)
(set-scale -1)
(forward 1)
`)
	if n := len(stage.Segments()); n != 1 {
		t.Errorf("expected the segment laid before the error, got %d", n)
	}
	if stage.Scale() != 1 {
		t.Errorf("scale = %f, want 1", stage.Scale())
	}
}

func TestArithmeticStillWorks(t *testing.T) {
	_, res := run(t, `(* (+ 1 2) 4)`)
	if res.Value != "12" {
		t.Errorf("value = %q, want 12", res.Value)
	}
}
