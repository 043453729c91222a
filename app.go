package main

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/chazu/beetle/pkg/beetle"
	"github.com/chazu/beetle/pkg/config"
	"github.com/chazu/beetle/pkg/engine"
	"github.com/chazu/beetle/pkg/export"
	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/kernel/manifold"
	"github.com/chazu/beetle/pkg/kernel/sdfx"
	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/trail"
	"go.uber.org/zap"
)

// ErrNotEvaluated is returned by exports requested before any evaluation.
var ErrNotEvaluated = errors.New("nothing evaluated yet")

// App runs beetle scripts on a fresh stage per evaluation and keeps the
// last stage around for export.
type App struct {
	mu     sync.Mutex
	cfg    *config.Config
	log    *zap.Logger
	engine *engine.Engine
	kernel kernel.Kernel
	stage  *beetle.Controller
}

// MeshData is the JSON-serializable form of one material region of a trail
// segment. Regions of the same segment share their vertex arrays.
type MeshData struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	Indices   []uint32  `json:"indices"`
	SegmentID string    `json:"segmentId"`
	Color     string    `json:"color"`
}

// LineData is a JSON-serializable trail line left by a point section.
type LineData struct {
	From  [3]float32 `json:"from"`
	To    [3]float32 `json:"to"`
	Color string     `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one script evaluation.
type EvalResult struct {
	Meshes []MeshData      `json:"meshes"`
	Lines  []LineData      `json:"lines"`
	Errors []EvalErrorData `json:"errors"`
	Value  string          `json:"value"`
	Stats  trail.Stats     `json:"stats"`
}

// NewApp creates an App from cfg. The sdfx kernel models the beetle body.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &App{
		cfg:    cfg,
		log:    log,
		engine: engine.NewEngine(engine.WithTimeout(cfg.Engine.Timeout), engine.WithLogger(log.Named("engine"))),
		kernel: newKernel(cfg, log),
	}, nil
}

// newKernel picks the body kernel. A manifold request falls back to sdfx
// when the binary was built without it.
func newKernel(cfg *config.Config, log *zap.Logger) kernel.Kernel {
	if cfg.Body.Kernel == "manifold" {
		k, err := manifold.New(cfg.Extrusion.CircleSides)
		if err == nil {
			return k
		}
		log.Warn("falling back to the sdfx kernel", zap.Error(err))
	}
	return sdfx.New(sdfx.WithMeshCells(cfg.Body.MeshCells))
}

// newStage replaces the current stage with an empty one.
func (a *App) newStage() (*beetle.Controller, error) {
	stage, err := beetle.NewController(a.cfg,
		beetle.WithLogger(a.log.Named("beetle")),
		beetle.WithKernel(a.kernel))
	if err != nil {
		return nil, err
	}
	if a.stage != nil {
		a.stage.Close()
	}
	a.stage = stage
	return stage, nil
}

// Stage returns the stage of the last evaluation, or nil before the first.
func (a *App) Stage() *beetle.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stage
}

// Evaluate runs source on a fresh stage and returns its trails + errors.
// Trails laid down before a script error are still returned.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := EvalResult{
		Meshes: []MeshData{},
		Lines:  []LineData{},
		Errors: []EvalErrorData{},
	}

	stage, err := a.newStage()
	if err != nil {
		a.log.Error("creating stage", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	res, evalErrs, err := a.engine.Evaluate(ctx, stage, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		a.log.Error("evaluation failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	for _, e := range evalErrs {
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    e.Line,
			Col:     e.Col,
			Message: e.Message,
		})
	}
	if res != nil {
		result.Value = res.Value
	}

	for _, seg := range stage.Segments() {
		result.Meshes = append(result.Meshes, meshData(seg)...)
		for _, l := range seg.Lines {
			result.Lines = append(result.Lines, LineData{
				From:  vec32(l.From.X, l.From.Y, l.From.Z),
				To:    vec32(l.To.X, l.To.Y, l.To.Z),
				Color: colorOf(l.Material),
			})
		}
	}
	result.Stats = stage.Stats()
	return result
}

// meshData splits a segment into one MeshData per material region.
func meshData(seg *trail.Segment) []MeshData {
	if seg.Mesh.IsEmpty() {
		return nil
	}
	out := make([]MeshData, 0, len(seg.Regions))
	for _, r := range seg.Regions {
		out = append(out, MeshData{
			Vertices:  seg.Mesh.Vertices,
			Normals:   seg.Mesh.Normals,
			Indices:   seg.Mesh.Indices[r.Start*3 : (r.Start+r.Count)*3],
			SegmentID: seg.ID.String(),
			Color:     colorOf(r.Material),
		})
	}
	return out
}

func colorOf(m *material.Material) string {
	if m == nil {
		return ""
	}
	return m.Key.String()
}

func vec32(x, y, z float64) [3]float32 {
	return [3]float32{float32(x), float32(y), float32(z)}
}

// ExportSTL writes the last evaluation's trails to w.
func (a *App) ExportSTL(w io.Writer, format export.Format) (int, error) {
	stage := a.Stage()
	if stage == nil {
		return 0, ErrNotEvaluated
	}
	return stage.ExportSTL(w, format)
}

// SaveOutline writes the last evaluation's cross-section outline to a
// DXF file at path.
func (a *App) SaveOutline(path string) error {
	stage := a.Stage()
	if stage == nil {
		return ErrNotEvaluated
	}
	return stage.SaveOutline(path)
}

// Close releases the current stage.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stage != nil {
		a.stage.Close()
	}
}
