// Package export writes trail geometry to STL for slicers and other
// mesh tools. Every segment mesh is validated before it is handed off.
package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chazu/beetle/pkg/kernel"
	"github.com/chazu/beetle/pkg/trail"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	"go.uber.org/zap"
)

// DefaultSolidName names the solid in ASCII output.
const DefaultSolidName = "beetle"

// ErrInvalidMesh is returned when a segment fails validation.
var ErrInvalidMesh = errors.New("export: invalid mesh")

// Format is an STL encoding.
type Format int

const (
	FormatBinary Format = iota
	FormatASCII
)

func (f Format) String() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatASCII:
		return "ascii"
	default:
		return "unknown"
	}
}

// ParseFormat converts "binary" or "ascii" into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bin", "":
		return FormatBinary, nil
	case "ascii", "text":
		return FormatASCII, nil
	}
	return 0, fmt.Errorf("export: unknown STL format %q", s)
}

// Source supplies the segments to export.
type Source interface {
	Segments() []*trail.Segment
}

type options struct {
	log  *zap.Logger
	name string
}

// Option configures an export.
type Option func(*options)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSolidName sets the ASCII solid name.
func WithSolidName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop(), name: DefaultSolidName}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Triangles collects every segment triangle after validating each mesh.
// Line segments carry no triangles and are skipped.
func Triangles(src Source, opts ...Option) ([]*sdf.Triangle3, error) {
	o := buildOptions(opts)
	var tris []*sdf.Triangle3
	for _, seg := range src.Segments() {
		if seg.Mesh.IsEmpty() {
			o.log.Debug("skipping segment without triangles",
				zap.Stringer("segment", seg.ID), zap.Stringer("kind", seg.Kind))
			continue
		}
		if err := validateSegment(seg, o.log); err != nil {
			return nil, err
		}
		for i := 0; i < seg.Mesh.TriangleCount(); i++ {
			t := sdf.Triangle3(seg.Mesh.Triangle(i))
			tris = append(tris, &t)
		}
	}
	return tris, nil
}

// validateSegment checks each region of seg on its own. Regions of a
// merged segment share faces with their neighbours, so only a region is
// expected to be closed.
func validateSegment(seg *trail.Segment, log *zap.Logger) error {
	regions := seg.Regions
	if len(regions) == 0 {
		regions = []trail.Region{{Count: seg.Mesh.TriangleCount(), Capped: seg.Capped}}
	}
	for _, r := range regions {
		for _, d := range kernel.ValidateMesh(seg.Mesh.Triangles(r.Start, r.Count), r.Capped) {
			if d.Severity == kernel.SeverityError {
				return fmt.Errorf("%w: segment %s: %s", ErrInvalidMesh, seg.ID, d.Error())
			}
			log.Warn("mesh warning", zap.Stringer("segment", seg.ID), zap.String("finding", d.Error()))
		}
	}
	return nil
}

// WriteSTL writes every segment to w in the given format and returns the
// number of triangles written. With no triangles the output is still a
// valid, empty STL document.
func WriteSTL(w io.Writer, src Source, format Format, opts ...Option) (int, error) {
	o := buildOptions(opts)
	tris, err := Triangles(src, opts...)
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatBinary:
		err = writeBinary(w, tris)
	case FormatASCII:
		err = writeASCII(w, tris, o.name)
	default:
		err = fmt.Errorf("export: unknown STL format %d", format)
	}
	if err != nil {
		return 0, err
	}
	o.log.Info("stl written", zap.Stringer("format", format), zap.Int("triangles", len(tris)))
	return len(tris), nil
}

// SaveSTL writes a binary STL file to path and returns the number of
// triangles written.
func SaveSTL(path string, src Source, opts ...Option) (int, error) {
	o := buildOptions(opts)
	tris, err := Triangles(src, opts...)
	if err != nil {
		return 0, err
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return 0, fmt.Errorf("export: saving %s: %w", path, err)
	}
	o.log.Info("stl saved", zap.String("path", path), zap.Int("triangles", len(tris)))
	return len(tris), nil
}

func vec32(x, y, z float64) [3]float32 {
	return [3]float32{float32(x), float32(y), float32(z)}
}

func writeBinary(w io.Writer, tris []*sdf.Triangle3) error {
	buf := bufio.NewWriter(w)
	hdr := render.STLHeader{Count: uint32(len(tris))}
	if err := binary.Write(buf, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("export: writing STL header: %w", err)
	}
	for _, t := range tris {
		n := t.Normal()
		rec := render.STLTriangle{
			Normal:  vec32(n.X, n.Y, n.Z),
			Vertex1: vec32(t[0].X, t[0].Y, t[0].Z),
			Vertex2: vec32(t[1].X, t[1].Y, t[1].Z),
			Vertex3: vec32(t[2].X, t[2].Y, t[2].Z),
		}
		if err := binary.Write(buf, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("export: writing STL triangle: %w", err)
		}
	}
	return buf.Flush()
}

func writeASCII(w io.Writer, tris []*sdf.Triangle3, name string) error {
	buf := bufio.NewWriter(w)
	fmt.Fprintf(buf, "solid %s\n", name)
	for _, t := range tris {
		n := t.Normal()
		fmt.Fprintf(buf, "  facet normal %g %g %g\n", n.X, n.Y, n.Z)
		fmt.Fprintf(buf, "    outer loop\n")
		for _, v := range t {
			fmt.Fprintf(buf, "      vertex %g %g %g\n", float32(v.X), float32(v.Y), float32(v.Z))
		}
		fmt.Fprintf(buf, "    endloop\n")
		fmt.Fprintf(buf, "  endfacet\n")
	}
	fmt.Fprintf(buf, "endsolid %s\n", name)
	return buf.Flush()
}
