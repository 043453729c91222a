package shape

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// SaveDXF writes the outline to a DXF drawing at path, one line per edge.
// A point section is drawn as a zero-length line so the file is never
// empty of entities.
func (s *Section) SaveDXF(path string) error {
	d := render.NewDXF(path)
	if s.IsPoint() {
		d.Line(&sdf.Line2{s.points[0], s.points[0]})
	}
	for i := 0; i+1 < len(s.points); i++ {
		d.Line(&sdf.Line2{s.points[i], s.points[i+1]})
	}
	if err := d.Save(); err != nil {
		return fmt.Errorf("shape: saving outline to %s: %w", path, err)
	}
	return nil
}
