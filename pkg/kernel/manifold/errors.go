package manifold

import "errors"

// DefaultSegments is the number of sides used for cylinders.
const DefaultSegments = 32

// ErrUnavailable is returned by New when the binary was built without the
// manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")
