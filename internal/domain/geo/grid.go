// internal/domain/geo/grid.go

package geo

import (
	"fmt"
	"math"
)

// snapEpsilon absorbs float error when a coordinate already sits on a grid line,
// so that snapping a snapped value never falls into the previous cell.
const snapEpsilon = 1e-9

// CellKey addresses one grid cell by its snapped (south-west) corner
type CellKey struct {
	Lat float64
	Lon float64
}

// String renders the key with fixed precision so writers and readers agree
func (k CellKey) String() string {
	return fmt.Sprintf("%.4f:%.4f", k.Lat, k.Lon)
}

// Location returns the corner of the cell as a location
func (k CellKey) Location() Location {
	return Location{Latitude: k.Lat, Longitude: k.Lon}
}

// Cell is one entry of a grid scan
type Cell struct {
	Key    CellKey
	Center Location
}

// Grid is a fixed-origin lat/lon grid covering Bounds with square cells of Step degrees.
// The origin is (Bounds.MinLat, Bounds.MinLon).
type Grid struct {
	Bounds BoundingBox
	Step   float64
}

// NewGrid creates a grid and validates its parameters
func NewGrid(bounds BoundingBox, step float64) (Grid, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return Grid{}, fmt.Errorf("grid step must be a positive number, got %v", step)
	}
	if err := bounds.Validate(); err != nil {
		return Grid{}, fmt.Errorf("invalid grid bounds: %w", err)
	}
	return Grid{Bounds: bounds, Step: step}, nil
}

// Snap maps an arbitrary coordinate to the key of the cell containing it.
// Snap is idempotent: Snap(k.Lat, k.Lon) == k for any key k it returned.
func (g Grid) Snap(lat, lon float64) CellKey {
	return CellKey{
		Lat: snapToGrid(lat, g.Bounds.MinLat, g.Step),
		Lon: snapToGrid(lon, g.Bounds.MinLon, g.Step),
	}
}

func snapToGrid(value, origin, step float64) float64 {
	index := math.Floor((value-origin)/step + snapEpsilon)
	return origin + index*step
}

// Rows returns the number of latitude rows in the scan
func (g Grid) Rows() int {
	return steps(g.Bounds.MinLat, g.Bounds.MaxLat, g.Step)
}

// Cols returns the number of longitude columns in the scan
func (g Grid) Cols() int {
	return steps(g.Bounds.MinLon, g.Bounds.MaxLon, g.Step)
}

// Size returns the number of cells in one full scan
func (g Grid) Size() int {
	return g.Rows() * g.Cols()
}

func steps(min, max, step float64) int {
	return int(math.Floor((max-min)/step+snapEpsilon)) + 1
}

// Cells enumerates every cell in row-major order (latitude, then longitude).
// Coordinates are derived from integer indices, never accumulated.
func (g Grid) Cells() []Cell {
	rows, cols := g.Rows(), g.Cols()
	cells := make([]Cell, 0, rows*cols)
	half := g.Step / 2

	for i := 0; i < rows; i++ {
		lat := g.Bounds.MinLat + float64(i)*g.Step
		for j := 0; j < cols; j++ {
			lon := g.Bounds.MinLon + float64(j)*g.Step
			cells = append(cells, Cell{
				Key:    CellKey{Lat: lat, Lon: lon},
				Center: Location{Latitude: lat + half, Longitude: lon + half},
			})
		}
	}

	return cells
}
