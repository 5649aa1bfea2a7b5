package model

// EMUs per unit of length.
const (
	EMUPerInch  = 914400
	EMUPerPoint = 12700
	EMUPerCm    = 360000
)

// Geometry is an element's position, size and rotation.
type Geometry struct {
	X        int64   `json:"x"`        // Left edge in EMUs
	Y        int64   `json:"y"`        // Top edge in EMUs
	Width    int64   `json:"width"`    // EMUs
	Height   int64   `json:"height"`   // EMUs
	Rotation float64 `json:"rotation"` // Clockwise degrees
}

// Right returns the right edge X coordinate.
func (g Geometry) Right() int64 {
	return g.X + g.Width
}

// Bottom returns the bottom edge Y coordinate.
func (g Geometry) Bottom() int64 {
	return g.Y + g.Height
}

// Area returns the area in square EMUs.
func (g Geometry) Area() int64 {
	return g.Width * g.Height
}

// IsZero reports whether no geometry was recorded.
func (g Geometry) IsZero() bool {
	return g == Geometry{}
}

// Contains reports whether the point (x, y) lies inside the geometry's
// unrotated bounds.
func (g Geometry) Contains(x, y int64) bool {
	return x >= g.X && x <= g.Right() && y >= g.Y && y <= g.Bottom()
}

// Intersects reports whether two unrotated geometries overlap.
func (g Geometry) Intersects(other Geometry) bool {
	return g.X < other.Right() && other.X < g.Right() &&
		g.Y < other.Bottom() && other.Y < g.Bottom()
}

// Points returns x, y, width and height in points.
func (g Geometry) Points() (x, y, width, height float64) {
	return EMUToPoints(g.X), EMUToPoints(g.Y), EMUToPoints(g.Width), EMUToPoints(g.Height)
}

// EMUToPoints converts EMUs to points.
func EMUToPoints(emu int64) float64 {
	return float64(emu) / EMUPerPoint
}

// EMUToInches converts EMUs to inches.
func EMUToInches(emu int64) float64 {
	return float64(emu) / EMUPerInch
}

// PointsToEMU converts points to EMUs, rounding to the nearest unit.
func PointsToEMU(pt float64) int64 {
	if pt < 0 {
		return int64(pt*EMUPerPoint - 0.5)
	}
	return int64(pt*EMUPerPoint + 0.5)
}
