package gaze

// Point is a normalized 2D facial-landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame gives per-frame access to normalized landmark coordinates,
// indexed consistently across frames. Implementations wrap whatever the
// landmark source produces; a missing landmark reports ok=false, which
// the tracker treats as "no face".
type Frame interface {
	Landmark(index int) (Point, bool)
}

// PointFrame adapts a flat landmark slice (index = landmark id) to Frame.
// An empty slice is a no-face frame.
type PointFrame []Point

func (f PointFrame) Landmark(index int) (Point, bool) {
	if index < 0 || index >= len(f) {
		return Point{}, false
	}
	return f[index], true
}

// Eye landmark index groups, per the MediaPipe FaceMesh topology: outer
// corner, inner corner, upper lid, lower lid.
var (
	LeftEyeLandmarks  = [4]int{33, 133, 159, 145}
	RightEyeLandmarks = [4]int{362, 263, 386, 374}
)

// eyeCentroid averages an eye's landmark group. ok is false when any
// landmark of the group is missing from the frame.
func eyeCentroid(f Frame, group [4]int) (Point, bool) {
	var c Point
	for _, idx := range group {
		p, ok := f.Landmark(idx)
		if !ok {
			return Point{}, false
		}
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(group))
	c.Y /= float64(len(group))
	return c, true
}
