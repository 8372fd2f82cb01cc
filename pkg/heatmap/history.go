// Package heatmap accumulates projected gaze points and renders them as a
// density overlay on the reference image.
package heatmap

// Point is a projected gaze location in reference-image pixels.
type Point struct {
	X int
	Y int
}

// History is a fixed-capacity ring of the most recent gaze points. Pushing
// past capacity evicts the oldest point.
type History struct {
	buf  []Point
	head int // index of the oldest point
	n    int
}

// NewHistory creates a history holding up to capacity points. Capacities
// below 1 are clamped to 1.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]Point, capacity)}
}

// Push appends a point, evicting the oldest when full.
func (h *History) Push(p Point) {
	if h.n < len(h.buf) {
		h.buf[(h.head+h.n)%len(h.buf)] = p
		h.n++
		return
	}
	h.buf[h.head] = p
	h.head = (h.head + 1) % len(h.buf)
}

// Points returns the retained points, oldest first.
func (h *History) Points() []Point {
	out := make([]Point, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Len returns how many points are retained.
func (h *History) Len() int {
	return h.n
}

// Capacity returns the ring size.
func (h *History) Capacity() int {
	return len(h.buf)
}

// SetCapacity resizes the ring. Shrinking keeps the most recent points;
// growing keeps everything. Capacities below 1 are clamped to 1.
func (h *History) SetCapacity(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(h.buf) {
		return
	}

	pts := h.Points()
	if len(pts) > capacity {
		pts = pts[len(pts)-capacity:]
	}

	h.buf = make([]Point, capacity)
	h.head = 0
	h.n = copy(h.buf, pts)
}

// Clear drops all points, keeping the capacity.
func (h *History) Clear() {
	h.head = 0
	h.n = 0
}
