package heatmap

import (
	"reflect"
	"testing"
)

func TestHistoryEviction(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Push(Point{X: i, Y: i * 10})
	}

	if got := h.Len(); got != 3 {
		t.Errorf("Len() = %v, want 3", got)
	}
	want := []Point{{3, 30}, {4, 40}, {5, 50}}
	if got := h.Points(); !reflect.DeepEqual(got, want) {
		t.Errorf("Points() = %v, want %v", got, want)
	}
}

func TestHistoryUnderCapacity(t *testing.T) {
	h := NewHistory(10)
	h.Push(Point{X: 1, Y: 2})
	h.Push(Point{X: 3, Y: 4})

	want := []Point{{1, 2}, {3, 4}}
	if got := h.Points(); !reflect.DeepEqual(got, want) {
		t.Errorf("Points() = %v, want %v", got, want)
	}
}

func TestHistoryShrinkKeepsRecent(t *testing.T) {
	h := NewHistory(5)
	for i := 1; i <= 5; i++ {
		h.Push(Point{X: i})
	}

	h.SetCapacity(2)

	if got := h.Capacity(); got != 2 {
		t.Errorf("Capacity() = %v, want 2", got)
	}
	want := []Point{{X: 4}, {X: 5}}
	if got := h.Points(); !reflect.DeepEqual(got, want) {
		t.Errorf("Points() after shrink = %v, want %v", got, want)
	}
}

func TestHistoryGrowKeepsAll(t *testing.T) {
	h := NewHistory(2)
	h.Push(Point{X: 1})
	h.Push(Point{X: 2})

	h.SetCapacity(6)

	want := []Point{{X: 1}, {X: 2}}
	if got := h.Points(); !reflect.DeepEqual(got, want) {
		t.Errorf("Points() after grow = %v, want %v", got, want)
	}

	// Eviction continues correctly at the new capacity.
	for i := 3; i <= 8; i++ {
		h.Push(Point{X: i})
	}
	if got := h.Points()[0]; got.X != 3 {
		t.Errorf("oldest after refill = %v, want X=3", got)
	}
}

func TestHistoryClampsCapacity(t *testing.T) {
	h := NewHistory(0)
	if got := h.Capacity(); got != 1 {
		t.Errorf("Capacity() = %v, want 1", got)
	}

	h.Push(Point{X: 1})
	h.Push(Point{X: 2})
	if got := h.Points(); len(got) != 1 || got[0].X != 2 {
		t.Errorf("Points() = %v, want just {2 0}", got)
	}

	h.SetCapacity(-3)
	if got := h.Capacity(); got != 1 {
		t.Errorf("Capacity() after SetCapacity(-3) = %v, want 1", got)
	}
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory(4)
	h.Push(Point{X: 1})
	h.Push(Point{X: 2})

	h.Clear()

	if got := h.Len(); got != 0 {
		t.Errorf("Len() after clear = %v, want 0", got)
	}
	if got := h.Capacity(); got != 4 {
		t.Errorf("Capacity() after clear = %v, want 4", got)
	}
}
