package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func testFrame(seq int64) *Frame {
	return &Frame{
		Seq:   seq,
		Image: gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3),
	}
}

func TestMailboxLatestWins(t *testing.T) {
	m := NewMailbox()
	defer m.Close()

	m.Publish(testFrame(1))
	m.Publish(testFrame(2))
	m.Publish(testFrame(3))

	f := m.TryTake()
	if f == nil {
		t.Fatal("TryTake() = nil, want frame")
	}
	defer f.Close()

	if f.Seq != 3 {
		t.Errorf("Seq = %v, want 3", f.Seq)
	}
	if got := m.Drops(); got != 2 {
		t.Errorf("Drops() = %v, want 2", got)
	}
	if got := m.Published(); got != 3 {
		t.Errorf("Published() = %v, want 3", got)
	}
}

func TestMailboxTryTakeEmpty(t *testing.T) {
	m := NewMailbox()
	defer m.Close()

	if f := m.TryTake(); f != nil {
		f.Close()
		t.Errorf("TryTake() = frame %v, want nil", f.Seq)
	}

	// Taking must clear the slot.
	m.Publish(testFrame(1))
	first := m.TryTake()
	if first == nil {
		t.Fatal("TryTake() = nil, want frame")
	}
	first.Close()

	if f := m.TryTake(); f != nil {
		f.Close()
		t.Errorf("second TryTake() = frame %v, want nil", f.Seq)
	}
}

func TestMailboxReady(t *testing.T) {
	m := NewMailbox()
	defer m.Close()

	select {
	case <-m.Ready():
		t.Fatal("Ready() fired before any publish")
	default:
	}

	m.Publish(testFrame(1))
	m.Publish(testFrame(2))

	select {
	case <-m.Ready():
	default:
		t.Fatal("Ready() did not fire after publish")
	}

	// Coalesced publishes wake the consumer once; the slot holds the latest.
	f := m.TryTake()
	if f == nil {
		t.Fatal("TryTake() = nil, want frame")
	}
	defer f.Close()
	if f.Seq != 2 {
		t.Errorf("Seq = %v, want 2", f.Seq)
	}
}

func TestFrameCloseIdempotent(t *testing.T) {
	f := testFrame(1)
	f.Close()
	f.Close()

	var nilFrame *Frame
	nilFrame.Close()
}
