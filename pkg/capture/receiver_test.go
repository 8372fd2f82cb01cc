package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/iohnishijima/GazeMappingApplication/pkg/protocol"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		t.Fatalf("IMEncode() error = %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out
}

func TestReceiverStream(t *testing.T) {
	jpeg := testJPEG(t)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			t.Errorf("Upgrade() error = %v", err)
			return
		}
		defer conn.Close()

		first := protocol.NewGazePacket(7, 0.25, 0.75, jpeg)
		first.SystemTime = "2024:05:01:12:30:15:250"
		raw, _ := first.Bytes()
		conn.WriteMessage(websocket.TextMessage, raw)

		// A malformed packet must not kill the stream.
		conn.WriteMessage(websocket.TextMessage, []byte("not a packet"))

		raw2, _ := protocol.NewGazePacket(8, 0.5, 0.5, jpeg).Bytes()
		conn.WriteMessage(websocket.TextMessage, raw2)

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	mailbox := NewMailbox()
	defer mailbox.Close()

	r := NewReceiver(url, mailbox)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	deadline := time.After(5 * time.Second)
	var last *Frame
	for last == nil {
		select {
		case <-mailbox.Ready():
		case <-deadline:
			t.Fatal("timed out waiting for frame 8")
		}

		f := mailbox.TryTake()
		if f == nil {
			continue
		}
		if f.Seq == 8 {
			last = f
			break
		}
		if f.Seq == 7 {
			if !f.GazeOK {
				t.Error("frame 7 GazeOK = false, want true")
			}
			if f.GazeX != 0.25 || f.GazeY != 0.75 {
				t.Errorf("frame 7 gaze = (%v, %v), want (0.25, 0.75)", f.GazeX, f.GazeY)
			}
			if !f.ClockOK {
				t.Error("frame 7 ClockOK = false, want true")
			}
			want := time.Date(2024, time.May, 1, 12, 30, 15, 250*int(time.Millisecond), time.Local)
			if !f.SourceTime.Equal(want) {
				t.Errorf("frame 7 SourceTime = %v, want %v", f.SourceTime, want)
			}
		}
		f.Close()
	}
	defer last.Close()

	if last.Image.Empty() {
		t.Error("frame 8 image is empty")
	}
	// The malformed packet arrived before frame 8, so it is counted by now.
	if r.BadPackets() == 0 {
		t.Error("BadPackets() = 0, want at least 1")
	}
	if r.Received() < 1 {
		t.Errorf("Received() = %v, want at least 1", r.Received())
	}
}

func TestReceiverDecodeRejectsBadImage(t *testing.T) {
	mailbox := NewMailbox()
	defer mailbox.Close()
	r := NewReceiver("ws://unused", mailbox)

	pkt := protocol.NewGazePacket(1, 0.5, 0.5, []byte("not an image"))
	raw, _ := pkt.Bytes()

	if _, err := r.decode(raw); err == nil {
		t.Error("decode() error = nil, want error for undecodable image")
	}
}
