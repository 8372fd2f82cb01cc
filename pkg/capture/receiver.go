package capture

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/iohnishijima/GazeMappingApplication/internal/log"
	"github.com/iohnishijima/GazeMappingApplication/pkg/protocol"
)

const (
	handshakeTimeout = 10 * time.Second
	initialRetry     = 1 * time.Second
	maxRetry         = 10 * time.Second
)

// Receiver maintains the WebSocket connection to the tracker, decodes gaze
// packets and publishes Frames to its mailbox. Packets that fail to parse
// or decode are dropped and counted; the stream keeps going.
type Receiver struct {
	url     string
	mailbox *Mailbox

	received   atomic.Uint64
	badPackets atomic.Uint64
}

// NewReceiver creates a receiver that publishes into mailbox.
func NewReceiver(url string, mailbox *Mailbox) *Receiver {
	return &Receiver{url: url, mailbox: mailbox}
}

// Run connects to the tracker and reads until ctx is cancelled, reconnecting
// with backoff whenever the connection drops.
func (r *Receiver) Run(ctx context.Context) error {
	retry := initialRetry
	for {
		conn, err := r.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("tracker connect failed", "url", r.url, "retry_in", retry, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retry):
			}
			retry *= 2
			if retry > maxRetry {
				retry = maxRetry
			}
			continue
		}

		log.Info("connected to tracker", "url", r.url)
		retry = initialRetry

		r.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("tracker stream closed, reconnecting", "url", r.url)
	}
}

func (r *Receiver) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", r.url, err)
	}
	return conn, nil
}

func (r *Receiver) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Closing the connection is the only way to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		frame, err := r.decode(raw)
		if err != nil {
			r.badPackets.Add(1)
			log.Debug("dropping undecodable packet", "error", err)
			continue
		}

		r.received.Add(1)
		r.mailbox.Publish(frame)
	}
}

func (r *Receiver) decode(raw []byte) (*Frame, error) {
	pkt, err := protocol.ParsePacket(raw)
	if err != nil {
		return nil, err
	}

	imgBytes, err := pkt.DecodeImage()
	if err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(imgBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %d image: %w", pkt.Frame, err)
	}
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("frame %d decoded to an empty image", pkt.Frame)
	}

	gazeX, gazeY := pkt.Gaze()
	sourceTime, clockOK := protocol.ParseSystemTime(pkt.SystemTime)

	return &Frame{
		Seq:        pkt.Frame,
		Image:      img,
		GazeX:      gazeX,
		GazeY:      gazeY,
		GazeOK:     pkt.GazeValid(),
		ScoreRight: pkt.ScoreRight,
		ScoreLeft:  pkt.ScoreLeft,
		SourceTime: sourceTime,
		ClockOK:    clockOK,
		SystemTime: pkt.SystemTime,
		Received:   time.Now(),
	}, nil
}

// Received returns how many frames were decoded and published.
func (r *Receiver) Received() uint64 {
	return r.received.Load()
}

// BadPackets returns how many packets were dropped as undecodable.
func (r *Receiver) BadPackets() uint64 {
	return r.badPackets.Load()
}
