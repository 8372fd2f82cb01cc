package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

// fakeClient registers a bare client without a websocket connection. The
// hub only touches the send channel, so tests can drain it directly.
func fakeClient(t *testing.T, h *Hub, buffer int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan Message, buffer)}
	select {
	case h.register <- c:
	case <-time.After(2 * time.Second):
		t.Fatal("register timed out")
	}
	return c
}

func recvMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message within 2s")
	}
	return Message{}
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), want)
}

func TestBroadcastFanout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	a := fakeClient(t, h, 4)
	b := fakeClient(t, h, 4)
	waitForClients(t, h, 2)

	if err := h.BroadcastJSON(map[string]int{"seq": 7}); err != nil {
		t.Fatalf("BroadcastJSON() error = %v", err)
	}

	for _, c := range []*Client{a, b} {
		msg := recvMessage(t, c)
		if msg.Type != JSONMessage {
			t.Errorf("message type = %v, want JSONMessage", msg.Type)
		}
		var got map[string]int
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if got["seq"] != 7 {
			t.Errorf("seq = %d, want 7", got["seq"])
		}
	}
}

func TestBroadcastBinary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("frames")
	go h.Run(ctx)

	c := fakeClient(t, h, 4)
	waitForClients(t, h, 1)

	h.BroadcastBinary([]byte{0xff, 0xd8})

	msg := recvMessage(t, c)
	if msg.Type != BinaryMessage {
		t.Errorf("message type = %v, want BinaryMessage", msg.Type)
	}
	if len(msg.Data) != 2 || msg.Data[0] != 0xff {
		t.Errorf("data = %v, want jpeg magic", msg.Data)
	}
}

func TestSlowClientDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test")
	go h.Run(ctx)

	slow := fakeClient(t, h, 1)
	waitForClients(t, h, 1)

	// First message fills the buffer, second finds it full.
	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})
	waitForClients(t, h, 0)

	// The survivor is the buffered message; after it the channel is closed.
	if msg := recvMessage(t, slow); msg.Data[0] != 1 {
		t.Errorf("buffered message = %v, want [1]", msg.Data)
	}
	if _, ok := <-slow.send; ok {
		t.Error("send channel still open after drop")
	}
}

func TestShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := New("test")
	go h.Run(ctx)

	c := fakeClient(t, h, 4)
	waitForClients(t, h, 1)

	cancel()

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("got message after shutdown, want closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed within 2s")
	}

	// Late arrivals must not deadlock once the hub is gone.
	done := make(chan struct{})
	go func() {
		NewClient(h, nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NewClient blocked after shutdown")
	}
}
