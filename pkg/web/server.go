// Package web serves the live monitor for the gaze mapping engine: a JSON
// API over the processor, websocket streams of results and rendered
// frames, and HTML session reports.
package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/iohnishijima/GazeMappingApplication/internal/log"
	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
	"github.com/iohnishijima/GazeMappingApplication/pkg/hub"
	"github.com/iohnishijima/GazeMappingApplication/pkg/session"
)

// Server is the monitor server. It implements engine.ResultSink so the
// processor can stream every tick straight to connected clients.
type Server struct {
	app  *fiber.App
	addr string

	proc  *engine.Processor
	store *session.Store

	resultHub *hub.Hub
	frameHub  *hub.Hub
}

// NewServer wires the routes. The store may be nil when persistence is
// disabled; session endpoints then answer 404.
func NewServer(addr string, proc *engine.Processor, store *session.Store) *Server {
	s := &Server{
		addr:      addr,
		proc:      proc,
		store:     store,
		resultHub: hub.New("results"),
		frameHub:  hub.New("frames"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Gaze Mapping Monitor",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	app.Get("/", s.handleDashboard)

	api := app.Group("/api")
	api.Get("/stats", s.handleStats)
	api.Get("/frame", s.handleFrame)
	api.Get("/options", s.handleGetOptions)
	api.Patch("/options", s.handleUpdateOptions)
	api.Get("/aois", s.handleListAOIs)
	api.Post("/aois", s.handleAddAOI)
	api.Delete("/aois/:name", s.handleRemoveAOI)
	api.Post("/aois/preview", s.handlePreviewAOI)
	api.Post("/reference", s.handleSetReference)
	api.Post("/recording/start", s.handleStartRecording)
	api.Post("/recording/stop", s.handleStopRecording)
	api.Post("/reset", s.handleReset)
	api.Get("/sessions", s.handleSessions)
	api.Get("/sessions/:id", s.handleSession)
	api.Get("/sessions/:id/report", s.handleSessionReport)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/results", websocket.New(s.handleResultsWS))
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (s *Server) Run(ctx context.Context) error {
	go s.resultHub.Run(ctx)
	go s.frameHub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		errc <- s.app.Listen(s.addr)
	}()

	log.Info("monitor listening", "addr", s.addr)
	select {
	case <-ctx.Done():
		return s.app.Shutdown()
	case err := <-errc:
		return err
	}
}

// PublishResult broadcasts one processed tick to websocket clients. Called
// by the processor loop; must never block.
func (s *Server) PublishResult(res engine.Result) {
	s.resultHub.BroadcastJSON(res)
	if len(res.JPEG) > 0 {
		s.frameHub.BroadcastBinary(res.JPEG)
	}
}

// handleResultsWS streams per-tick results as JSON.
func (s *Server) handleResultsWS(c *websocket.Conn) {
	client := hub.NewClient(s.resultHub, c)
	client.Run()
}

// handleFramesWS streams rendered composites as binary JPEG. The latest
// frame is sent immediately so clients see an image before the next tick.
func (s *Server) handleFramesWS(c *websocket.Conn) {
	if jpeg := s.proc.LastFrame(); len(jpeg) > 0 {
		c.WriteMessage(websocket.BinaryMessage, jpeg)
	}
	client := hub.NewClient(s.frameHub, c)
	client.Run()
}
