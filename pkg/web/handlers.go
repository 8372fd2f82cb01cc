package web

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/iohnishijima/GazeMappingApplication/pkg/aoi"
	"github.com/iohnishijima/GazeMappingApplication/pkg/report"
)

// AOIRequest is the request body for adding or previewing a region.
type AOIRequest struct {
	Name string    `json:"name"`
	Rect []float64 `json:"rect"`
}

func rectFromSlice(vals []float64) (aoi.Rect, error) {
	if len(vals) != 4 {
		return aoi.Rect{}, fmt.Errorf("rect must be [left, top, width, height], got %d values", len(vals))
	}
	return aoi.Rect{Left: vals[0], Top: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func statusFor(err error) int {
	if strings.Contains(err.Error(), "not found") {
		return 404
	}
	return 500
}

// handleStats returns the processing counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.proc.Stats())
}

// handleFrame returns the latest rendered composite.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	jpeg := s.proc.LastFrame()
	if len(jpeg) == 0 {
		return c.Status(404).JSON(fiber.Map{
			"error": "no frame rendered yet",
		})
	}
	c.Type("jpg")
	return c.Send(jpeg)
}

// handleGetOptions returns the current display options.
func (s *Server) handleGetOptions(c *fiber.Ctx) error {
	return c.JSON(s.proc.Options())
}

// handleUpdateOptions applies a partial options update and returns the
// resulting options.
func (s *Server) handleUpdateOptions(c *fiber.Ctx) error {
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := s.proc.UpdateOptions(params); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.proc.Options())
}

// handleListAOIs returns the region definitions.
func (s *Server) handleListAOIs(c *fiber.Ctx) error {
	data, err := s.proc.AOIDefinitions()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Type("json")
	return c.Send(data)
}

// handleAddAOI adds one region.
func (s *Server) handleAddAOI(c *fiber.Ctx) error {
	var req AOIRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	r, err := rectFromSlice(req.Rect)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.proc.AddAOI(req.Name, r)
	return c.JSON(fiber.Map{
		"added": req.Name,
	})
}

// handleRemoveAOI removes a region by name.
func (s *Server) handleRemoveAOI(c *fiber.Ctx) error {
	name := c.Params("name")
	if !s.proc.RemoveAOI(name) {
		return c.Status(404).JSON(fiber.Map{
			"error": fmt.Sprintf("region %q not found", name),
		})
	}
	return c.JSON(fiber.Map{
		"removed": name,
	})
}

// handlePreviewAOI renders the latest composite with an extra rectangle so
// a region can be placed before committing it.
func (s *Server) handlePreviewAOI(c *fiber.Ctx) error {
	var req AOIRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	r, err := rectFromSlice(req.Rect)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	jpeg, err := s.proc.Preview(r)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Type("jpg")
	return c.Send(jpeg)
}

// handleSetReference swaps the reference image.
func (s *Server) handleSetReference(c *fiber.Ctx) error {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := s.proc.SetReference(req.Path); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"reference": req.Path,
	})
}

// handleStartRecording opens a recording session. Body fields are
// optional; missing names fall back to the recorder's defaults.
func (s *Server) handleStartRecording(c *fiber.Ctx) error {
	var req struct {
		User    string `json:"user"`
		Session string `json:"session"`
	}
	if err := c.BodyParser(&req); err != nil {
		req.User, req.Session = "", ""
	}

	if err := s.proc.StartRecording(req.User, req.Session); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"recording": true,
	})
}

// handleStopRecording closes the session and returns the exported file.
func (s *Server) handleStopRecording(c *fiber.Ctx) error {
	path, err := s.proc.StopRecording()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"file": path,
	})
}

// handleReset zeroes the region counters.
func (s *Server) handleReset(c *fiber.Ctx) error {
	s.proc.ResetCounters()
	return c.JSON(fiber.Map{
		"reset": true,
	})
}

// handleSessions lists recorded sessions, newest first.
func (s *Server) handleSessions(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "session store disabled",
		})
	}
	sessions, err := s.store.Sessions()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(sessions)
}

// handleSession returns one session's metadata.
func (s *Server) handleSession(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "session store disabled",
		})
	}
	sess, err := s.store.Session(c.Params("id"))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(sess)
}

// handleSessionReport renders a recorded session as an HTML chart page.
func (s *Server) handleSessionReport(c *fiber.Ctx) error {
	if s.store == nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "session store disabled",
		})
	}

	id := c.Params("id")
	sess, err := s.store.Session(id)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	rows, err := s.store.Records(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	b := report.NewBuilder(fmt.Sprintf("user=%s session=%s", sess.User, sess.Name))
	for _, rec := range rows {
		b.Add(rec)
	}

	var buf bytes.Buffer
	if err := b.Render(&buf); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	c.Type("html")
	return c.Send(buf.Bytes())
}
