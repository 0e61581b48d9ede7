// Package sse implements the Server-Sent-Events wire format used by the
// streaming endpoints. An event serializes as two lines, "event: <type>" and
// "data: <json>", followed by a blank line.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Event is a named event with a JSON-marshalable payload. Events exist only
// on the wire; they are never persisted as-is.
type Event struct {
	Type string
	Data interface{}
}

// Marshal renders the event in SSE wire framing.
func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event payload: %w", e.Type, err)
	}
	return []byte("event: " + e.Type + "\ndata: " + string(data) + "\n\n"), nil
}

// Writer streams events over an echo response, flushing after every event so
// the client sees each one the moment it is produced.
type Writer struct {
	resp    *echo.Response
	flusher http.Flusher
}

// NewWriter prepares the response for event streaming and returns a Writer.
func NewWriter(c echo.Context) (*Writer, error) {
	resp := c.Response()
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := resp.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	resp.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{resp: resp, flusher: flusher}, nil
}

// Send writes one event and flushes it to the client.
func (w *Writer) Send(ev Event) error {
	wire, err := ev.Marshal()
	if err != nil {
		return err
	}
	if _, err := w.resp.Write(wire); err != nil {
		return fmt.Errorf("write %s event: %w", ev.Type, err)
	}
	w.flusher.Flush()
	return nil
}
