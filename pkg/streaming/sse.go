package streaming

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame is one server-sent-event payload. A frame carries either an
// incremental message fragment or the terminal done marker, never both.
type Frame struct {
	Message string `json:"message,omitempty"`
	Done    bool   `json:"done,omitempty"`
}

var dataPrefix = []byte("data: ")

// ParseFrame decodes a single SSE line. Non-data lines (comments, blank
// keep-alives) report ok=false and are skipped by callers.
func ParseFrame(line []byte) (Frame, bool) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, dataPrefix) {
		return Frame{}, false
	}
	var f Frame
	if err := json.Unmarshal(bytes.TrimPrefix(line, dataPrefix), &f); err != nil {
		return Frame{}, false
	}
	return f, true
}

// WriteEvent writes one `data: <json>\n\n` frame and flushes it.
func WriteEvent(w *bufio.Writer, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// WriteDone writes the terminal frame.
func WriteDone(w *bufio.Writer) error {
	return WriteEvent(w, Frame{Done: true})
}

// WriteHeartbeat writes an SSE comment line. Clients ignore it; a write
// failure is how a disconnected peer surfaces on an otherwise quiet stream.
func WriteHeartbeat(w *bufio.Writer) error {
	if _, err := w.WriteString(": keepalive\n\n"); err != nil {
		return err
	}
	return w.Flush()
}
