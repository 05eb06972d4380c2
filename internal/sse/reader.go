package sse

import (
	"bufio"
	"io"
	"strings"
)

// maxEventSize bounds a single line of the stream. Payloads from the metrics
// backend are small JSON objects, so 1MB leaves ample headroom.
const maxEventSize = 1 << 20

// Event represents a single server-sent event.
type Event struct {
	// Event is the event type from the "event:" field. Empty for unnamed events.
	Event string

	// Data is the payload. Multiple "data:" lines are joined with newlines.
	Data string

	// ID is the value of the "id:" field.
	ID string
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next event. Returns io.EOF when the stream ends.
	Next() (*Event, error)

	// Close releases the underlying stream.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// NewReader creates an SSE [Reader] over body.
func NewReader(body io.ReadCloser) Reader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 4096), maxEventSize)
	return &reader{
		scanner: scanner,
		body:    body,
	}
}

// Next returns the next event carrying data.
//
// Comment lines (":keep-alive") and frames without a data field are consumed
// silently and never surface as events.
func (r *reader) Next() (*Event, error) {
	var event Event
	var hasData bool

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		// blank line terminates the frame
		if line == "" {
			if hasData {
				return &event, nil
			}
			event = Event{}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			if hasData {
				event.Data += "\n" + value
			} else {
				event.Data = value
				hasData = true
			}
		case "event":
			event.Event = value
		case "id":
			event.ID = value
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// stream ended without a trailing blank line
	if hasData {
		return &event, nil
	}
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// parseLine splits a field line into name and value.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field = line[:idx]
	value = line[idx+1:]
	// a single leading space after the colon is not part of the value
	if value != "" && value[0] == ' ' {
		value = value[1:]
	}
	return field, value
}
