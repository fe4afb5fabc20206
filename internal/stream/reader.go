package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// MaxLineBytes bounds a single SSE line. Longer lines are dropped together
// with the event they belong to, and reading continues.
const MaxLineBytes = 1024 * 1024

var errLineTooLong = errors.New("sse line too long")

// Reader reads SSE events from an io.Reader.
type Reader struct {
	br      *bufio.Reader
	done    bool
	pending []string
}

// NewReader creates a new SSE reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// readLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func (r *Reader) readLine() (string, error) {
	var (
		line      []byte
		oversized bool
		dropped   int
	)
	for {
		chunk, err := r.br.ReadSlice('\n')
		if oversized || len(line)+len(chunk) > MaxLineBytes {
			if !oversized {
				dropped = len(line)
				line = nil
			}
			oversized = true
			dropped += len(chunk)
		} else {
			line = append(line, chunk...)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !(errors.Is(err, io.EOF) && (len(line) > 0 || oversized)) {
			return "", err
		}
		break
	}
	if oversized {
		slog.Warn("stream line skipped", "reason", "too long", "bytes", dropped)
		return "", errLineTooLong
	}
	return strings.TrimSuffix(strings.TrimSuffix(string(line), "\n"), "\r"), nil
}

// Next returns the next SSE event with a non-empty payload. It returns
// nil, io.EOF at the end of the stream or on a "[DONE]" sentinel.
func (r *Reader) Next() (*Event, error) {
	if r.done {
		return nil, io.EOF
	}
	var name string
	data := r.pending
	r.pending = nil
	dispatch := func() *Event {
		payload := strings.Join(data, "\n")
		ev := &Event{Name: name, Data: []byte(payload)}
		name, data = "", nil
		if strings.TrimSpace(payload) == "" {
			return nil
		}
		return ev
	}

	for {
		line, err := r.readLine()
		if errors.Is(err, errLineTooLong) {
			name, data = "", nil
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			if ev := dispatch(); ev != nil {
				if isDone(ev) {
					r.done = true
					return nil, io.EOF
				}
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			// Some producers omit the blank separator line between events.
			if len(data) > 0 && json.Valid([]byte(strings.Join(data, "\n"))) {
				ev := dispatch()
				data = []string{value}
				if ev != nil {
					if isDone(ev) {
						r.done = true
						return nil, io.EOF
					}
					r.pending = data
					return ev, nil
				}
				continue
			}
			data = append(data, value)
		}
	}
	r.done = true
	if ev := dispatch(); ev != nil && !isDone(ev) {
		return ev, nil
	}
	return nil, io.EOF
}

func isDone(ev *Event) bool {
	return strings.TrimSpace(string(ev.Data)) == "[DONE]"
}
