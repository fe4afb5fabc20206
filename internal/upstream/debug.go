package upstream

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// finalFramePaths mark a streamed frame as carrying the end of a generation.
var finalFramePaths = []string{"finishReason", "choices.0.finishReason", "choices.0.finish_reason", "usage"}

func (c *Client) dumpUpstreamRequest(req *http.Request, body []byte) {
	if !c.Debug || req == nil {
		return
	}
	head, err := httputil.DumpRequestOut(req, false)
	if err != nil {
		slog.Error("upstream.request.dump.failed", "error", err)
		return
	}
	c.dumpBlock("UPSTREAM REQUEST", append(head, body...))
}

// dumpUpstreamResponse writes the status line and headers, then wraps the body
// so that it is dumped while the caller reads it.
func (c *Client) dumpUpstreamResponse(resp *http.Response) {
	if !c.Debug || resp == nil {
		return
	}
	if head, err := httputil.DumpResponse(resp, false); err != nil {
		slog.Error("upstream.response.dump.failed", "error", err)
	} else {
		c.dumpBlock("UPSTREAM RESPONSE", head)
	}
	if resp.Body == nil {
		return
	}
	title := fmt.Sprintf("UPSTREAM RESPONSE BODY status=%d", resp.StatusCode)
	c.dumpWrite(boundary(title, "BEGIN"))
	resp.Body = &bodyDumper{
		src:    resp.Body,
		client: c,
		title:  title,
		sse:    isEventStream(resp.Header),
	}
}

func (c *Client) dumpWriter() io.Writer {
	if c.dumpTo != nil {
		return c.dumpTo
	}
	return os.Stderr
}

func boundary(title, kind string) []byte {
	return []byte("===== " + strings.TrimSpace(title) + " " + kind + " =====\n")
}

func (c *Client) dumpBlock(title string, data []byte) {
	block := boundary(title, "BEGIN")
	block = append(block, data...)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		block = append(block, '\n')
	}
	c.dumpWrite(append(block, boundary(title, "END")...))
}

func (c *Client) dumpWrite(data []byte) {
	if len(data) == 0 {
		return
	}
	c.dumpMu.Lock()
	defer c.dumpMu.Unlock()
	if _, err := c.dumpWriter().Write(data); err != nil {
		slog.Error("upstream.dump.write.failed", "error", err)
	}
}

// bodyDumper mirrors a response body into the debug dump. Event streams
// dump only the frames that carry a finish reason or usage; other bodies are
// copied as read.
type bodyDumper struct {
	src    io.ReadCloser
	client *Client
	title  string
	sse    bool

	pending []byte
	tail    byte
	done    bool
}

func (d *bodyDumper) Read(p []byte) (int, error) {
	n, err := d.src.Read(p)
	if n > 0 {
		if d.sse {
			d.pending = append(d.pending, p[:n]...)
			d.drainFrames()
		} else {
			d.emit(p[:n])
		}
	}
	if err == io.EOF {
		d.finish()
	}
	return n, err
}

func (d *bodyDumper) Close() error {
	err := d.src.Close()
	d.finish()
	return err
}

func (d *bodyDumper) drainFrames() {
	for {
		idx := bytes.Index(d.pending, []byte("\n\n"))
		if idx < 0 {
			return
		}
		frame := d.pending[:idx]
		d.pending = d.pending[idx+2:]
		d.dumpFrame(frame)
	}
}

func (d *bodyDumper) dumpFrame(frame []byte) {
	for _, line := range bytes.Split(frame, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		payload, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		payload = bytes.TrimSpace(payload)
		if !gjson.ValidBytes(payload) {
			continue
		}
		for _, res := range gjson.GetManyBytes(payload, finalFramePaths...) {
			if res.Exists() {
				d.emit([]byte("data: " + string(payload) + "\n\n"))
				break
			}
		}
	}
}

func (d *bodyDumper) emit(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	d.tail = chunk[len(chunk)-1]
	d.client.dumpWrite(chunk)
}

func (d *bodyDumper) finish() {
	if d.done {
		return
	}
	d.done = true
	if d.sse && len(d.pending) > 0 {
		d.dumpFrame(d.pending)
		d.pending = nil
	}
	end := boundary(d.title, "END")
	if d.tail != 0 && d.tail != '\n' {
		end = append([]byte{'\n'}, end...)
	}
	d.client.dumpWrite(end)
}
