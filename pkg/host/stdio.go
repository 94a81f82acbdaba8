package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/svgpng/pkg/errors"
)

// MaxLineSize is the default bound of one request line. Inline documents
// travel inside the request, so this is also the largest render_text
// document accepted.
const MaxLineSize = 64 << 20

// ServeStdio reads one JSON request per line from r and writes one JSON
// response per line to w until r is exhausted or ctx is done.
//
// Up to Workers calls run at once and responses are written as they
// complete, so their order may differ from the request order; the ID ties
// them together. A line that is not a valid request still gets an error
// response. ServeStdio returns after every started call has answered.
func (d *Dispatcher) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := &lineReader{br: bufio.NewReaderSize(r, 64<<10), max: d.maxLine()}
	out := &responseWriter{enc: json.NewEncoder(w)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers())

	var readErr error
	for gctx.Err() == nil {
		raw, long, err := lines.next()
		if err != nil {
			if err != io.EOF {
				readErr = err
			}
			break
		}
		line := bytes.TrimSpace(raw)
		if len(line) == 0 && !long {
			continue
		}

		var req Request
		if long {
			resp := failure(peekID(line), errors.New(errors.ErrCodeConfigInvalid,
				"request line exceeds %d bytes", lines.max))
			if err := out.write(resp); err != nil {
				return errors.Wrap(errors.ErrCodeEncode, err, "failed to write response")
			}
			continue
		}
		if err := json.Unmarshal(line, &req); err != nil {
			resp := failure(peekID(line), errors.Wrap(errors.ErrCodeConfigInvalid, err, "malformed request"))
			if err := out.write(resp); err != nil {
				return errors.Wrap(errors.ErrCodeEncode, err, "failed to write response")
			}
			continue
		}

		g.Go(func() error {
			return out.write(d.Call(gctx, req))
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "failed to write response")
	}
	if readErr != nil {
		return errors.Wrap(errors.ErrCodeIORead, readErr, "failed to read requests")
	}
	return ctx.Err()
}

func (d *Dispatcher) maxLine() int {
	if d.MaxLine <= 0 {
		return MaxLineSize
	}
	return d.MaxLine
}

// lineReader splits a stream into lines of at most max bytes.
type lineReader struct {
	br  *bufio.Reader
	max int
}

// next returns the next line without its newline. When the line is longer
// than max, long is set, line holds its first max bytes and the rest of
// the line is discarded.
func (lr *lineReader) next() (line []byte, long bool, err error) {
	for {
		chunk, rerr := lr.br.ReadSlice('\n')
		body := chunk
		if rerr == nil {
			body = chunk[:len(chunk)-1]
		}
		if !long {
			if room := lr.max - len(line); len(body) > room {
				line = append(line, body[:room]...)
				long = true
			} else {
				line = append(line, body...)
			}
		}

		switch {
		case rerr == bufio.ErrBufferFull:
			continue
		case rerr == io.EOF:
			if len(line) == 0 && !long {
				return nil, false, io.EOF
			}
			return line, long, nil
		case rerr != nil:
			return line, long, rerr
		}
		return line, long, nil
	}
}

var leadingID = regexp.MustCompile(`^\{\s*"id"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// peekID recovers the id of a request whose other fields did not decode.
// For a truncated line only a leading "id" member can be found.
func peekID(line []byte) string {
	var v struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(line, &v) == nil {
		return v.ID
	}
	m := leadingID.FindSubmatch(line)
	if m == nil {
		return ""
	}
	var id string
	if json.Unmarshal(append(append([]byte{'"'}, m[1]...), '"'), &id) != nil {
		return ""
	}
	return id
}

// responseWriter serializes concurrent writes so lines never interleave.
type responseWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *responseWriter) write(resp Response) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(resp)
}
