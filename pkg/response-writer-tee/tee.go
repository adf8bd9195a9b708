package tee

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

var (
	// ErrOversized signals that the response grew past the saver's limit.
	// It is not a failure: the response still reached the client, it just cannot be stored.
	ErrOversized = errors.New("response exceeds object size limit")
	// ErrEmpty signals that nothing was received from the origin.
	ErrEmpty = errors.New("response is empty")
)

const maxStatusLine = 64

// ResponseSaver is a wrapper around an io.Writer that saves the written bytes to a buffer.
// Saving stops once more than limit bytes have been seen, writing to the underlying writer does not.
type ResponseSaver struct {
	w          io.Writer
	b          *bytes.Buffer
	limit      int
	written    int64
	oversized  bool
	statusLine []byte
}

// NewResponseSaver returns a new ResponseSaver streaming to w and saving at most limit bytes.
func NewResponseSaver(w io.Writer, limit int) *ResponseSaver {
	return &ResponseSaver{
		w:     w,
		b:     &bytes.Buffer{},
		limit: limit,
	}
}

// Implementation of io.Writer
func (t *ResponseSaver) Write(p []byte) (int, error) {
	// client first, the buffer only gets what actually went out
	n, err := t.w.Write(p)
	t.save(p[:n])
	return n, err
}

func (t *ResponseSaver) save(p []byte) {
	t.written += int64(len(p))
	if len(t.statusLine) < maxStatusLine && bytes.IndexByte(t.statusLine, '\n') < 0 {
		room := maxStatusLine - len(t.statusLine)
		if room > len(p) {
			room = len(p)
		}
		t.statusLine = append(t.statusLine, p[:room]...)
	}
	if t.oversized {
		return
	}
	if t.written > int64(t.limit) {
		t.oversized = true
		t.b = nil
		return
	}
	t.b.Write(p)
}

// Relay copies src to the saver in chunks of at most chunkSize bytes until src is exhausted.
// It returns the number of bytes relayed and the first read or write error, io.EOF excluded.
func (t *ResponseSaver) Relay(src io.Reader, chunkSize int) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := t.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, werr
			}
			if nw != nr {
				return total, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}

// Response returns the saved response, or nil if it was oversized.
func (t *ResponseSaver) Response() []byte {
	if t.oversized {
		return nil
	}
	return t.b.Bytes()
}

// Storable returns nil if the saved response may be cached,
// otherwise ErrOversized or ErrEmpty.
func (t *ResponseSaver) Storable() error {
	if t.oversized {
		return ErrOversized
	}
	if t.written == 0 {
		return ErrEmpty
	}
	return nil
}

// Oversized reports whether more than limit bytes were written.
func (t *ResponseSaver) Oversized() bool {
	return t.oversized
}

// Written returns the number of bytes that reached the underlying writer.
func (t *ResponseSaver) Written() int64 {
	return t.written
}

// StatusCode returns the status code of the relayed response, or 0 if it has no valid status line.
func (t *ResponseSaver) StatusCode() int {
	return StatusCode(t.statusLine)
}

// StatusCode parses the status code out of the status line at the start of a raw HTTP response.
func StatusCode(res []byte) int {
	if !bytes.HasPrefix(res, []byte("HTTP/")) {
		return 0
	}
	sp := bytes.IndexByte(res, ' ')
	if sp < 0 || len(res) < sp+4 {
		return 0
	}
	code, err := strconv.Atoi(string(res[sp+1 : sp+4]))
	if err != nil {
		return 0
	}
	return code
}
