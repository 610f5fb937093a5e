package txscope

import (
	"bytes"
	"errors"
	"maps"
	"net/http"
)

// responseObserver holds the response back until the transaction is
// finalized. A Flush, or a body larger than maxBuffer, switches it to
// streaming: status and buffered bytes go out and later writes pass
// through, with finalization left until the handler returns.
type responseObserver struct {
	w      http.ResponseWriter
	header http.Header
	// head is the header snapshot taken when the status was fixed.
	head        http.Header
	status      int
	wroteHeader bool
	buf         bytes.Buffer
	maxBuffer   int
	streaming   bool
	err         error
}

func newResponseObserver(w http.ResponseWriter, maxBuffer int) *responseObserver {
	return &responseObserver{
		w:         w,
		header:    make(http.Header),
		status:    http.StatusOK,
		maxBuffer: maxBuffer,
	}
}

func (o *responseObserver) Header() http.Header { return o.header }

func (o *responseObserver) WriteHeader(code int) {
	if o.wroteHeader {
		return
	}
	// Informational heads go out at once and leave the final status open.
	if code >= 100 && code <= 199 && code != http.StatusSwitchingProtocols {
		maps.Copy(o.w.Header(), o.header)
		o.w.WriteHeader(code)
		return
	}
	o.status = code
	o.wroteHeader = true
	o.head = o.header.Clone()
}

func (o *responseObserver) Write(p []byte) (int, error) {
	o.WriteHeader(http.StatusOK)
	if o.streaming {
		return o.passThrough(p)
	}
	o.buf.Write(p)
	if o.maxBuffer > 0 && o.buf.Len() > o.maxBuffer {
		o.startStream()
		if o.err != nil {
			return 0, o.err
		}
	}
	return len(p), nil
}

func (o *responseObserver) Flush() {
	_ = o.FlushError()
}

// FlushError is picked up by http.ResponseController.
func (o *responseObserver) FlushError() error {
	o.WriteHeader(http.StatusOK)
	o.startStream()
	if o.err != nil {
		return o.err
	}
	if err := http.NewResponseController(o.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		o.err = err
		return err
	}
	return nil
}

func (o *responseObserver) Unwrap() http.ResponseWriter { return o.w }

func (o *responseObserver) Status() int { return o.status }

func (o *responseObserver) Streaming() bool { return o.streaming }

// StreamErr is the first error hit while writing to the client.
func (o *responseObserver) StreamErr() error { return o.err }

func (o *responseObserver) startStream() {
	if o.streaming {
		return
	}
	o.streaming = true
	o.sendHead()
	if o.buf.Len() > 0 {
		_, _ = o.passThrough(o.buf.Bytes())
		o.buf.Reset()
	}
}

// flushBuffered sends the held-back response after eager finalization.
func (o *responseObserver) flushBuffered() error {
	o.sendHead()
	if o.buf.Len() == 0 {
		return nil
	}
	_, err := o.passThrough(o.buf.Bytes())
	o.buf.Reset()
	return err
}

// discard drops everything the handler produced so an error response can
// replace it.
func (o *responseObserver) discard() {
	o.header = make(http.Header)
	o.head = nil
	o.buf.Reset()
}

func (o *responseObserver) sendHead() {
	head := o.head
	if head == nil {
		head = o.header
	}
	maps.Copy(o.w.Header(), head)
	o.w.WriteHeader(o.status)
}

func (o *responseObserver) passThrough(p []byte) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	n, err := o.w.Write(p)
	if err != nil {
		o.err = err
	}
	return n, err
}
