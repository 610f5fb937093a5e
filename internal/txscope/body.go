package txscope

import (
	"errors"
	"io"
	"sync"
)

// ObserveBody wraps a lazily produced body so that done runs exactly once:
// with nil at io.EOF, with the read error when the source fails, or with
// ErrStreamAbandoned when the body is closed before EOF. An error returned
// by done at EOF replaces io.EOF so the consumer sees an unclean end; after a
// read error it is joined to it. Close returns it as well.
func ObserveBody(body io.ReadCloser, done func(streamErr error) error) io.ReadCloser {
	return &observedBody{body: body, done: done}
}

type observedBody struct {
	body io.ReadCloser
	done func(error) error
	once sync.Once
	err  error
}

func (b *observedBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, io.EOF) {
		if ferr := b.finish(nil); ferr != nil {
			return n, ferr
		}
		return n, err
	}
	if ferr := b.finish(err); ferr != nil {
		return n, errors.Join(err, ferr)
	}
	return n, err
}

// Close reports the finalization error again, whichever call first ran it.
func (b *observedBody) Close() error {
	closeErr := b.body.Close()
	if ferr := b.finish(ErrStreamAbandoned); ferr != nil {
		return errors.Join(closeErr, ferr)
	}
	return closeErr
}

func (b *observedBody) finish(streamErr error) error {
	b.once.Do(func() {
		b.err = b.done(streamErr)
	})
	return b.err
}
