package txscope

import (
	"context"
	"sync"
)

type fakeTx struct{ id int }

// fakeBeginner counts calls and records them in order next to any events
// the tests append themselves.
type fakeBeginner struct {
	mu          sync.Mutex
	begins      int
	commits     int
	rollbacks   int
	beginErr    error
	commitErr   error
	rollbackErr error
	// beginPanic makes Begin panic with this value when set.
	beginPanic any
	// beginEntered receives once per Begin call when set.
	beginEntered chan struct{}
	// beginGate blocks Begin until closed when set.
	beginGate chan struct{}
	events    []string
}

func (f *fakeBeginner) Begin(ctx context.Context) (*fakeTx, error) {
	if f.beginEntered != nil {
		f.beginEntered <- struct{}{}
	}
	if f.beginGate != nil {
		<-f.beginGate
	}
	if f.beginPanic != nil {
		panic(f.beginPanic)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	f.events = append(f.events, "begin")
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return &fakeTx{id: f.begins}, nil
}

func (f *fakeBeginner) Commit(_ context.Context, _ *fakeTx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	f.events = append(f.events, "commit")
	return f.commitErr
}

func (f *fakeBeginner) Rollback(_ context.Context, _ *fakeTx) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks++
	f.events = append(f.events, "rollback")
	return f.rollbackErr
}

func (f *fakeBeginner) record(event string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeBeginner) counts() (begins, commits, rollbacks int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins, f.commits, f.rollbacks
}

func (f *fakeBeginner) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	copy(out, f.events)
	return out
}
