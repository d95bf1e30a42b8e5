package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietSpinner(ctx context.Context, msg string) (*Spinner, *syncBuffer) {
	var out syncBuffer
	s := newSpinnerWithContext(ctx, msg)
	s.out = &out
	return s, &out
}

func TestSpinnerDrawsMessage(t *testing.T) {
	s, out := quietSpinner(context.Background(), "Computing layout...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("Refining crossings...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	got := out.String()
	for _, want := range []string{"Computing layout...", "Refining crossings..."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if s.Cancelled() {
		t.Error("Stop must not count as cancellation")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s, _ := quietSpinner(ctx, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s, _ := quietSpinner(ctx, "Testing with timeout...")
	s.Start()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "Testing idempotent stop...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "never started")
	s.Stop()
}

func TestSpinnerStopWithMessage(t *testing.T) {
	var status bytes.Buffer
	old := stdout
	stdout = &status
	defer func() { stdout = old }()

	s, _ := quietSpinner(context.Background(), "working")
	s.Start()
	s.StopWithSuccess("Done!")

	s, _ = quietSpinner(context.Background(), "working")
	s.Start()
	s.StopWithError("Failed!")

	got := status.String()
	if !strings.Contains(got, "Done!") || !strings.Contains(got, "Failed!") {
		t.Errorf("status output = %q", got)
	}
}
