package engine

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// levelCounter counts records per level.
type levelCounter struct {
	mu     sync.Mutex
	counts map[slog.Level]int
}

func (h *levelCounter) Enabled(context.Context, slog.Level) bool { return true }
func (h *levelCounter) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[r.Level]++
	return nil
}
func (h *levelCounter) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *levelCounter) WithGroup(string) slog.Handler      { return h }

func TestRetryAttemptsLogAtDebug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := &levelCounter{counts: map[slog.Level]int{}}
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	defer slog.SetDefault(prev)

	c := newHTTPClient(buildOptions("m", srv.URL, []Option{fast}))
	if _, err := postJSON(context.Background(), c, srv.URL, []byte(`{}`), nil); err == nil {
		t.Fatal("expected an error from a 503 reply")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if n := h.counts[slog.LevelWarn] + h.counts[slog.LevelError]; n != 0 {
		t.Errorf("got %d records at Warn or above, want 0", n)
	}
	if h.counts[slog.LevelDebug] == 0 {
		t.Errorf("expected the retry attempts at Debug")
	}
}
