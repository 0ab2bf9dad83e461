package transport

import (
	"errors"
	"testing"
	"time"
)

func TestEmbeddedTorBeforeStart(t *testing.T) {
	t.Parallel()

	t.Run("default timeout", func(t *testing.T) {
		t.Parallel()
		if got := NewEmbeddedTor().startupTimeout; got != 3*time.Minute {
			t.Errorf("startupTimeout = %v, want 3m", got)
		}
	})

	t.Run("WithStartupTimeout", func(t *testing.T) {
		t.Parallel()
		if got := NewEmbeddedTor(WithStartupTimeout(time.Minute)).startupTimeout; got != time.Minute {
			t.Errorf("startupTimeout = %v, want 1m", got)
		}
		if got := NewEmbeddedTor(WithStartupTimeout(0)).startupTimeout; got != 3*time.Minute {
			t.Errorf("zero timeout must keep the default, got %v", got)
		}
	})

	t.Run("not running", func(t *testing.T) {
		t.Parallel()
		e := NewEmbeddedTor()
		if e.IsRunning() {
			t.Error("IsRunning() = true before Start")
		}
		if _, err := e.ForwardProxy(); !errors.Is(err, ErrTorNotRunning) {
			t.Errorf("ForwardProxy() error = %v, want ErrTorNotRunning", err)
		}
		if err := e.Stop(); err != nil {
			t.Errorf("Stop() on unstarted daemon = %v", err)
		}
	})
}
