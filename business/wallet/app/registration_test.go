package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegistration_RunsOnce(t *testing.T) {
	var r Registration
	var runs atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Do(func() error {
				runs.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	if runs.Load() != 1 {
		t.Errorf("expected 1 run, got %d", runs.Load())
	}
	if r.State() != Registered {
		t.Errorf("expected registered, got %s", r.State())
	}
}

func TestRegistration_FailureAllowsRetry(t *testing.T) {
	var r Registration
	boom := errors.New("boom")

	ran, err := r.Do(func() error { return boom })
	if !ran || !errors.Is(err, boom) {
		t.Fatalf("expected failed run, got ran=%v err=%v", ran, err)
	}
	if r.State() != Uninitialized {
		t.Fatalf("expected uninitialized after failure, got %s", r.State())
	}

	ran, err = r.Do(func() error { return nil })
	if !ran || err != nil {
		t.Fatalf("expected retry to run, got ran=%v err=%v", ran, err)
	}

	ran, _ = r.Do(func() error { t.Error("should not run"); return nil })
	if ran {
		t.Error("expected no run once registered")
	}
}
