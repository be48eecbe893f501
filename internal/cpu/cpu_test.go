package cpu

import (
	"errors"
	"runtime"
	"sync"
	"testing"
)

func TestLogicalCount(t *testing.T) {
	n := LogicalCount()
	if n < 1 {
		t.Fatalf("expected at least one logical CPU, got %d", n)
	}
	if n > runtime.NumCPU() {
		t.Errorf("logical count %d exceeds runtime.NumCPU() %d", n, runtime.NumCPU())
	}
}

func TestCoreFor(t *testing.T) {
	tests := []struct {
		name     string
		workerID int
		n        int
		want     int
	}{
		{"in range", 2, 4, 2},
		{"wraps", 5, 4, 1},
		{"exact multiple", 8, 4, 0},
		{"negative id", -1, 4, 3},
		{"no cores", 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := coreFor(tt.workerID, tt.n); got != tt.want {
				t.Errorf("coreFor(%d, %d) = %d, want %d", tt.workerID, tt.n, got, tt.want)
			}
		})
	}
}

func TestPinWorker(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			unpin, err := PinWorker(id)
			if unpin == nil {
				t.Errorf("worker %d: expected unpin function", id)
				return
			}
			defer unpin()

			if err != nil {
				// sandboxes may refuse sched_setaffinity; only the darwin path is fixed
				if runtime.GOOS == "darwin" && !errors.Is(err, ErrPinningUnsupported) {
					t.Errorf("worker %d: expected ErrPinningUnsupported, got %v", id, err)
				}
				t.Logf("worker %d: pin: %v", id, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestLogicalCount_StableAfterPinning(t *testing.T) {
	before := LogicalCount()

	// pin and release more workers than there are threads in use, so that
	// released threads are picked up again by the goroutines below
	var wg sync.WaitGroup
	for i := range 4 * runtime.GOMAXPROCS(0) {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			unpin, err := PinWorker(id)
			defer unpin()
			if err != nil {
				t.Logf("worker %d: pin: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	counts := make(chan int, 64)
	for range cap(counts) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runtime.Gosched()
			counts <- LogicalCount()
		}()
	}
	wg.Wait()
	close(counts)

	for n := range counts {
		if n != before {
			t.Fatalf("expected logical count %d after pinning, got %d", before, n)
		}
	}
}
