//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// processMask is the affinity mask read at startup, before any worker
// thread has been pinned. Later reads of the calling thread's mask may see
// a single core while a pinned worker is running.
var processMask, processMaskErr = readMask()

func readMask() (unix.CPUSet, error) {
	var mask unix.CPUSet
	err := unix.SchedGetaffinity(0, &mask) // 0 = current thread
	return mask, err
}

// LogicalCount returns the number of logical CPUs in the process's affinity
// mask. This honours taskset and cpuset restrictions; if the mask could not
// be read it falls back to runtime.NumCPU.
func LogicalCount() int {
	if processMaskErr == nil {
		if n := processMask.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

// pinToCore pins the current OS thread to a specific CPU core.
// Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) error {
	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	return unix.SchedSetaffinity(0, &mask)
}

// allowedCores lists the CPU ids in the process's affinity mask.
func allowedCores() []int {
	if processMaskErr != nil {
		return nil
	}

	n := processMask.Count()
	cores := make([]int, 0, n)
	for id := 0; len(cores) < n; id++ {
		if processMask.IsSet(id) {
			cores = append(cores, id)
		}
	}
	return cores
}

// PinWorker locks the calling goroutine to its OS thread and binds that
// thread to one of the cores the process is allowed to run on, chosen by
// workerID modulo the number of such cores. The returned function must be
// called from the same goroutine, even when err is non-nil. It restores the
// thread's previous mask before unlocking; if that fails the thread stays
// locked, so the runtime discards it when the goroutine exits.
func PinWorker(workerID int) (unpin func(), err error) {
	runtime.LockOSThread()

	saved, err := readMask()
	if err != nil {
		// nothing to restore to; the thread is never handed back
		return func() {}, err
	}

	unpin = func() {
		if unix.SchedSetaffinity(0, &saved) == nil {
			runtime.UnlockOSThread()
		}
	}

	cores := allowedCores()
	if len(cores) == 0 {
		return unpin, pinToCore(coreFor(workerID, runtime.NumCPU()))
	}
	return unpin, pinToCore(cores[coreFor(workerID, len(cores))])
}
