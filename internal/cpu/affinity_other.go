//go:build !linux && !darwin && !windows

package cpu

import "runtime"

// LogicalCount returns the number of logical CPUs usable by the process.
func LogicalCount() int {
	return runtime.NumCPU()
}

// PinWorker locks the goroutine to an OS thread; pinning is unsupported here.
func PinWorker(workerID int) (unpin func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, ErrPinningUnsupported
}
