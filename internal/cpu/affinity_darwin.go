//go:build darwin

package cpu

import "runtime"

// LogicalCount returns the number of logical CPUs usable by the process.
func LogicalCount() int {
	return runtime.NumCPU()
}

// PinWorker locks the goroutine to an OS thread.
// CPU pinning is not available on macOS, so ErrPinningUnsupported is returned
// alongside a valid unpin function.
func PinWorker(workerID int) (unpin func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, ErrPinningUnsupported
}
