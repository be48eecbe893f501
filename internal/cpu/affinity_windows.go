//go:build windows

package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// LogicalCount returns the number of logical CPUs usable by the process.
func LogicalCount() int {
	return runtime.NumCPU()
}

// setMask applies mask to the current OS thread and returns the previous one.
// Must be called after runtime.LockOSThread().
func setMask(mask uintptr) (uintptr, error) {
	handle, _, _ := getCurrentThread.Call()

	prevMask, _, err := setThreadAffinityMask.Call(handle, mask)
	if prevMask == 0 {
		return 0, err
	}
	return prevMask, nil
}

// PinWorker locks the calling goroutine to its OS thread and binds that
// thread to core workerID modulo the CPU count. The returned function
// restores the previous mask and unlocks the thread; if the restore fails
// the thread stays locked and is discarded when the goroutine exits.
func PinWorker(workerID int) (unpin func(), err error) {
	runtime.LockOSThread()

	// the mask is a single machine word; bit N = CPU N
	n := min(runtime.NumCPU(), 64)
	prev, err := setMask(uintptr(1) << uint(coreFor(workerID, n)))
	if err != nil {
		return runtime.UnlockOSThread, err
	}

	return func() {
		if _, err := setMask(prev); err == nil {
			runtime.UnlockOSThread()
		}
	}, nil
}
