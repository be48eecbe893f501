// Package cpu reports how many logical processors the process may use and
// pins worker threads to individual cores.
package cpu

import "errors"

// ErrPinningUnsupported is returned by PinWorker on platforms where a thread
// can be locked but not bound to a specific core.
var ErrPinningUnsupported = errors.New("cpu: thread pinning not supported on this platform")

// coreFor maps a worker id onto the range [0, n).
func coreFor(workerID, n int) int {
	if n <= 0 {
		return 0
	}
	id := workerID % n
	if id < 0 {
		id += n
	}
	return id
}
