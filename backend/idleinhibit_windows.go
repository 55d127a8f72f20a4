//go:build windows

package backend

import (
	"sync/atomic"
	"syscall"
)

const (
	esContinuous      uint = 0x80000000
	esSystemRequired  uint = 0x00000001
	esDisplayRequired uint = 0x00000002
)

var (
	idleInhibited  atomic.Bool
	executionState *syscall.LazyProc
)

// SetIdleInhibited keeps the display and system awake while a video is playing.
func SetIdleInhibited(inhibit bool) {
	if old := idleInhibited.Swap(inhibit); old == inhibit {
		return
	}

	if executionState == nil {
		kernel32 := syscall.NewLazyDLL("kernel32.dll")
		executionState = kernel32.NewProc("SetThreadExecutionState")
	}

	state := esContinuous
	if inhibit {
		state |= esSystemRequired | esDisplayRequired
	}
	syscall.SyscallN(executionState.Addr(), uintptr(state))
}
