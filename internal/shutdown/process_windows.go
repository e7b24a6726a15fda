//go:build windows

package shutdown

import "golang.org/x/sys/windows"

// kill 通过 TerminateProcess 结束当前进程
func kill() {
	_ = windows.TerminateProcess(windows.CurrentProcess(), abortExitCode)
}
