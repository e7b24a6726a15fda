package shutdown

import "os"

// abortExitCode 当终止原语意外返回时使用的退出码（128 + SIGABRT）
const abortExitCode = 134

// OSProcess 控制当前操作系统进程
type OSProcess struct{}

// NewOSProcess 创建当前进程的控制器
func NewOSProcess() *OSProcess {
	return &OSProcess{}
}

// Exit 正常退出
func (p *OSProcess) Exit(code int) {
	os.Exit(code)
}

// Abort 立即终止当前进程，跳过 defer 与所有清理逻辑
func (p *OSProcess) Abort() {
	kill()
	os.Exit(abortExitCode)
}
