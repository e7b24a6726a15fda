//go:build windows

package desktop

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CheckPortOccupied 返回监听指定端口的进程 PID，端口空闲时返回 -1
func CheckPortOccupied(port int) (int, error) {
	cmd := exec.Command("netstat", "-ano", "-p", "TCP")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return -1, fmt.Errorf("检查端口失败: 执行 netstat: %w", err)
	}
	return parseNetstatPID(out.String(), port), nil
}

// parseNetstatPID 从 netstat -ano 输出中查找本地端口对应的 PID
func parseNetstatPID(output string, port int) int {
	want := strconv.Itoa(port)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}

		localAddr := fields[1]
		idx := strings.LastIndex(localAddr, ":")
		if idx == -1 || localAddr[idx+1:] != want {
			continue
		}

		pid, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			continue
		}
		return pid
	}
	return -1
}
