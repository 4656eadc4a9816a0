//go:build !windows

package exec

import "syscall"

func killableGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
