//go:build unix

package printer

import "syscall"

const nonBlockFlag = syscall.O_NONBLOCK
