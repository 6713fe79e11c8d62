//go:build linux || darwin

package control

import "golang.org/x/sys/unix"

func ReuseAddr() Func {
	return func(fd int) error {
		return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}
}

func NoDelay() Func {
	return func(fd int) error {
		return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
}

func NonBlock() Func {
	return func(fd int) error {
		unix.CloseOnExec(fd)
		return unix.SetNonblock(fd, true)
	}
}
