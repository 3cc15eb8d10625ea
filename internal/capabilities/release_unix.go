//go:build linux || darwin || freebsd || netbsd || openbsd

package capabilities

import "golang.org/x/sys/unix"

// hostRelease returns the kernel release, the same value uname -r prints.
func hostRelease() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Release[:])
}
