//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package capabilities

func hostRelease() string { return "" }
