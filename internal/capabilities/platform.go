package capabilities

import "runtime"

// NormalizePlatform maps an OS identifier to the platform name reported in
// device properties. Unknown identifiers pass through unchanged.
func NormalizePlatform(osName string) string {
	switch osName {
	case "darwin":
		return "osx"
	case "win32", "win64", "windows":
		return "windows"
	default:
		return osName
	}
}

// HostPlatform describes the machine the suite runs on.
func HostPlatform() Platform {
	return Platform{
		Name:    NormalizePlatform(runtime.GOOS),
		Version: hostRelease(),
	}
}
