//go:build !linux

package specifier

func kernelRelease() string {
	return ""
}
