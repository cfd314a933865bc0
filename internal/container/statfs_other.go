//go:build !linux && !darwin

package container

import "errors"

func freeSpace(string) (uint64, error) {
	return 0, errors.New("free space check unsupported on this platform")
}
