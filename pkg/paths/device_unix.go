//go:build !windows

package paths

import (
	"io/fs"
	"syscall"
)

func deviceID(info fs.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Dev) //nolint:unconvert
	}
	return 0
}
