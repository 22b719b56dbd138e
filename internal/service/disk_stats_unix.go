//go:build !windows

package service

import (
	"os"

	"golang.org/x/sys/unix"
)

func getDiskUsage(path string) DiskUsage {
	stat, err := os.Stat(path)
	if err != nil || !stat.IsDir() {
		return DiskUsage{Path: path}
	}

	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return DiskUsage{Path: path}
	}

	total := int64(fs.Blocks) * int64(fs.Bsize)
	free := int64(fs.Bavail) * int64(fs.Bsize)
	return newDiskUsage(path, total, free)
}
