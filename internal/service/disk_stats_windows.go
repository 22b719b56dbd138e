//go:build windows

package service

import (
	"os"

	"golang.org/x/sys/windows"
)

func getDiskUsage(path string) DiskUsage {
	stat, err := os.Stat(path)
	if err != nil || !stat.IsDir() {
		return DiskUsage{Path: path}
	}

	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return DiskUsage{Path: path}
	}

	var freeBytes, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytes, &totalBytes, &totalFreeBytes); err != nil {
		return DiskUsage{Path: path}
	}

	return newDiskUsage(path, int64(totalBytes), int64(freeBytes))
}
