package watcher

import "errors"

// Errors returned by the directory watcher.
var (
	// ErrWatcherClosed is returned when operating on a closed watcher.
	ErrWatcherClosed = errors.New("watcher is closed")

	// ErrPathNotExist is returned when the watched directory doesn't exist.
	ErrPathNotExist = errors.New("path does not exist")

	// ErrNotDirectory is returned when the watched path is not a directory.
	ErrNotDirectory = errors.New("path is not a directory")
)
