package blobserve

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Option configures a Resource.
type Option func(*Resource)

// WithFS sets the filesystem the base directory is read from.
// The default is the host filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(r *Resource) {
		r.fs = fsys
	}
}

// WithLogger sets the logger for request and enumeration events.
// By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resource) {
		r.logger = logger
	}
}

// WithMaxConcurrentReads limits how many file downloads may stream at once.
// Requests beyond the limit wait for a slot until their context ends.
// Zero or a negative value means no limit.
func WithMaxConcurrentReads(n int) Option {
	return func(r *Resource) {
		r.maxReads = n
	}
}
