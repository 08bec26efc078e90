// Package blobserve exposes the regular files of a single directory over HTTP.
//
// A [Resource] is bound to one base directory for its whole lifetime and
// serves two routes:
//
//   - GET /list returns a JSON array of [Descriptor] values, one per
//     regular file directly inside the base directory.
//   - GET /file?name=<path> streams the bytes of the named file.
//
// # Quick Start
//
//	res := blobserve.New("/srv/blobs", blobserve.WithLogger(logger))
//	err := http.ListenAndServe("127.0.0.1:8888", res)
//
// # Paths
//
// The name given to /file is joined onto the base directory without any
// cleaning. Parent segments such as ".." are passed to the operating system
// as-is and may resolve outside the base directory. Resource is meant for
// trusted, local use; it is not a confinement boundary.
//
// # Filesystems
//
// Reads go through an [afero.Fs], the host filesystem by default. Use
// [WithFS] to serve from another implementation, such as an in-memory
// filesystem in tests.
package blobserve
