// Package fileops provides the streaming primitives used to send file
// content to clients.
package fileops

import (
	"context"
	"errors"
	"io"
	"sync"
)

// BufferSize is the size of buffers handed out by GetBuffer.
const BufferSize = 32 << 10

// ErrOverflow is returned when the byte count of a copy overflows uint64.
var ErrOverflow = errors.New("fileops: byte count overflow")

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, BufferSize)
		return &buf
	},
}

// GetBuffer returns a pooled copy buffer and a function that returns it.
func GetBuffer() ([]byte, func()) {
	bp, _ := bufPool.Get().(*[]byte) //nolint:errcheck // pool only holds *[]byte
	return *bp, func() { bufPool.Put(bp) }
}

// CopyWithContext copies from src to dst until EOF or error, checking for
// context cancellation between reads. It returns the number of bytes written.
//
//nolint:gocognit // Follows stdlib io.Copy pattern; complexity is inherent to correct I/O handling
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader, buf []byte) (uint64, error) {
	if len(buf) == 0 {
		buf = make([]byte, BufferSize)
	}
	var written uint64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				//nolint:gosec // nw is guaranteed non-negative by io.Writer contract
				if written > ^uint64(0)-uint64(nw) {
					return written, ErrOverflow
				}
				written += uint64(nw) //nolint:gosec // overflow checked above
			}
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}
