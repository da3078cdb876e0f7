package source

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bitrise-io/go-fileupload/internal"
)

// ReadAll makes ReadN return everything left in the window.
const ReadAll = -1

// ErrOutsideWindow is returned by a seek whose target lies outside the window.
var ErrOutsideWindow = errors.New("seek target outside of window")

// Window presents the byte range [offset, offset+length) of a file as an
// independent readable unit. It owns its descriptor; windows over the same
// file never share cursor state.
//
// remaining is the number of bytes left to deliver. It is kept within
// [0, length]: reads decrease it, consumer seeks move it back and forth.
type Window struct {
	file      *os.File
	name      string
	offset    int64
	length    int64
	remaining int64
}

// OpenWindow opens path for reading and positions the cursor at offset.
func OpenWindow(path string, offset, length int64, name string) (*Window, error) {
	return openWindow(internal.RealOS{}, path, offset, length, name)
}

func openWindow(osProxy internal.OsProxy, path string, offset, length int64, name string) (*Window, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid window [%d, %d+%d) for %s", offset, offset, length, path)
	}

	file, err := osProxy.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open window file: %w", err)
	}

	w := &Window{
		file:      file,
		name:      name,
		offset:    offset,
		length:    length,
		remaining: length,
	}
	if _, err := w.SeekFile(offset, io.SeekStart, true); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("seek to window start %d: %w", offset, err)
	}

	return w, nil
}

// Name returns the synthetic name of the part the window exposes.
func (w *Window) Name() string {
	return w.name
}

// Size returns the fixed window length, regardless of how much was read.
func (w *Window) Size() int64 {
	return w.length
}

// Offset returns the absolute file offset the window starts at.
func (w *Window) Offset() int64 {
	return w.offset
}

// Remaining returns the number of bytes still readable inside the window.
func (w *Window) Remaining() int64 {
	return w.remaining
}

// ReadN reads min(n, Remaining()) bytes; n == ReadAll reads everything left.
// Once the window is exhausted it returns an empty slice and no error.
func (w *Window) ReadN(n int) ([]byte, error) {
	size := int64(n)
	if n == ReadAll {
		size = w.remaining
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid read size: %d", n)
	}
	if w.remaining == 0 {
		return []byte{}, nil
	}
	if size > w.remaining {
		size = w.remaining
	}

	position := w.position()
	w.remaining -= size

	buf := make([]byte, size)
	got, err := io.ReadFull(w.file, buf)
	if err != nil {
		return buf[:got], w.readError(position, size, int64(got), err)
	}
	return buf, nil
}

// Read implements io.Reader, clamping every read to the window.
func (w *Window) Read(p []byte) (int, error) {
	if w.remaining == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	size := int64(len(p))
	if size > w.remaining {
		size = w.remaining
	}

	position := w.position()
	got, err := io.ReadFull(w.file, p[:size])
	w.remaining -= int64(got)
	if err != nil {
		return got, w.readError(position, size, int64(got), err)
	}
	return got, nil
}

// SeekFile moves the descriptor in absolute file coordinates. Unless
// internalPositioning is set the move is mirrored in Remaining: seeking
// backward makes bytes readable again, seeking forward skips them. Targets
// that would push Remaining outside [0, Size()] are rejected with
// ErrOutsideWindow.
//
// internalPositioning is reserved for placing the cursor at the window start
// when the window is created.
func (w *Window) SeekFile(offset int64, whence int, internalPositioning bool) (int64, error) {
	if internalPositioning {
		return w.file.Seek(offset, whence)
	}

	previous, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = previous + offset
	case io.SeekEnd:
		info, err := w.file.Stat()
		if err != nil {
			return 0, err
		}
		target = info.Size() + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}

	remaining := w.remaining + (previous - target)
	if remaining < 0 || remaining > w.length {
		return previous, fmt.Errorf("%w: %s [%d, %d), target %d", ErrOutsideWindow, w.name, w.offset, w.offset+w.length, target)
	}

	pos, err := w.file.Seek(target, io.SeekStart)
	if err != nil {
		return pos, err
	}
	w.remaining = remaining
	return pos, nil
}

// Seek implements io.Seeker in window relative coordinates, so consumers
// that rewind a body (retrying uploaders, io.Copy) see the window as a file
// of Size() bytes.
func (w *Window) Seek(offset int64, whence int) (int64, error) {
	var rel int64
	switch whence {
	case io.SeekStart:
		rel = offset
	case io.SeekCurrent:
		rel = w.position() + offset
	case io.SeekEnd:
		rel = w.length + offset
	default:
		return 0, fmt.Errorf("invalid whence: %d", whence)
	}
	if rel < 0 || rel > w.length {
		return w.position(), fmt.Errorf("%w: %s relative position %d, size %d", ErrOutsideWindow, w.name, rel, w.length)
	}

	if _, err := w.SeekFile(w.offset+rel, io.SeekStart, false); err != nil {
		return w.position(), err
	}
	return rel, nil
}

// Close closes the window's descriptor.
func (w *Window) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// position returns the cursor relative to the window start.
func (w *Window) position() int64 {
	return w.length - w.remaining
}

func (w *Window) readError(position, want, got int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ConsistencyError{
			Name:     w.name,
			Position: w.offset + position,
			Want:     want,
			Got:      got,
			Err:      err,
		}
	}
	return fmt.Errorf("read %s: %w", w.name, err)
}
