package network

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
)

type logLine struct {
	fn  string
	msg string
}

type recordingLogger struct {
	log.Logger
	lines []logLine
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{Logger: log.NewLogger()}
}

func (l *recordingLogger) record(fn, format string, v ...interface{}) {
	l.lines = append(l.lines, logLine{fn: fn, msg: fmt.Sprintf(format, v...)})
}

func (l *recordingLogger) Printf(format string, v ...interface{}) { l.record("Printf", format, v...) }
func (l *recordingLogger) Debugf(format string, v ...interface{}) { l.record("Debugf", format, v...) }
func (l *recordingLogger) Infof(format string, v ...interface{})  { l.record("Infof", format, v...) }
func (l *recordingLogger) Warnf(format string, v ...interface{})  { l.record("Warnf", format, v...) }
func (l *recordingLogger) Errorf(format string, v ...interface{}) { l.record("Errorf", format, v...) }

func (l *recordingLogger) messages(fn string) []string {
	var messages []string
	for _, line := range l.lines {
		if line.fn == fn {
			messages = append(messages, line.msg)
		}
	}
	return messages
}

type fakeItem struct {
	name       string
	content    []byte
	caption    string
	attributes []source.Attribute
	thumbnail  string
	opened     int
	closed     int
}

func (i *fakeItem) Name() string                   { return i.name }
func (i *fakeItem) Size() (int64, error)           { return int64(len(i.content)), nil }
func (i *fakeItem) Caption() string                { return i.caption }
func (i *fakeItem) Attributes() []source.Attribute { return i.attributes }
func (i *fakeItem) Thumbnail() (string, error)     { return i.thumbnail, nil }

func (i *fakeItem) Open() (io.ReadSeekCloser, error) {
	i.opened++
	return &trackingReader{ReadSeeker: bytes.NewReader(i.content), onClose: func() { i.closed++ }}, nil
}

type trackingReader struct {
	io.ReadSeeker
	onClose func()
}

func (r *trackingReader) Close() error {
	r.onClose()
	return nil
}

// splitUnit returns the second part of a file split into maxUnitSize windows,
// so uploads are exercised with a real window as body.
func splitUnit(t *testing.T, content []byte, maxUnitSize int64) *source.Unit {
	t.Helper()
	path := filepath.Join(t.TempDir(), "video.mp4")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	limits := source.DefaultLimits()
	limits.MaxUnitSize = maxUnitSize
	units, err := source.Collect(source.Splitter{
		Mode:    source.LargeFileSplit,
		Options: source.UnitOptions{Limits: limits},
	}.Apply(source.Single(path)))
	require.NoError(t, err)
	require.Greater(t, len(units), 1)
	return units[1]
}
