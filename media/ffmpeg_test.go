package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommandFactory struct {
	outputs map[string]string
	errs    map[string]error
	// onRun is called with the arguments of every command that runs
	onRun func(name string, args []string)
	calls []string
}

func (f *fakeCommandFactory) Create(name string, args []string, _ *command.Opts) command.Command {
	f.calls = append(f.calls, name)
	return fakeCommand{factory: f, name: name, args: args}
}

type fakeCommand struct {
	factory *fakeCommandFactory
	name    string
	args    []string
}

func (c fakeCommand) run() (string, error) {
	if c.factory.onRun != nil {
		c.factory.onRun(c.name, c.args)
	}
	return c.factory.outputs[c.name], c.factory.errs[c.name]
}

func (c fakeCommand) PrintableCommandArgs() string                       { return c.name }
func (c fakeCommand) Run() error                                         { _, err := c.run(); return err }
func (c fakeCommand) RunAndReturnExitCode() (int, error)                 { return 0, nil }
func (c fakeCommand) RunAndReturnTrimmedOutput() (string, error)         { return c.run() }
func (c fakeCommand) RunAndReturnTrimmedCombinedOutput() (string, error) { return c.run() }
func (c fakeCommand) Start() error                                       { return nil }
func (c fakeCommand) Wait() error                                        { return nil }

const probeJSON = `{
	"streams": [{"width": 1280, "height": 720}],
	"format": {"duration": "61.48"}
}`

func newTestFFmpeg(factory *fakeCommandFactory, isVideo bool) *FFmpeg {
	f := NewFFmpeg(factory, pathutil.NewPathProvider(), pathutil.NewPathChecker(), log.NewLogger())
	f.isVideo = func(string) bool { return isVideo }
	return f
}

func TestFFmpeg_Probe(t *testing.T) {
	factory := &fakeCommandFactory{outputs: map[string]string{"ffprobe": probeJSON}}

	info, err := newTestFFmpeg(factory, true).Probe("video.mp4")
	require.NoError(t, err)
	assert.Equal(t, &source.VideoInfo{DurationSeconds: 61, Width: 1280, Height: 720}, info)
}

func TestFFmpeg_ProbeSkipsOtherTypes(t *testing.T) {
	factory := &fakeCommandFactory{}

	info, err := newTestFFmpeg(factory, false).Probe("notes.txt")
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.Empty(t, factory.calls)
}

func TestFFmpeg_ProbeErrors(t *testing.T) {
	factory := &fakeCommandFactory{errs: map[string]error{"ffprobe": errors.New("exit status 1")}}
	_, err := newTestFFmpeg(factory, true).Probe("video.mp4")
	require.Error(t, err)

	factory = &fakeCommandFactory{outputs: map[string]string{"ffprobe": "not json"}}
	_, err = newTestFFmpeg(factory, true).Probe("video.mp4")
	require.Error(t, err)
}

func TestFFmpeg_ExtractThumbnail(t *testing.T) {
	factory := &fakeCommandFactory{
		outputs: map[string]string{"ffprobe": probeJSON},
	}
	var seekTo string
	factory.onRun = func(name string, args []string) {
		if name != "ffmpeg" {
			return
		}
		seekTo = args[2]
		out := args[len(args)-1]
		require.NoError(t, os.WriteFile(out, []byte("jpg"), 0o644))
	}

	thumb, err := newTestFFmpeg(factory, true).ExtractThumbnail("/videos/holiday.mp4")
	require.NoError(t, err)
	assert.Equal(t, "holiday.jpg", filepath.Base(thumb))
	assert.Equal(t, "30", seekTo)
	assert.FileExists(t, thumb)
	assert.Equal(t, []string{"ffprobe", "ffmpeg"}, factory.calls)
}

func TestFFmpeg_ExtractThumbnailFailures(t *testing.T) {
	t.Run("ffmpeg fails", func(t *testing.T) {
		factory := &fakeCommandFactory{
			outputs: map[string]string{"ffprobe": probeJSON, "ffmpeg": "Invalid data found"},
			errs:    map[string]error{"ffmpeg": errors.New("exit status 1")},
		}

		_, err := newTestFFmpeg(factory, true).ExtractThumbnail("video.mp4")
		var thumbErr *ThumbError
		require.True(t, errors.As(err, &thumbErr))
		assert.Contains(t, err.Error(), "Invalid data found")
	})

	t.Run("no image written", func(t *testing.T) {
		factory := &fakeCommandFactory{outputs: map[string]string{"ffprobe": probeJSON}}

		_, err := newTestFFmpeg(factory, true).ExtractThumbnail("video.mp4")
		var thumbErr *ThumbError
		require.True(t, errors.As(err, &thumbErr))
	})

	t.Run("not a video", func(t *testing.T) {
		factory := &fakeCommandFactory{}

		thumb, err := newTestFFmpeg(factory, false).ExtractThumbnail("notes.txt")
		require.NoError(t, err)
		assert.Empty(t, thumb)
		assert.Empty(t, factory.calls)
	})
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 61, parseDuration("61.48"))
	assert.Equal(t, 2, parseDuration("1.5"))
	assert.Equal(t, 0, parseDuration("N/A"))
	assert.Equal(t, 0, parseDuration(""))
}
