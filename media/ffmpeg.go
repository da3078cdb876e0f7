package media

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const thumbnailWidth = 320

// ThumbError is returned when a thumbnail could not be generated.
type ThumbError struct {
	Path string
	Err  error
}

func (e *ThumbError) Error() string {
	return fmt.Sprintf("generate thumbnail for %s: %s", e.Path, e.Err)
}

func (e *ThumbError) Unwrap() error { return e.Err }

// FFmpeg probes videos with ffprobe and extracts thumbnails with ffmpeg.
// Files that are not videos are skipped without running anything.
type FFmpeg struct {
	cmdFactory   command.Factory
	pathProvider pathutil.PathProvider
	pathChecker  pathutil.PathChecker
	logger       log.Logger
	isVideo      func(path string) bool
}

// NewFFmpeg ...
func NewFFmpeg(cmdFactory command.Factory, pathProvider pathutil.PathProvider, pathChecker pathutil.PathChecker, logger log.Logger) *FFmpeg {
	return &FFmpeg{
		cmdFactory:   cmdFactory,
		pathProvider: pathProvider,
		pathChecker:  pathChecker,
		logger:       logger,
		isVideo:      IsVideo,
	}
}

type probeOutput struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe implements source.Prober.
func (f *FFmpeg) Probe(path string) (*source.VideoInfo, error) {
	if !f.isVideo(path) {
		return nil, nil
	}

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height:format=duration",
		"-of", "json",
		path,
	}
	cmd := f.cmdFactory.Create("ffprobe", args, nil)
	f.logger.Debugf("$ %s", cmd.PrintableCommandArgs())

	out, err := cmd.RunAndReturnTrimmedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe probeOutput
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &source.VideoInfo{DurationSeconds: parseDuration(probe.Format.Duration)}
	if len(probe.Streams) > 0 {
		info.Width = probe.Streams[0].Width
		info.Height = probe.Streams[0].Height
	}
	return info, nil
}

// ExtractThumbnail implements source.ThumbnailExtractor. The frame is taken
// from the middle of the video and scaled to thumbnailWidth.
func (f *FFmpeg) ExtractThumbnail(path string) (string, error) {
	if !f.isVideo(path) {
		return "", nil
	}

	offset := 0
	if info, err := f.Probe(path); err == nil && info != nil {
		offset = info.DurationSeconds / 2
	} else if err != nil {
		f.logger.Debugf("Failed to probe %s, using the first frame: %s", path, err)
	}

	tmpDir, err := f.pathProvider.CreateTempDir("thumbnail")
	if err != nil {
		return "", &ThumbError{Path: path, Err: err}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	thumb := filepath.Join(tmpDir, name+".jpg")

	args := []string{
		"-y",
		"-ss", strconv.Itoa(offset),
		"-i", path,
		"-vframes", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", thumbnailWidth),
		thumb,
	}
	cmd := f.cmdFactory.Create("ffmpeg", args, nil)
	f.logger.Debugf("$ %s", cmd.PrintableCommandArgs())

	if out, err := cmd.RunAndReturnTrimmedCombinedOutput(); err != nil {
		return "", &ThumbError{Path: path, Err: fmt.Errorf("%w: %s", err, out)}
	}

	exists, err := f.pathChecker.IsPathExists(thumb)
	if err != nil {
		return "", &ThumbError{Path: path, Err: err}
	}
	if !exists {
		return "", &ThumbError{Path: path, Err: fmt.Errorf("ffmpeg produced no image")}
	}
	return thumb, nil
}

func parseDuration(s string) int {
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return int(math.Round(seconds))
}
