// Package send uploads a list of user supplied paths, one unit at a time.
package send

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitrise-io/go-fileupload/internal"
	"github.com/bitrise-io/go-fileupload/network"
	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/docker/go-units"
)

// SendInput is the information that comes from the callers of this shared implementation
type SendInput struct {
	// StepID identifies the caller. Used for logging events.
	StepID  string
	Verbose bool
	// Paths are files, directories or glob patterns (`**` is supported).
	Paths       []string
	Directories source.DirectoryMode
	LargeFiles  source.LargeFileMode
	// Caption overrides the caption of every whole file unit when not nil.
	Caption   *string
	Thumbnail source.Thumbnail
	ForceFile bool
	// DeleteOnSuccess removes the source files whose units were all sent, once sending stops.
	DeleteOnSuccess bool
	// Limits can be left empty for the default limits.
	Limits source.Limits
}

// SentUnit is a unit the destination accepted.
type SentUnit struct {
	Name     string
	Path     string
	Size     int64
	ID       string
	Location string
}

// Report lists the sent units in order. A failed Send still reports the units sent before the failure.
type Report struct {
	Units []SentUnit
}

// TotalSize ...
func (r Report) TotalSize() int64 {
	var total int64
	for _, u := range r.Units {
		total += u.Size
	}
	return total
}

// Sender ...
type Sender interface {
	Send(input SendInput) (Report, error)
}

type sender struct {
	envRepo      env.Repository
	logger       log.Logger
	pathModifier pathutil.PathModifier
	uploader     network.Uploader
	prober       source.Prober
	extractor    source.ThumbnailExtractor
	osProxy      internal.OsProxy
	newTracker   func(stepID string) eventTracker
}

// NewSender creates a new sender instance. prober and extractor can be nil,
// units are sent without video attributes and generated thumbnails then.
func NewSender(
	envRepo env.Repository,
	logger log.Logger,
	pathModifier pathutil.PathModifier,
	uploader network.Uploader,
	prober source.Prober,
	extractor source.ThumbnailExtractor,
) *sender {
	s := &sender{
		envRepo:      envRepo,
		logger:       logger,
		pathModifier: pathModifier,
		uploader:     uploader,
		prober:       prober,
		extractor:    extractor,
		osProxy:      internal.RealOS{},
	}
	s.newTracker = func(stepID string) eventTracker {
		return newStepTracker(stepID, s.envRepo, s.logger)
	}
	return s
}

// Send ...
func (s *sender) Send(input SendInput) (Report, error) {
	s.logger.TDebugf("Send start")
	defer func() {
		s.logger.TDebugf("Send done")
	}()

	var report Report
	if s.uploader == nil {
		return report, fmt.Errorf("no uploader configured")
	}

	paths, err := s.evaluatePaths(input.Paths)
	if err != nil {
		return report, fmt.Errorf("failed to parse paths: %w", err)
	}
	s.logger.TDebugf("Final paths evaluated")
	if len(paths) == 0 {
		s.logger.Warnf("No paths to send.")
		return report, nil
	}

	pipeline, err := source.NewPipeline(paths, source.PipelineOptions{
		Directories: input.Directories,
		LargeFiles:  input.LargeFiles,
		Unit: source.UnitOptions{
			Caption:            input.Caption,
			Thumbnail:          input.Thumbnail,
			ForceFile:          input.ForceFile,
			Limits:             input.Limits,
			Prober:             s.prober,
			ThumbnailExtractor: s.extractor,
			Logger:             s.logger,
			OS:                 s.osProxy,
		},
	})
	if err != nil {
		return report, fmt.Errorf("failed to prepare files: %w", err)
	}
	s.logger.TDebugf("Pipeline created")

	tracker := s.newTracker(input.StepID)
	defer tracker.Wait()

	ctx := context.Background()
	startTime := time.Now()
	var sent sentSources

	err = source.ForEach(pipeline, func(unit *source.Unit) error {
		sent.start(unit.Path())

		sentUnit, err := s.sendUnit(ctx, unit)
		if err != nil {
			return err
		}
		report.Units = append(report.Units, sentUnit)
		trackUnitSent(tracker, unit, sentUnit.Size)
		return nil
	})
	if err != nil {
		if input.DeleteOnSuccess {
			s.deleteSources(sent.completed(false))
		}
		return report, err
	}
	if input.DeleteOnSuccess {
		s.deleteSources(sent.completed(true))
	}

	sendTime := time.Since(startTime).Round(time.Second)
	s.logger.Println()
	s.logger.Donef("Sent %d units (%s) in %s", len(report.Units), units.HumanSizeWithPrecision(float64(report.TotalSize()), 3), sendTime)
	trackSendFinished(tracker, sendTime, len(report.Units), report.TotalSize())

	return report, nil
}

func (s *sender) sendUnit(ctx context.Context, unit *source.Unit) (SentUnit, error) {
	size, err := unit.Size()
	if err != nil {
		return SentUnit{}, err
	}

	s.logger.Println()
	s.logger.Infof("Sending %s (%s)...", unit.Name(), units.HumanSizeWithPrecision(float64(size), 3))
	uploadStartTime := time.Now()

	result, err := s.uploader.Upload(ctx, unit, s.logger)
	if err != nil {
		return SentUnit{}, fmt.Errorf("send %s: %w", unit.Name(), err)
	}

	s.logger.Donef("Sent %s in %s", unit.Name(), time.Since(uploadStartTime).Round(time.Second))
	if result.Location != "" {
		s.logger.Printf("Location: %s", result.Location)
	}
	return SentUnit{
		Name:     unit.Name(),
		Path:     unit.Path(),
		Size:     size,
		ID:       result.ID,
		Location: result.Location,
	}, nil
}

// sentSources tracks the source files of the units in sending order.
// A source can repeat when the same path is given more than once.
type sentSources struct {
	order   []string
	seen    map[string]bool
	current string
}

func (s *sentSources) start(path string) {
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if !s.seen[path] {
		s.seen[path] = true
		s.order = append(s.order, path)
	}
	s.current = path
}

// completed returns the sources whose units were all sent. The source of the
// last unit is complete only if the run finished.
func (s *sentSources) completed(finished bool) []string {
	var paths []string
	for _, path := range s.order {
		if !finished && path == s.current {
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// deleteSources runs after sending, so a path given more than once is still
// present for each of its occurrences.
func (s *sender) deleteSources(paths []string) {
	for _, path := range paths {
		if err := s.osProxy.Remove(path); err != nil {
			s.logger.Warnf("Failed to delete %s: %s", path, err)
			continue
		}
		s.logger.Debugf("Deleted %s", path)
	}
}

func (s *sender) evaluatePaths(paths []string) ([]string, error) {
	// Expand wildcard paths
	var expandedPaths []string
	for _, path := range paths {
		path = strings.TrimRight(path, "\r\n")
		if strings.TrimSpace(path) == "" {
			continue
		}
		if !strings.Contains(path, "*") {
			expandedPaths = append(expandedPaths, path)
			continue
		}

		base, pattern := doublestar.SplitPattern(path)
		absBase, err := s.pathModifier.AbsPath(base) // resolves ~/ and expands any envs
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.Glob(os.DirFS(absBase), pattern, doublestar.WithNoFollow())
		if err != nil {
			s.logger.Warnf("Error in path pattern '%s': %s", path, err)
			continue
		}
		if len(matches) == 0 {
			s.logger.Warnf("No match for path pattern: %s", path)
			continue
		}

		for _, match := range matches {
			expandedPaths = append(expandedPaths, filepath.Join(absBase, match))
		}
	}

	// Sanitize paths, the pipeline reports missing ones. Repeated paths are kept.
	var finalPaths []string
	for _, path := range expandedPaths {
		absPath, err := s.pathModifier.AbsPath(path)
		if err != nil {
			s.logger.Warnf("Failed to parse path %s, error: %s", path, err)
			continue
		}

		finalPaths = append(finalPaths, absPath)
	}

	return finalPaths, nil
}
