// Package source turns a list of user supplied paths into a lazy sequence of
// bounded, uploadable units.
//
// The pipeline is a chain of stages: paths are validated, directories are
// rejected or expanded, and files above Limits.MaxUnitSize are rejected or
// split into windows that behave like independent files. Nothing is read and
// no descriptor is opened until a consumer calls Unit.Open.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-fileupload/internal"
	"github.com/bitrise-io/go-utils/v2/log"
)

// VideoInfo is what a Prober knows about a video file.
type VideoInfo struct {
	DurationSeconds int
	Width           int
	Height          int
}

// Prober inspects a file for type specific presentation attributes.
// It returns nil when the file is not a video.
type Prober interface {
	Probe(path string) (*VideoInfo, error)
}

// ThumbnailExtractor generates a thumbnail for a file and returns its path.
// An empty path means the file type has no thumbnail.
type ThumbnailExtractor interface {
	ExtractThumbnail(path string) (string, error)
}

// Attribute is a presentation hint passed along with a unit.
type Attribute interface {
	attribute()
}

// FilenameAttribute presents the unit as a generic file.
type FilenameAttribute struct {
	Name string
}

// VideoAttribute presents the unit as a playable video.
type VideoAttribute struct {
	DurationSeconds   int
	Width             int
	Height            int
	SupportsStreaming bool
}

func (FilenameAttribute) attribute() {}
func (VideoAttribute) attribute()    {}

// UnitOptions ...
type UnitOptions struct {
	// Caption overrides the default caption (the short name) when not nil.
	Caption   *string
	Thumbnail Thumbnail
	// ForceFile suppresses type specific attributes and thumbnails.
	ForceFile bool
	Limits    Limits

	Prober             Prober
	ThumbnailExtractor ThumbnailExtractor
	Logger             log.Logger
	OS                 internal.OsProxy
}

func (o UnitOptions) withDefaults() UnitOptions {
	o.Limits = o.Limits.withDefaults()
	if o.Logger == nil {
		o.Logger = log.NewLogger()
	}
	if o.OS == nil {
		o.OS = internal.RealOS{}
	}
	return o
}

type span struct {
	part Part
	name string
}

// Unit is one uploadable item: a whole file, or one window of a split file.
type Unit struct {
	path   string
	window *span
	opts   UnitOptions
}

// NewUnit returns a unit for the whole file at path.
func NewUnit(path string, opts UnitOptions) (*Unit, error) {
	if err := opts.Thumbnail.validate(); err != nil {
		return nil, err
	}
	return &Unit{path: path, opts: opts.withDefaults()}, nil
}

// newPartUnit returns a unit for one window of the file at path. Parts are
// always generic files without thumbnail, captioned with their own name.
func newPartUnit(path string, part Part, opts UnitOptions) *Unit {
	opts = opts.withDefaults()
	opts.Caption = nil
	opts.Thumbnail = NoThumbnail()
	opts.ForceFile = true

	return &Unit{
		path: path,
		window: &span{
			part: part,
			name: PartName(filepath.Base(path), part.Index, opts.Limits.PartIndexWidth),
		},
		opts: opts,
	}
}

// Path returns the path of the underlying file.
func (u *Unit) Path() string {
	return u.path
}

// IsPart reports whether the unit is a window of a split file.
func (u *Unit) IsPart() bool {
	return u.window != nil
}

// Part returns the window of a split file; ok is false for whole files.
func (u *Unit) Part() (part Part, ok bool) {
	if u.window == nil {
		return Part{}, false
	}
	return u.window.part, true
}

// Name ...
func (u *Unit) Name() string {
	if u.window != nil {
		return u.window.name
	}
	return filepath.Base(u.path)
}

// ShortName is the name without its extension. Parts keep their full name.
func (u *Unit) ShortName() string {
	name := u.Name()
	if u.window != nil {
		return name
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Size of a whole file is queried from the filesystem on every call,
// the size of a part is its fixed window length.
func (u *Unit) Size() (int64, error) {
	if u.window != nil {
		return u.window.part.Length, nil
	}

	info, err := u.opts.OS.Stat(u.path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", u.path, err)
	}
	return info.Size(), nil
}

// Caption ...
func (u *Unit) Caption() string {
	caption := u.ShortName()
	if u.opts.Caption != nil {
		caption = *u.opts.Caption
	}
	return Truncate(caption, u.opts.Limits.CaptionMaxLength)
}

// Attributes returns the presentation hints of the unit. Probe failures
// are logged and leave the type specific attribute out.
func (u *Unit) Attributes() []Attribute {
	if u.opts.ForceFile {
		return []Attribute{FilenameAttribute{Name: u.Name()}}
	}
	if u.opts.Prober == nil {
		return nil
	}

	info, err := u.opts.Prober.Probe(u.path)
	if err != nil {
		u.opts.Logger.Warnf("Failed to probe %s: %s", u.path, err)
		return nil
	}
	if info == nil {
		return nil
	}

	return []Attribute{VideoAttribute{
		DurationSeconds:   info.DurationSeconds,
		Width:             info.Width,
		Height:            info.Height,
		SupportsStreaming: true,
	}}
}

// Thumbnail resolves the thumbnail of the unit. An empty path means none.
// Only a missing explicit thumbnail file is an error; extraction failures
// are logged and swallowed.
func (u *Unit) Thumbnail() (string, error) {
	selector := u.opts.Thumbnail
	if selector.Mode == ThumbnailDisabled || u.opts.ForceFile {
		return "", nil
	}

	if selector.Mode == ThumbnailExplicit {
		if _, err := u.opts.OS.Lstat(selector.Path); err != nil {
			return "", &InvalidInputError{Path: selector.Path, Reason: "thumbnail file does not exist"}
		}
		return selector.Path, nil
	}

	if u.opts.ThumbnailExtractor == nil {
		return "", nil
	}
	thumb, err := u.opts.ThumbnailExtractor.ExtractThumbnail(u.path)
	if err != nil {
		u.opts.Logger.Warnf("Failed to extract thumbnail from %s: %s", u.path, err)
		return "", nil
	}
	return thumb, nil
}

// Open acquires a descriptor for reading the unit. Parts are opened as a
// Window positioned at the part start. The caller owns the returned reader
// and must close it.
func (u *Unit) Open() (io.ReadSeekCloser, error) {
	if u.window != nil {
		part := u.window.part
		w, err := openWindow(u.opts.OS, u.path, part.Offset, part.Length, u.window.name)
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	file, err := u.opts.OS.Open(u.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", u.path, err)
	}
	return file, nil
}

// WithReader opens the unit, passes the reader to fn and closes it on every
// exit path.
func (u *Unit) WithReader(fn func(io.ReadSeeker) error) (err error) {
	r, err := u.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", u.Name(), cerr)
		}
	}()

	return fn(r)
}
