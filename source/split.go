package source

import (
	"fmt"
)

// LargeFileMode selects what the splitting stage does with files above
// Limits.MaxUnitSize.
type LargeFileMode int

const (
	// LargeFileReject fails the stage on the first oversized file.
	LargeFileReject LargeFileMode = iota
	// LargeFileSplit yields an oversized file as a sequence of parts.
	LargeFileSplit
)

// ParseLargeFileMode accepts the configuration values "fail" and "split".
func ParseLargeFileMode(s string) (LargeFileMode, error) {
	switch s {
	case "fail":
		return LargeFileReject, nil
	case "split":
		return LargeFileSplit, nil
	default:
		return 0, &UnsupportedValueError{Field: "large_files", Value: s}
	}
}

func (m LargeFileMode) String() string {
	switch m {
	case LargeFileReject:
		return "fail"
	case LargeFileSplit:
		return "split"
	default:
		return fmt.Sprintf("LargeFileMode(%d)", int(m))
	}
}

// Splitter turns plain file paths into units no bigger than
// Options.Limits.MaxUnitSize.
type Splitter struct {
	Mode    LargeFileMode
	Options UnitOptions
}

// Apply ...
func (s Splitter) Apply(paths Iterator[string]) Iterator[*Unit] {
	return FlatMap(paths, s.Expand)
}

// Expand returns the units the file at path is uploaded as: the file itself
// when it fits, its parts in ascending order otherwise.
func (s Splitter) Expand(path string) (Iterator[*Unit], error) {
	opts := s.Options.withDefaults()

	info, err := opts.OS.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	size := info.Size()
	if size <= opts.Limits.MaxUnitSize {
		unit, err := NewUnit(path, opts)
		if err != nil {
			return nil, err
		}
		return Single(unit), nil
	}

	switch s.Mode {
	case LargeFileReject:
		return nil, &InvalidInputError{Path: path, Reason: "is too large"}
	case LargeFileSplit:
		parts := PlanSplit(size, opts.Limits.MaxUnitSize)
		opts.Logger.Debugf("Splitting %s (%d bytes) into %d parts", path, size, len(parts))
		return Map(FromSlice(parts), func(part Part) (*Unit, error) {
			return newPartUnit(path, part, opts), nil
		}), nil
	default:
		return nil, &UnsupportedValueError{Field: "large_files", Value: s.Mode}
	}
}
