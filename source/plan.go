package source

import (
	"fmt"
)

// Defaults of Limits.
const (
	DefaultMaxUnitSize      int64 = 2097152000
	DefaultCaptionMaxLength       = 200
	// DefaultPartIndexWidth is the fixed zero padding of part indexes. It does
	// not grow with the part count, so files with more than 99 parts get
	// indexes wider than the padding.
	DefaultPartIndexWidth = 2
)

const captionEllipsis = "..."

// Limits are the size and naming constants of a pipeline run.
type Limits struct {
	// MaxUnitSize is the largest unit in bytes; bigger files are rejected or split.
	MaxUnitSize int64
	// CaptionMaxLength is the caption limit in characters, ellipsis included.
	CaptionMaxLength int
	// PartIndexWidth is the zero padding width of part name indexes.
	PartIndexWidth int
}

// DefaultLimits ...
func DefaultLimits() Limits {
	return Limits{
		MaxUnitSize:      DefaultMaxUnitSize,
		CaptionMaxLength: DefaultCaptionMaxLength,
		PartIndexWidth:   DefaultPartIndexWidth,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxUnitSize <= 0 {
		l.MaxUnitSize = DefaultMaxUnitSize
	}
	if l.CaptionMaxLength <= 0 {
		l.CaptionMaxLength = DefaultCaptionMaxLength
	}
	if l.PartIndexWidth <= 0 {
		l.PartIndexWidth = DefaultPartIndexWidth
	}
	return l
}

// Part is one window of a split file.
type Part struct {
	Index  int
	Offset int64
	Length int64
}

// PlanSplit divides totalSize bytes into ceil(totalSize/maxUnitSize) parts.
// Every part but the last is maxUnitSize long; the last one holds the rest
// and is never empty.
func PlanSplit(totalSize, maxUnitSize int64) []Part {
	if totalSize <= 0 || maxUnitSize <= 0 {
		return nil
	}

	count := int((totalSize + maxUnitSize - 1) / maxUnitSize)
	parts := make([]Part, 0, count)
	for i := 0; i < count; i++ {
		offset := int64(i) * maxUnitSize
		length := maxUnitSize
		if i == count-1 {
			length = totalSize - offset
		}
		parts = append(parts, Part{Index: i, Offset: offset, Length: length})
	}
	return parts
}

// PartName returns "<base>.<index>" with index zero padded to width.
func PartName(base string, index, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s.%0*d", base, width, index)
}

// Truncate shortens s to at most limit characters. A shortened string ends
// with "...", which counts towards the limit.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= len(captionEllipsis) {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(captionEllipsis)]) + captionEllipsis
}
