package source

// ThumbnailMode selects how a unit's thumbnail is resolved.
type ThumbnailMode int

const (
	// ThumbnailAuto lets the ThumbnailExtractor generate one.
	ThumbnailAuto ThumbnailMode = iota
	// ThumbnailDisabled never attaches a thumbnail.
	ThumbnailDisabled
	// ThumbnailExplicit attaches the file at Thumbnail.Path.
	ThumbnailExplicit
)

// Thumbnail is the thumbnail selector of a unit. The zero value is ThumbnailAuto.
type Thumbnail struct {
	Mode ThumbnailMode
	Path string
}

// AutoThumbnail ...
func AutoThumbnail() Thumbnail {
	return Thumbnail{Mode: ThumbnailAuto}
}

// NoThumbnail ...
func NoThumbnail() Thumbnail {
	return Thumbnail{Mode: ThumbnailDisabled}
}

// ThumbnailFile selects an existing image file as thumbnail.
func ThumbnailFile(path string) Thumbnail {
	return Thumbnail{Mode: ThumbnailExplicit, Path: path}
}

func (t Thumbnail) validate() error {
	switch t.Mode {
	case ThumbnailAuto, ThumbnailDisabled:
		return nil
	case ThumbnailExplicit:
		if t.Path == "" {
			return &UnsupportedValueError{Field: "thumbnail", Value: "empty thumbnail path"}
		}
		return nil
	default:
		return &UnsupportedValueError{Field: "thumbnail", Value: t.Mode}
	}
}
