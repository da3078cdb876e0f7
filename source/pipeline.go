package source

// PipelineOptions are the policy choices of one pipeline run.
type PipelineOptions struct {
	Directories DirectoryMode
	LargeFiles  LargeFileMode
	Unit        UnitOptions
}

// NewPipeline chains validation, directory expansion and large file
// splitting over paths.
//
// The sequence is lazy unless a stage runs in a rejecting mode: then the
// stage output is collected up front, so a directory or an oversized file
// fails the run before the first unit reaches the consumer.
func NewPipeline(paths []string, opts PipelineOptions) (Iterator[*Unit], error) {
	unitOpts := opts.Unit.withDefaults()
	if err := unitOpts.Thumbnail.validate(); err != nil {
		return nil, err
	}

	files := FilterValid(FromSlice(paths), unitOpts.OS, unitOpts.Logger)

	files = DirectoryStage{Mode: opts.Directories, OS: unitOpts.OS}.Apply(files)
	if opts.Directories == DirectoryReject {
		collected, err := Collect(files)
		if err != nil {
			return nil, err
		}
		files = FromSlice(collected)
	} else {
		// expanded entries can be empty files or dangling links
		files = FilterValid(files, unitOpts.OS, unitOpts.Logger)
	}

	units := Splitter{Mode: opts.LargeFiles, Options: unitOpts}.Apply(files)
	if opts.LargeFiles == LargeFileReject {
		collected, err := Collect(units)
		if err != nil {
			return nil, err
		}
		units = FromSlice(collected)
	}

	return units, nil
}
