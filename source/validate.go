package source

import (
	"github.com/bitrise-io/go-fileupload/internal"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	reasonNotExist = "does not exist"
	reasonEmpty    = "is empty"
)

// IsValid reports whether path can be uploaded: it has to exist (a dangling
// symlink counts as existing) and must not be empty. The reason describes
// why an invalid path was refused.
func IsValid(path string) (bool, string) {
	return isValid(internal.RealOS{}, path)
}

func isValid(osProxy internal.OsProxy, path string) (bool, string) {
	if _, err := osProxy.Lstat(path); err != nil {
		return false, reasonNotExist
	}

	info, err := osProxy.Stat(path)
	if err != nil {
		// dangling symlink, nothing to read
		return false, reasonEmpty
	}
	if info.IsDir() {
		return true, ""
	}
	if info.Size() == 0 {
		return false, reasonEmpty
	}
	return true, ""
}

// FilterValid drops invalid paths from paths, reporting each one on logger.
// A bad entry never stops the batch.
func FilterValid(paths Iterator[string], osProxy internal.OsProxy, logger log.Logger) Iterator[string] {
	if osProxy == nil {
		osProxy = internal.RealOS{}
	}
	return Filter(paths, func(path string) bool {
		ok, reason := isValid(osProxy, path)
		if !ok {
			logger.Warnf("File %q %s.", path, reason)
		}
		return ok
	})
}
