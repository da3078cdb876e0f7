package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-fileupload/internal"
)

// DirectoryMode selects what the directory stage does with directories.
type DirectoryMode int

const (
	// DirectoryReject fails the stage on the first directory.
	DirectoryReject DirectoryMode = iota
	// DirectoryRecursive replaces a directory with every file below it.
	DirectoryRecursive
)

// ParseDirectoryMode accepts the configuration values "fail" and "recursive".
func ParseDirectoryMode(s string) (DirectoryMode, error) {
	switch s {
	case "fail":
		return DirectoryReject, nil
	case "recursive":
		return DirectoryRecursive, nil
	default:
		return 0, &UnsupportedValueError{Field: "directories", Value: s}
	}
}

func (m DirectoryMode) String() string {
	switch m {
	case DirectoryReject:
		return "fail"
	case DirectoryRecursive:
		return "recursive"
	default:
		return fmt.Sprintf("DirectoryMode(%d)", int(m))
	}
}

// DirectoryStage turns a sequence of paths into a sequence of plain file paths.
// It only stats and lists directories, files are never opened.
type DirectoryStage struct {
	Mode DirectoryMode
	OS   internal.OsProxy
}

// Apply ...
func (s DirectoryStage) Apply(paths Iterator[string]) Iterator[string] {
	return FlatMap(paths, s.Expand)
}

// Expand returns the plain file paths path stands for.
func (s DirectoryStage) Expand(path string) (Iterator[string], error) {
	osProxy := s.osProxy()

	info, err := osProxy.Stat(path)
	if err != nil || !info.IsDir() {
		return Single(path), nil
	}

	switch s.Mode {
	case DirectoryReject:
		return nil, &InvalidInputError{Path: path, Reason: "is a directory"}
	case DirectoryRecursive:
		return newTreeWalker(osProxy, path), nil
	default:
		return nil, &UnsupportedValueError{Field: "directories", Value: s.Mode}
	}
}

func (s DirectoryStage) osProxy() internal.OsProxy {
	if s.OS == nil {
		return internal.RealOS{}
	}
	return s.OS
}

type dirFrame struct {
	path    string
	entries []os.DirEntry
	pos     int
}

// treeWalker lists a directory tree depth first, one directory at a time.
// Symlinks are followed; entries resolving to directories are descended into,
// never yielded. Directories already on the walk are skipped, so symlink
// loops terminate.
type treeWalker struct {
	os      internal.OsProxy
	root    string
	stack   []*dirFrame
	visited map[string]bool
	started bool
	err     error
}

func newTreeWalker(osProxy internal.OsProxy, root string) *treeWalker {
	return &treeWalker{
		os:      osProxy,
		root:    root,
		visited: map[string]bool{},
	}
}

func (w *treeWalker) Next() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	if !w.started {
		w.started = true
		if err := w.push(w.root); err != nil {
			w.err = err
			return "", err
		}
	}

	for len(w.stack) > 0 {
		top := w.stack[len(w.stack)-1]
		if top.pos >= len(top.entries) {
			w.stack = w.stack[:len(w.stack)-1]
			continue
		}

		entry := top.entries[top.pos]
		top.pos++
		path := filepath.Join(top.path, entry.Name())

		info, err := w.os.Stat(path)
		if err == nil && info.IsDir() {
			if err := w.push(path); err != nil {
				w.err = err
				return "", err
			}
			continue
		}
		return path, nil
	}

	w.err = io.EOF
	return "", io.EOF
}

func (w *treeWalker) push(dir string) error {
	key := dir
	if resolved, err := w.os.EvalSymlinks(dir); err == nil {
		key = resolved
	}
	if w.visited[key] {
		return nil
	}
	w.visited[key] = true

	entries, err := w.os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}
	w.stack = append(w.stack, &dirFrame{path: dir, entries: entries})
	return nil
}
