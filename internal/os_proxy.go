package internal

import (
	"os"
	"path/filepath"
)

// OsProxy defines the subset of os package functions the file source pipeline uses.
// Add more methods as you need them.
type OsProxy interface {
	Stat(name string) (os.FileInfo, error)
	Lstat(name string) (os.FileInfo, error)
	Open(name string) (*os.File, error)
	ReadDir(name string) ([]os.DirEntry, error)
	Remove(name string) error
	EvalSymlinks(path string) (string, error)
}

// RealOS is the default implementation that delegates to the real os package.
type RealOS struct{}

func (RealOS) Stat(name string) (os.FileInfo, error)      { return os.Stat(name) }               //nolint:revive
func (RealOS) Lstat(name string) (os.FileInfo, error)     { return os.Lstat(name) }              //nolint:revive
func (RealOS) Open(name string) (*os.File, error)         { return os.Open(name) }               //nolint:revive
func (RealOS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }            //nolint:revive
func (RealOS) Remove(name string) error                   { return os.Remove(name) }             //nolint:revive
func (RealOS) EvalSymlinks(path string) (string, error)   { return filepath.EvalSymlinks(path) } //nolint:revive
