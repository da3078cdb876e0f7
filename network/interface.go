// Package network delivers upload units to a remote endpoint.
package network

import (
	"context"
	"io"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Item is what an Uploader needs to know about one upload unit.
// *source.Unit implements it.
type Item interface {
	Name() string
	Size() (int64, error)
	Caption() string
	Attributes() []source.Attribute
	Thumbnail() (string, error)
	Open() (io.ReadSeekCloser, error)
}

// Result identifies a delivered item on the remote side.
type Result struct {
	ID       string
	Location string
}

// Uploader ...
type Uploader interface {
	Upload(context.Context, Item, log.Logger) (Result, error)
}
