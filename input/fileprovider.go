package input

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
)

const (
	fileSchema = "file://"
)

// FileDownloader ..
type FileDownloader interface {
	Get(destination, source string) error
}

// FileProvider supports retrieving the local path to a file either provided
// as a local path (optionally using the `file://` scheme)
// or downloading the file to a temporary location and return the path to it.
type FileProvider struct {
	filedownloader FileDownloader
	pathProvider   pathutil.PathProvider
	pathModifier   pathutil.PathModifier
}

// NewFileProvider ...
func NewFileProvider(filedownloader FileDownloader, pathProvider pathutil.PathProvider, pathModifier pathutil.PathModifier) FileProvider {
	return FileProvider{
		filedownloader: filedownloader,
		pathProvider:   pathProvider,
		pathModifier:   pathModifier,
	}
}

// LocalPath ...
func (fileProvider FileProvider) LocalPath(path string) (string, error) {
	switch {
	case path == "":
		return "", nil
	case strings.HasPrefix(path, fileSchema):
		return fileProvider.trimmedFilePath(path)
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return fileProvider.downloadFile(path)
	default:
		return fileProvider.pathModifier.AbsPath(path)
	}
}

// Removes file:// from the begining of the path
func (fileProvider FileProvider) trimmedFilePath(path string) (string, error) {
	pth := strings.TrimPrefix(path, fileSchema)
	return fileProvider.pathModifier.AbsPath(pth)
}

func (fileProvider FileProvider) downloadFile(path string) (string, error) {
	tmpDir, err := fileProvider.pathProvider.CreateTempDir("FileProvider")
	if err != nil {
		return "", err
	}

	fileName, err := fileNameFromPathURL(path)
	if err != nil {
		return "", err
	}
	localPath := filepath.Join(tmpDir, fileName)
	if err := fileProvider.filedownloader.Get(localPath, path); err != nil {
		return "", err
	}

	return localPath, nil
}

// Returns the file's name from a URL that starts with
// `http://` or `https://`
func fileNameFromPathURL(path string) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", err
	}

	name := filepath.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("no file name in %s", path)
	}
	return name, nil
}

// HTTPDownloader fetches remote files in parallel chunks, retrying failed requests.
type HTTPDownloader struct {
	client *retryablehttp.Client
}

// NewHTTPDownloader ...
func NewHTTPDownloader(logger log.Logger) HTTPDownloader {
	return HTTPDownloader{client: retryhttp.NewClient(logger)}
}

// Get ...
func (d HTTPDownloader) Get(destination, source string) error {
	downloader := got.New()
	downloader.Client = d.client.StandardClient()

	if err := downloader.Do(got.NewDownload(context.Background(), source, destination)); err != nil {
		return fmt.Errorf("download %s: %w", source, err)
	}
	return nil
}
