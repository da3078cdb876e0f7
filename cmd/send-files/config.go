package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitrise-io/go-fileupload/input"
	"github.com/bitrise-io/go-fileupload/network"
	"github.com/bitrise-io/go-fileupload/send"
	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-fileupload/stepconf"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	destinationS3   = "s3"
	destinationHTTP = "http"
)

// Config ...
type Config struct {
	Paths           string          `env:"paths,required"`
	Directories     string          `env:"directories"`
	LargeFiles      string          `env:"large_files"`
	Caption         *string         `env:"caption"`
	NoThumbnail     bool            `env:"no_thumbnail"`
	ThumbnailFile   string          `env:"thumbnail_file"`
	ForceFile       bool            `env:"force_file"`
	DeleteOnSuccess bool            `env:"delete_on_success"`
	Destination     string          `env:"destination,opt[s3,http]"`
	S3Bucket        string          `env:"s3_bucket"`
	S3Region        string          `env:"s3_region"`
	S3Prefix        string          `env:"s3_prefix"`
	AccessKeyID     stepconf.Secret `env:"aws_access_key_id"`
	SecretAccessKey stepconf.Secret `env:"aws_secret_access_key"`
	APIBaseURL      string          `env:"api_base_url"`
	APIToken        stepconf.Secret `env:"api_token"`
	ManifestPath    string          `env:"manifest_path"`
	Verbose         bool            `env:"verbose"`
}

// sendInput converts the config to the sender's input. Mode inputs default to "fail".
func (c Config) sendInput(fileProvider input.FileProvider) (send.SendInput, error) {
	directories, err := source.ParseDirectoryMode(withDefault(c.Directories, "fail"))
	if err != nil {
		return send.SendInput{}, err
	}
	largeFiles, err := source.ParseLargeFileMode(withDefault(c.LargeFiles, "fail"))
	if err != nil {
		return send.SendInput{}, err
	}

	if c.NoThumbnail && c.ThumbnailFile != "" {
		return send.SendInput{}, &source.InvalidInputError{Path: c.ThumbnailFile, Reason: "can not be used together with no_thumbnail"}
	}
	thumbnail := source.AutoThumbnail()
	switch {
	case c.NoThumbnail:
		thumbnail = source.NoThumbnail()
	case c.ThumbnailFile != "":
		thumbnailPath, err := fileProvider.LocalPath(c.ThumbnailFile)
		if err != nil {
			return send.SendInput{}, fmt.Errorf("failed to get thumbnail file: %w", err)
		}
		thumbnail = source.ThumbnailFile(thumbnailPath)
	}

	return send.SendInput{
		StepID:          "send-files",
		Verbose:         c.Verbose,
		Paths:           splitPaths(c.Paths),
		Directories:     directories,
		LargeFiles:      largeFiles,
		Caption:         c.Caption,
		Thumbnail:       thumbnail,
		ForceFile:       c.ForceFile,
		DeleteOnSuccess: c.DeleteOnSuccess,
	}, nil
}

func (c Config) uploader(ctx context.Context, logger log.Logger) (network.Uploader, error) {
	switch c.Destination {
	case destinationS3:
		uploader, err := network.NewS3Uploader(ctx, network.S3UploadParams{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			Prefix:          c.S3Prefix,
			AccessKeyID:     string(c.AccessKeyID),
			SecretAccessKey: string(c.SecretAccessKey),
		}, logger)
		if err != nil {
			return nil, err
		}
		return uploader, nil
	case destinationHTTP:
		uploader, err := network.NewHTTPUploader(network.HTTPUploadParams{
			APIBaseURL: c.APIBaseURL,
			Token:      string(c.APIToken),
		}, logger)
		if err != nil {
			return nil, err
		}
		return uploader, nil
	default:
		return nil, &source.UnsupportedValueError{Field: "destination", Value: c.Destination}
	}
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

// splitPaths accepts one path or pattern per line. Blank lines are skipped,
// other lines are kept as they are since file names can have surrounding spaces.
func splitPaths(paths string) []string {
	var result []string
	for _, line := range strings.Split(paths, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
