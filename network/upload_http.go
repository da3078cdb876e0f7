package network

import (
	"context"
	"fmt"
	"os"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// HTTPUploadParams ...
type HTTPUploadParams struct {
	APIBaseURL string
	Token      string
}

// HTTPUploader delivers items to a messaging API in three steps: the message
// is prepared, the content is sent to the URL the API hands out and the
// message is acknowledged.
type HTTPUploader struct {
	params HTTPUploadParams
	client *retryablehttp.Client
}

// NewHTTPUploader ...
func NewHTTPUploader(params HTTPUploadParams, logger log.Logger) (*HTTPUploader, error) {
	if params.APIBaseURL == "" {
		return nil, fmt.Errorf("APIBaseURL must not be empty")
	}
	if params.Token == "" {
		return nil, fmt.Errorf("Token must not be empty")
	}
	return &HTTPUploader{params: params, client: retryhttp.NewClient(logger)}, nil
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, item Item, logger log.Logger) (Result, error) {
	client := newAPIClient(u.client, u.params.APIBaseURL, u.params.Token, logger)

	size, err := item.Size()
	if err != nil {
		return Result{}, err
	}
	thumbnail, err := item.Thumbnail()
	if err != nil {
		return Result{}, err
	}

	logger.Debugf("Prepare message for %s", item.Name())
	prepared, err := client.prepareMessage(prepareMessageRequest{
		FileName:     item.Name(),
		Caption:      item.Caption(),
		SizeInBytes:  size,
		Attributes:   attributePayloads(item.Attributes()),
		HasThumbnail: thumbnail != "",
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to prepare message: %w", err)
	}
	logger.Debugf("Message ID: %s", prepared.ID)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	logger.Debugf("")
	logger.Debugf("Upload content")
	etag, err := uploadItem(client, prepared.Upload, item, size)
	if err != nil {
		return Result{}, fmt.Errorf("failed to upload %s: %w", item.Name(), err)
	}

	if thumbnail != "" && prepared.ThumbnailURL != nil {
		logger.Debugf("Upload thumbnail %s", thumbnail)
		if err := uploadThumbnail(client, *prepared.ThumbnailURL, thumbnail); err != nil {
			return Result{}, fmt.Errorf("failed to upload thumbnail: %w", err)
		}
	}

	logger.Debugf("")
	logger.Debugf("Acknowledge message")
	response, err := client.acknowledgeMessage(prepared.ID, etag)
	if err != nil {
		return Result{}, fmt.Errorf("failed to finalize message: %w", err)
	}

	logger.Debugf("Message acknowledged")
	logResponseMessage(response, logger)

	return Result{ID: prepared.ID, Location: response.Location}, nil
}

func uploadItem(client apiClient, target uploadURL, item Item, size int64) (etag string, err error) {
	body, err := item.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return client.uploadContent(target, body, size)
}

func uploadThumbnail(client apiClient, target uploadURL, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open thumbnail: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			client.logger.Errorf("failed to close file: %s", err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat thumbnail: %w", err)
	}

	_, err = client.uploadContent(target, file, info.Size())
	return err
}
