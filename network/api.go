package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

const maxKeyLength = 1024

type attributePayload struct {
	Type              string `json:"type"`
	FileName          string `json:"file_name,omitempty"`
	DurationSeconds   int    `json:"duration,omitempty"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`
	SupportsStreaming bool   `json:"supports_streaming,omitempty"`
}

type prepareMessageRequest struct {
	FileName     string             `json:"file_name"`
	Caption      string             `json:"caption"`
	SizeInBytes  int64              `json:"size_in_bytes"`
	Attributes   []attributePayload `json:"attributes"`
	HasThumbnail bool               `json:"has_thumbnail"`
}

type uploadURL struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

type prepareMessageResponse struct {
	ID           string     `json:"id"`
	Upload       uploadURL  `json:"upload"`
	ThumbnailURL *uploadURL `json:"thumbnail_upload"`
}

type acknowledgeRequest struct {
	Successful bool   `json:"successful"`
	ETag       string `json:"etag"`
}

type acknowledgeResponse struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Location string `json:"location"`
}

type apiClient struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	accessToken string
	logger      log.Logger
}

func newAPIClient(client *retryablehttp.Client, baseURL string, accessToken string, logger log.Logger) apiClient {
	return apiClient{
		httpClient:  client,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		logger:      logger,
	}
}

func (c apiClient) prepareMessage(requestBody prepareMessageRequest) (prepareMessageResponse, error) {
	endpoint := fmt.Sprintf("%s/messages", c.baseURL)

	body, err := json.Marshal(requestBody)
	if err != nil {
		return prepareMessageResponse{}, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, endpoint, body)
	if err != nil {
		return prepareMessageResponse{}, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return prepareMessageResponse{}, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return prepareMessageResponse{}, unwrapError(resp)
	}

	var response prepareMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return prepareMessageResponse{}, err
	}
	if response.ID == "" || response.Upload.URL == "" {
		return prepareMessageResponse{}, fmt.Errorf("incomplete prepare response: %+v", response)
	}

	return response, nil
}

// uploadContent sends size bytes of data to the target. data is rewound
// before every attempt, so it is read from its start again on retries.
func (c apiClient) uploadContent(target uploadURL, data io.ReadSeeker, size int64) (string, error) {
	method := target.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := retryablehttp.NewRequest(method, target.URL, data)
	if err != nil {
		return "", err
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	// Add Content-Length header manually because retryablehttp doesn't do it automatically
	req.Header.Set("Content-Length", fmt.Sprintf("%d", size))
	req.ContentLength = size

	dump, err := httputil.DumpRequest(req.Request, false)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Upload request dump: %s", string(dump))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", unwrapError(resp)
	}

	return resp.Header.Get("ETag"), nil
}

func (c apiClient) acknowledgeMessage(messageID string, etag string) (acknowledgeResponse, error) {
	endpoint := fmt.Sprintf("%s/messages/%s", c.baseURL, url.PathEscape(messageID))

	body, err := json.Marshal(acknowledgeRequest{Successful: true, ETag: etag})
	if err != nil {
		return acknowledgeResponse{}, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPatch, endpoint, body)
	if err != nil {
		return acknowledgeResponse{}, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-type", "application/json")

	dump, err := httputil.DumpRequest(req.Request, true)
	if err != nil {
		c.logger.Warnf("error while dumping request: %s", err)
	}
	c.logger.Debugf("Acknowledge request dump: %s", string(dump))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return acknowledgeResponse{}, err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return acknowledgeResponse{}, unwrapError(resp)
	}

	var response acknowledgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return acknowledgeResponse{}, err
	}
	return response, nil
}

func (c apiClient) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Printf(err.Error())
	}
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorResp)
}

func attributePayloads(attributes []source.Attribute) []attributePayload {
	payloads := make([]attributePayload, 0, len(attributes))
	for _, attribute := range attributes {
		switch a := attribute.(type) {
		case source.FilenameAttribute:
			payloads = append(payloads, attributePayload{Type: "filename", FileName: a.Name})
		case source.VideoAttribute:
			payloads = append(payloads, attributePayload{
				Type:              "video",
				DurationSeconds:   a.DurationSeconds,
				Width:             a.Width,
				Height:            a.Height,
				SupportsStreaming: a.SupportsStreaming,
			})
		}
	}
	return payloads
}

func validateKey(key string, logger log.Logger) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key must not be empty")
	}
	if strings.Contains(key, ",") {
		return "", fmt.Errorf("commas are not allowed in key")
	}

	if len(key) > maxKeyLength {
		logger.Warnf("Key is too long, truncating it to the first %d characters", maxKeyLength)
		return key[:maxKeyLength], nil
	}
	return key, nil
}

func logResponseMessage(response acknowledgeResponse, logger log.Logger) {
	if response.Message == "" || response.Severity == "" {
		return
	}

	var loggerFn func(format string, v ...interface{})
	switch response.Severity {
	case "debug":
		loggerFn = logger.Debugf
	case "info":
		loggerFn = logger.Infof
	case "warning":
		loggerFn = logger.Warnf
	case "error":
		loggerFn = logger.Errorf
	default:
		loggerFn = logger.Printf
	}

	loggerFn("\n")
	loggerFn(response.Message)
	loggerFn("\n")
}
