package network

import (
	"strings"
	"testing"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/stretchr/testify/assert"
)

func Test_validateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{
			name: "valid key",
			key:  "uploads/video.mp4.00",
			want: "uploads/video.mp4.00",
		},
		{
			name:    "key with comma",
			key:     "uploads/vid,eo.mp4",
			wantErr: true,
		},
		{
			name:    "empty key",
			key:     "",
			wantErr: true,
		},
		{
			name: "key that is too long",
			key:  strings.Repeat("video", 205),
			want: strings.Repeat("video", 204) + "vide",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateKey(tt.key, newRecordingLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("validateKey() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("validateKey() got = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_logResponseMessage(t *testing.T) {
	tests := []struct {
		name           string
		response       acknowledgeResponse
		wantLogMessage string
		wantLogFn      string
		wantSkip       bool
	}{
		{
			name: "Debug message",
			response: acknowledgeResponse{
				Message:  "Message delivered.",
				Severity: "debug",
			},
			wantLogMessage: "Message delivered.",
			wantLogFn:      "Debugf",
		},
		{
			name: "Warning message",
			response: acknowledgeResponse{
				Message:  "Message delivered but the chat is muted.",
				Severity: "warning",
			},
			wantLogMessage: "Message delivered but the chat is muted.",
			wantLogFn:      "Warnf",
		},
		{
			name:     "Empty response",
			response: acknowledgeResponse{},
			wantSkip: true,
		},
		{
			name: "Unrecognized severity",
			response: acknowledgeResponse{
				Message:  "Message from the future!",
				Severity: "fatal",
			},
			wantLogMessage: "Message from the future!",
			wantLogFn:      "Printf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given
			logger := newRecordingLogger()

			// When
			logResponseMessage(tt.response, logger)

			// Then
			if tt.wantSkip {
				assert.Empty(t, logger.lines)
				return
			}
			assert.Equal(t, []string{"\n", tt.wantLogMessage, "\n"}, logger.messages(tt.wantLogFn))
		})
	}
}

func Test_attributePayloads(t *testing.T) {
	got := attributePayloads([]source.Attribute{
		source.FilenameAttribute{Name: "video.mp4.01"},
		source.VideoAttribute{DurationSeconds: 3, Width: 640, Height: 480, SupportsStreaming: true},
	})

	assert.Equal(t, []attributePayload{
		{Type: "filename", FileName: "video.mp4.01"},
		{Type: "video", DurationSeconds: 3, Width: 640, Height: 480, SupportsStreaming: true},
	}, got)
	assert.Empty(t, attributePayloads(nil))
}
