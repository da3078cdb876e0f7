package input

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WhenTrimmedFilePathCalled_ThenExpectCorrectValue(t *testing.T) {
	absPath, err := filepath.Abs("file.txt")
	require.NoError(t, err)

	scenarios := []struct {
		filePath string
		expected string
	}{
		{
			filePath: "file://file.txt",
			expected: absPath,
		},
		{
			filePath: "file:///file.txt",
			expected: "/file.txt",
		},
	}

	for _, scenario := range scenarios {
		// Given
		fileProvider := givenFileProvider(givenMockFileDownloader())

		// When
		actualFilePath, err := fileProvider.trimmedFilePath(scenario.filePath)

		// Then
		assert.NoError(t, err)
		assert.Equal(t, scenario.expected, actualFilePath)
	}
}

func Test_WhenFileNameFromPathURLCalled_ThenExpectCorrectValue(t *testing.T) {
	scenarios := []struct {
		input    string
		expected string
	}{
		{
			"https://something.com/thumbnail.jpg",
			"thumbnail.jpg",
		},
		{
			"https://something.com/cover.png?queryparams",
			"cover.png",
		},
		{
			"https://cdn.example.com/media/2024/poster.jpeg",
			"poster.jpeg",
		},
	}

	for _, scenario := range scenarios {
		// When
		actualName, err := fileNameFromPathURL(scenario.input)

		// Then
		assert.NoError(t, err)
		assert.Equal(t, scenario.expected, actualName)
	}
}

func Test_WhenFileNameFromPathURLHasNoName_ThenExpectError(t *testing.T) {
	_, err := fileNameFromPathURL("https://something.com/")
	assert.Error(t, err)
}

func Test_GivenEmptyPath_WhenLocalPathCalled_ThenExpectEmptyPath(t *testing.T) {
	mockFileDownloader := givenMockFileDownloader()
	fileProvider := givenFileProvider(mockFileDownloader)

	actualPath, err := fileProvider.LocalPath("")

	assert.NoError(t, err)
	assert.Empty(t, actualPath)
	mockFileDownloader.AssertNotCalled(t, "Get")
}

func Test_GivenLocalFileProvided_WhenLocalPathCalled_ThenExpectLocalfilePath(t *testing.T) {
	// Given
	inputPath := "file:///path/tp/file/thumb.jpg"
	expectedPath := "/path/tp/file/thumb.jpg"
	mockFileDownloader := givenMockFileDownloader()
	fileProvider := givenFileProvider(mockFileDownloader)

	// When
	actualPath, err := fileProvider.LocalPath(inputPath)

	// Then
	assert.NoError(t, err)
	assert.Equal(t, expectedPath, actualPath)
	mockFileDownloader.AssertNotCalled(t, "Get")
}

func Test_GivenPlainPathProvided_WhenLocalPathCalled_ThenExpectAbsolutePath(t *testing.T) {
	mockFileDownloader := givenMockFileDownloader()
	fileProvider := givenFileProvider(mockFileDownloader)

	actualPath, err := fileProvider.LocalPath("/path/to/thumb.jpg")

	assert.NoError(t, err)
	assert.Equal(t, "/path/to/thumb.jpg", actualPath)
	mockFileDownloader.AssertNotCalled(t, "Get")
}

func Test_GivenRemoteFileProvidedAndDownloadFails_WhenLocalPathCalled_ThenExpectError(t *testing.T) {
	// Given
	inputPath := "https://something.com/thumb.jpg"
	expectedError := errors.New("some error")
	mockFileDownloader := givenMockFileDownloader().GivenGetFails(expectedError)
	fileProvider := givenFileProvider(mockFileDownloader)

	// When
	actualPath, err := fileProvider.LocalPath(inputPath)

	// Then
	assert.EqualError(t, err, expectedError.Error())
	assert.Empty(t, actualPath)
}

func Test_GivenRemoteFileProvidedAndDownloadSucceeds_WhenLocalPathCalled_ThenPath(t *testing.T) {
	// Given
	inputPath := "https://something.com/thumb.jpg"
	mockFileDownloader := givenMockFileDownloader().GivenGetSucceed()
	fileProvider := givenFileProvider(mockFileDownloader)

	// When
	actualPath, err := fileProvider.LocalPath(inputPath)

	// Then
	assert.NoError(t, err)
	assert.Equal(t, "thumb.jpg", filepath.Base(actualPath))
	mockFileDownloader.AssertCalled(t, "Get", actualPath, inputPath)
}

func TestHTTPDownloader_Get(t *testing.T) {
	content := strings.Repeat("jpeg bytes", 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "thumb.jpg", time.Time{}, strings.NewReader(content))
	}))
	defer srv.Close()

	downloader := NewHTTPDownloader(log.NewLogger())
	destination := filepath.Join(t.TempDir(), "thumb.jpg")

	require.NoError(t, downloader.Get(destination, srv.URL+"/thumb.jpg"))
	downloaded, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, string(downloaded))
}

func givenFileProvider(filedownloader FileDownloader) FileProvider {
	return NewFileProvider(filedownloader, pathutil.NewPathProvider(), pathutil.NewPathModifier())
}

func givenMockFileDownloader() *MockFileDownloader {
	return new(MockFileDownloader)
}
