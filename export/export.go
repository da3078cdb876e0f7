package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-fileupload/send"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// Output keys exposed for subsequent steps.
const (
	SentCountKey    = "FILEUPLOAD_SENT_COUNT"
	LocationsKey    = "FILEUPLOAD_LOCATIONS"
	ManifestPathKey = "FILEUPLOAD_MANIFEST_PATH"
)

// Exporter ...
type Exporter struct {
	cmdFactory   command.Factory
	pathModifier pathutil.PathModifier
}

// NewExporter ...
func NewExporter(cmdFactory command.Factory, pathModifier pathutil.PathModifier) Exporter {
	return Exporter{
		cmdFactory:   cmdFactory,
		pathModifier: pathModifier,
	}
}

// ExportOutput is used for exposing values for other steps.
// Regular env vars are isolated between steps, so instead of calling `os.Setenv()`, use this to explicitly expose
// a value for subsequent steps.
func (e *Exporter) ExportOutput(key, value string) error {
	cmd := e.cmdFactory.Create("envman", []string{"add", "--key", key, "--value", value}, nil)
	return runExport(cmd)
}

// ExportOutputNoExpand works like ExportOutput but does not expand environment variables in the value.
// This can be used when the value is unstrusted or is beyond the control of the step.
func (e *Exporter) ExportOutputNoExpand(key, value string) error {
	cmd := e.cmdFactory.Create("envman", []string{"add", "--key", key, "--value", value, "--no-expand"}, nil)
	return runExport(cmd)
}

// ExportOutputFileContent writes content to dst and exports the absolute path of dst.
func (e *Exporter) ExportOutputFileContent(content []byte, dst, envKey string) error {
	absDst, err := e.pathModifier.AbsPath(dst)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(absDst, content, 0o644); err != nil {
		return err
	}

	return e.ExportOutput(envKey, absDst)
}

type manifestEntry struct {
	Name     string `json:"name"`
	Source   string `json:"source"`
	Size     int64  `json:"size"`
	ID       string `json:"id,omitempty"`
	Location string `json:"location,omitempty"`
}

// ExportReport exposes the number of sent units, their locations and a JSON manifest written to manifestPath.
// File names are user controlled, so the locations are exported without env expansion.
func (e *Exporter) ExportReport(report send.Report, manifestPath string) error {
	if err := e.ExportOutput(SentCountKey, strconv.Itoa(len(report.Units))); err != nil {
		return err
	}

	var locations []string
	entries := make([]manifestEntry, 0, len(report.Units))
	for _, unit := range report.Units {
		if unit.Location != "" {
			locations = append(locations, unit.Location)
		}
		entries = append(entries, manifestEntry{
			Name:     unit.Name,
			Source:   unit.Path,
			Size:     unit.Size,
			ID:       unit.ID,
			Location: unit.Location,
		})
	}
	if err := e.ExportOutputNoExpand(LocationsKey, strings.Join(locations, "\n")); err != nil {
		return err
	}

	if manifestPath == "" {
		return nil
	}
	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return e.ExportOutputFileContent(content, manifestPath, ManifestPathKey)
}

func runExport(cmd command.Command) error {
	out, err := cmd.RunAndReturnTrimmedCombinedOutput()
	if err != nil {
		return fmt.Errorf("exporting output with envman failed: %s, output: %s", err, out)
	}
	return nil
}
