package send

import (
	"time"

	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

type eventTracker interface {
	Enqueue(eventName string, properties ...analytics.Properties)
	Wait()
}

func newStepTracker(stepID string, envRepo env.Repository, logger log.Logger) eventTracker {
	p := analytics.Properties{
		"step_id":           stepID,
		"step_execution_id": envRepo.Get("BITRISE_STEP_EXECUTION_ID"),
		"build_slug":        envRepo.Get("BITRISE_BUILD_SLUG"),
		"app_slug":          envRepo.Get("BITRISE_APP_SLUG"),
		"workflow":          envRepo.Get("BITRISE_TRIGGERED_WORKFLOW_ID"),
		"is_pr_build":       envRepo.Get("IS_PR") == "true",
	}
	return analytics.NewDefaultTracker(logger, p)
}

func trackUnitSent(tracker eventTracker, unit *source.Unit, size int64) {
	properties := analytics.Properties{
		"unit_size_bytes": size,
		"is_part":         unit.IsPart(),
	}
	if part, ok := unit.Part(); ok {
		properties["part_index"] = part.Index
	}
	tracker.Enqueue("file_upload_unit_sent", properties)
}

func trackSendFinished(tracker eventTracker, sendTime time.Duration, unitCount int, totalBytes int64) {
	properties := analytics.Properties{
		"send_time_s":      sendTime.Truncate(time.Second).Seconds(),
		"unit_count":       unitCount,
		"total_size_bytes": totalBytes,
	}
	tracker.Enqueue("file_upload_finished", properties)
}
