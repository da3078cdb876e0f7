// Send-files uploads files, directories and glob matches to S3 or to a
// messaging API. Large files are split into parts.
package main

import (
	"context"
	"os"

	"github.com/bitrise-io/go-fileupload/export"
	"github.com/bitrise-io/go-fileupload/input"
	"github.com/bitrise-io/go-fileupload/media"
	"github.com/bitrise-io/go-fileupload/send"
	"github.com/bitrise-io/go-fileupload/source"
	"github.com/bitrise-io/go-fileupload/stepconf"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewLogger()
	envRepo := env.NewRepository()

	var cfg Config
	if err := stepconf.NewInputParser(envRepo).Parse(&cfg); err != nil {
		logger.Errorf("%s", err)
		return source.ExitCodeInvalidInput
	}
	stepconf.Print(cfg)
	logger.EnableDebugLog(cfg.Verbose)

	pathProvider := pathutil.NewPathProvider()
	pathModifier := pathutil.NewPathModifier()
	fileProvider := input.NewFileProvider(input.NewHTTPDownloader(logger), pathProvider, pathModifier)

	sendInput, err := cfg.sendInput(fileProvider)
	if err != nil {
		logger.Errorf("%s", err)
		return source.ExitCode(err)
	}

	uploader, err := cfg.uploader(context.Background(), logger)
	if err != nil {
		logger.Errorf("Failed to configure %s destination: %s", cfg.Destination, err)
		return source.ExitCode(err)
	}

	cmdFactory := command.NewFactory(envRepo)
	ffmpeg := media.NewFFmpeg(cmdFactory, pathProvider, pathutil.NewPathChecker(), logger)
	sender := send.NewSender(envRepo, logger, pathModifier, uploader, ffmpeg, ffmpeg)
	report, sendErr := sender.Send(sendInput)

	exporter := export.NewExporter(cmdFactory, pathModifier)
	if err := exporter.ExportReport(report, cfg.ManifestPath); err != nil {
		logger.Warnf("Failed to export outputs: %s", err)
	}

	if sendErr != nil {
		logger.Errorf("%s", sendErr)
		return source.ExitCode(sendErr)
	}

	return 0
}
