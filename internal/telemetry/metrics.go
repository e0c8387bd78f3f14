// Package telemetry provides OpenTelemetry metrics and tracing for the media service.
package telemetry

import "github.com/pitabwire/frame/telemetry"

// File metrics track upload and delete operations.
//
//nolint:gochecknoglobals // OpenTelemetry metrics must be global for instrumentation
var (
	FilesUploadedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.files.uploaded",
		"Total files uploaded to object storage",
	)

	FilesDeletedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.files.deleted",
		"Total files deleted from object storage",
	)

	FileOperationsFailedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.files.failed",
		"Total failed file operations",
	)
)

// Merge metrics track the video merge pipeline.
//
//nolint:gochecknoglobals // OpenTelemetry metrics must be global for instrumentation
var (
	MergeJobsSubmittedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.merge.submitted",
		"Total video merge jobs submitted",
	)

	MergeJobsCompletedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.merge.completed",
		"Total video merge jobs completed",
	)

	MergeJobsFailedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.merge.failed",
		"Total video merge jobs that ended in error",
	)

	MergeStatusLatencyHistogram = telemetry.LatencyMeasure(
		"media.merge.status",
	)
)

// Notification metrics track the realtime delivery pipeline.
//
//nolint:gochecknoglobals // OpenTelemetry metrics must be global for instrumentation
var (
	NotificationsPublishedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.notifications.published",
		"Total notification events published to the gateway queue",
	)

	NotificationsDeliveredCounter = telemetry.DimensionlessMeasure(
		"",
		"media.notifications.delivered",
		"Total notification events delivered to live connections",
	)

	NotificationsDroppedCounter = telemetry.DimensionlessMeasure(
		"",
		"media.notifications.dropped",
		"Total notification events dropped because the user had no live connection",
	)
)
