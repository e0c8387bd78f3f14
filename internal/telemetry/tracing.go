package telemetry

import (
	"github.com/pitabwire/frame/telemetry"
)

// Service tracers for different components.
//
//nolint:gochecknoglobals // OpenTelemetry tracers must be global for instrumentation
var (
	UploadTracer   = telemetry.NewTracer("media.upload")
	MergeTracer    = telemetry.NewTracer("media.merge")
	DeliveryTracer = telemetry.NewTracer("media.delivery")
)
