package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys used on fan-out and provider task spans.
const (
	AttrRequestID = "switchboard.request_id"
	AttrCaller    = "switchboard.caller"
	AttrMode      = "switchboard.mode"
	AttrTargets   = "switchboard.targets"

	AttrProvider  = "switchboard.provider"
	AttrModel     = "switchboard.model"
	AttrRequested = "switchboard.max_tokens.requested"
	AttrEffective = "switchboard.max_tokens.effective"
	AttrClamped   = "switchboard.max_tokens.clamped"

	AttrStatus       = "switchboard.task.status"
	AttrAttempts     = "switchboard.task.attempts"
	AttrErrorKind    = "switchboard.error.kind"
	AttrFinishReason = "switchboard.finish_reason"
	AttrTruncated    = "switchboard.truncated"

	AttrTokensInput  = "switchboard.tokens.input"
	AttrTokensOutput = "switchboard.tokens.output"

	AttrSuccessful = "switchboard.successful"
	AttrFailed     = "switchboard.failed"
)

// FanoutAttributes describe a fan-out span.
func FanoutAttributes(requestID, caller, mode string, targets int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRequestID, requestID),
		attribute.String(AttrMode, mode),
		attribute.Int(AttrTargets, targets),
	}
	if caller != "" {
		attrs = append(attrs, attribute.String(AttrCaller, caller))
	}
	return attrs
}

// TaskAttributes describe a provider task span at start.
func TaskAttributes(provider, model string, requested, effective int, clamped bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrProvider, provider),
		attribute.String(AttrModel, model),
		attribute.Int(AttrRequested, requested),
		attribute.Int(AttrEffective, effective),
		attribute.Bool(AttrClamped, clamped),
	}
}

// ResultAttributes describe a settled provider task.
func ResultAttributes(status string, attempts int, finishReason string, truncated bool, input, output int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrStatus, status),
		attribute.Int(AttrAttempts, attempts),
	}
	if finishReason != "" {
		attrs = append(attrs,
			attribute.String(AttrFinishReason, finishReason),
			attribute.Bool(AttrTruncated, truncated),
		)
	}
	if input > 0 || output > 0 {
		attrs = append(attrs,
			attribute.Int(AttrTokensInput, input),
			attribute.Int(AttrTokensOutput, output),
		)
	}
	return attrs
}

// OutcomeAttributes describe a settled fan-out.
func OutcomeAttributes(successful, failed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrSuccessful, successful),
		attribute.Int(AttrFailed, failed),
	}
}
