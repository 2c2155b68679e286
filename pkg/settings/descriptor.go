package settings

import (
	"fmt"
	"time"
)

// Descriptor is one provider row as the settings store holds it.
type Descriptor struct {
	Name              string  `json:"name" yaml:"name"`
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	DefaultModel      string  `json:"default_model" yaml:"default_model"`
	MaxOutputCap      int     `json:"max_output_cap" yaml:"max_output_cap"`
	RequestsPerMinute int     `json:"requests_per_minute" yaml:"requests_per_minute"`
	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryCount        int     `json:"retry_count" yaml:"retry_count"`
	Temperature       float64 `json:"temperature" yaml:"temperature"`

	// UpdatedAt is maintained by the store.
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"-"`
}

// Validate checks the row invariants. A row that fails is treated as a
// failed store read.
func (d Descriptor) Validate() error {
	switch {
	case d.Name == "":
		return &MalformedError{Reason: "empty provider name"}
	case d.MaxOutputCap <= 0:
		return &MalformedError{Provider: d.Name, Reason: fmt.Sprintf("max_output_cap must be > 0, got %d", d.MaxOutputCap)}
	case d.TimeoutSeconds <= 0:
		return &MalformedError{Provider: d.Name, Reason: fmt.Sprintf("timeout_seconds must be > 0, got %d", d.TimeoutSeconds)}
	case d.RetryCount < 0:
		return &MalformedError{Provider: d.Name, Reason: fmt.Sprintf("retry_count must be >= 0, got %d", d.RetryCount)}
	case d.RequestsPerMinute < 0:
		return &MalformedError{Provider: d.Name, Reason: fmt.Sprintf("requests_per_minute must be >= 0, got %d", d.RequestsPerMinute)}
	case d.Temperature < 0 || d.Temperature > 2:
		return &MalformedError{Provider: d.Name, Reason: fmt.Sprintf("temperature must be within [0, 2], got %g", d.Temperature)}
	}
	return nil
}

// Timeout returns the per-call timeout.
func (d Descriptor) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Get returns the value of a single field.
func (d Descriptor) Get(field Field) any {
	switch field {
	case FieldEnabled:
		return d.Enabled
	case FieldDefaultModel:
		return d.DefaultModel
	case FieldMaxOutputCap:
		return d.MaxOutputCap
	case FieldRequestsPerMinute:
		return d.RequestsPerMinute
	case FieldTimeoutSeconds:
		return d.TimeoutSeconds
	case FieldRetryCount:
		return d.RetryCount
	case FieldTemperature:
		return d.Temperature
	}
	return nil
}

// Field names one resolvable descriptor column.
type Field string

const (
	FieldEnabled           Field = "enabled"
	FieldDefaultModel      Field = "default_model"
	FieldMaxOutputCap      Field = "max_output_cap"
	FieldRequestsPerMinute Field = "requests_per_minute"
	FieldTimeoutSeconds    Field = "timeout_seconds"
	FieldRetryCount        Field = "retry_count"
	FieldTemperature       Field = "temperature"
)

// Fields lists every field in column order.
var Fields = []Field{
	FieldEnabled,
	FieldDefaultModel,
	FieldMaxOutputCap,
	FieldRequestsPerMinute,
	FieldTimeoutSeconds,
	FieldRetryCount,
	FieldTemperature,
}

// Overridable reports whether a caller may supply the value per request.
// Caps, rate limits, retries and enablement are operator policy.
func (f Field) Overridable() bool {
	switch f {
	case FieldDefaultModel, FieldTimeoutSeconds, FieldTemperature:
		return true
	}
	return false
}

// Scope addresses one field of one provider.
type Scope struct {
	Provider string
	Field    Field
}

// String returns the scope key used in logs, e.g. "openai.max_output_cap".
func (s Scope) String() string {
	return s.Provider + "." + string(s.Field)
}

// Overrides carries the per-request values a caller may set. Zero values
// mean "not set".
type Overrides struct {
	Model          string
	TimeoutSeconds int
	Temperature    *float64
}

func (o *Overrides) get(field Field) (any, bool) {
	if o == nil || !field.Overridable() {
		return nil, false
	}
	switch field {
	case FieldDefaultModel:
		if o.Model != "" {
			return o.Model, true
		}
	case FieldTimeoutSeconds:
		if o.TimeoutSeconds > 0 {
			return o.TimeoutSeconds, true
		}
	case FieldTemperature:
		if o.Temperature != nil {
			return *o.Temperature, true
		}
	}
	return nil, false
}
