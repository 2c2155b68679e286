package limits

import (
	"mercator-hq/switchboard/pkg/settings"
)

// DefaultOutputCap is the output ceiling applied when no layer of the
// settings chain knows the provider. It is also the budget requested on the
// caller's behalf when the caller names none.
const DefaultOutputCap = 4096

// Decision is the outcome of clamping one provider's output budget.
type Decision struct {
	Provider string

	// Requested is what the caller asked for, or DefaultOutputCap when the
	// caller named no budget.
	Requested int

	// Cap is the ceiling that applied.
	Cap int

	// CapSource is the settings layer the cap came from. SourceNone means
	// DefaultOutputCap applied.
	CapSource settings.Source

	// Effective is the value sent to the provider.
	Effective int

	// Clamped is true when Effective is lower than Requested.
	Clamped bool
}

// ClampTo applies a ceiling to a request. A non-positive request or
// ceiling means DefaultOutputCap.
func ClampTo(requested, ceiling int) (int, bool) {
	requested = defaultRequest(requested)
	if ceiling <= 0 {
		ceiling = DefaultOutputCap
	}
	if requested > ceiling {
		return ceiling, true
	}
	return requested, false
}

func defaultRequest(requested int) int {
	if requested <= 0 {
		return DefaultOutputCap
	}
	return requested
}
