package proxy

import (
	"errors"

	"mercator-hq/switchboard/pkg/dispatch"
	"mercator-hq/switchboard/pkg/proxy/types"
)

// HandleError converts an error raised before or instead of a fan-out into
// an error response. Provider failures never reach here: they are reported
// per provider inside the envelope.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var valErr *types.ValidationError
	if errors.As(err, &valErr) {
		return types.NewValidationError(valErr.Message, valErr.Field, valErr.Code)
	}

	var dispatchErr *dispatch.ValidationError
	if errors.As(err, &dispatchErr) {
		code := types.CodeInvalidValue
		if dispatchErr.Field == "prompt" {
			code = types.CodeMissingField
		}
		return types.NewValidationError(dispatchErr.Message, dispatchErr.Field, code)
	}

	if errors.Is(err, dispatch.ErrNoTargets) {
		return types.NewErrorResponse(
			"no providers are enabled",
			types.ErrorTypeConfiguration,
			"",
			types.CodeNoEnabledProviders,
		)
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
