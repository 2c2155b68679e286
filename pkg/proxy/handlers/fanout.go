package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"mercator-hq/switchboard/pkg/proxy"
	"mercator-hq/switchboard/pkg/proxy/types"
	"mercator-hq/switchboard/pkg/telemetry/logging"
)

// FanoutHandler serves POST /v1/fanout: one prompt to many engines,
// answered with a single envelope once every engine has settled.
type FanoutHandler struct {
	Dispatcher Dispatcher
	Logger     *slog.Logger

	// MaxBodyBytes limits the request body; zero uses the package default.
	MaxBodyBytes int64
}

// NewFanoutHandler creates a buffered fan-out handler.
func NewFanoutHandler(d Dispatcher, logger *slog.Logger, maxBody int64) *FanoutHandler {
	return &FanoutHandler{
		Dispatcher:   d,
		Logger:       logging.Component(logger, "fanout"),
		MaxBodyBytes: maxBody,
	}
}

// ServeHTTP implements http.Handler.
func (h *FanoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fanReq, ok := decode(w, r, h.Logger, h.MaxBodyBytes)
	if !ok {
		return
	}

	meta := proxy.ExtractRequestMetadata(r, fanReq, logging.GetRequestID(ctx), false)
	h.Logger.InfoContext(ctx, "fan-out request", meta.LogAttrs()...)

	env, err := h.Dispatcher.Execute(ctx, fanReq.ToDispatch(meta.RequestID, logging.GetCaller(ctx)))
	if err != nil {
		h.Logger.WarnContext(ctx, "fan-out rejected", "error", err)
		writeError(w, h.Logger, r, proxy.HandleError(err))
		return
	}

	h.Logger.InfoContext(ctx, "fan-out completed", proxy.ExtractResponseMetadata(env).LogAttrs()...)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, env); err != nil {
		h.Logger.ErrorContext(ctx, "failed to write response", "error", err)
	}
}

// StreamHandler serves POST /v1/fanout/stream. Events from every engine
// are interleaved as they arrive; the envelope and the done marker close
// the stream.
type StreamHandler struct {
	Dispatcher   Dispatcher
	Logger       *slog.Logger
	MaxBodyBytes int64
}

// NewStreamHandler creates a streaming fan-out handler.
func NewStreamHandler(d Dispatcher, logger *slog.Logger, maxBody int64) *StreamHandler {
	return &StreamHandler{
		Dispatcher:   d,
		Logger:       logging.Component(logger, "fanout_stream"),
		MaxBodyBytes: maxBody,
	}
}

// ServeHTTP implements http.Handler.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fanReq, ok := decode(w, r, h.Logger, h.MaxBodyBytes)
	if !ok {
		return
	}

	meta := proxy.ExtractRequestMetadata(r, fanReq, logging.GetRequestID(ctx), true)
	h.Logger.InfoContext(ctx, "fan-out stream request", meta.LogAttrs()...)

	events, envelopes, err := h.Dispatcher.Stream(ctx, fanReq.ToDispatch(meta.RequestID, logging.GetCaller(ctx)))
	if err != nil {
		h.Logger.WarnContext(ctx, "fan-out rejected", "error", err)
		writeError(w, h.Logger, r, proxy.HandleError(err))
		return
	}

	proxy.SetSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	// Keep draining after a write failure so the dispatcher is never
	// blocked on a departed client.
	writeFailed := false
	for ev := range events {
		if writeFailed {
			continue
		}
		if err := proxy.WriteSSEEvent(w, string(ev.Type), ev); err != nil {
			h.Logger.WarnContext(ctx, "client disconnected during streaming", "error", err)
			writeFailed = true
		}
	}

	env, ok := <-envelopes
	if !ok || writeFailed {
		return
	}

	h.Logger.InfoContext(ctx, "fan-out stream completed", proxy.ExtractResponseMetadata(env).LogAttrs()...)

	if err := proxy.WriteSSEEvent(w, types.EventEnvelope, env); err != nil {
		h.Logger.WarnContext(ctx, "failed to write envelope", "error", err)
		return
	}
	if err := proxy.WriteSSEDone(w); err != nil {
		h.Logger.WarnContext(ctx, "failed to write SSE done marker", "error", err)
	}
}

// decode enforces POST and parses the body, writing the error response
// itself when it returns false.
func decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, maxBody int64) (*types.FanoutRequest, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, logger, r, types.NewErrorResponse(
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
			types.ErrorTypeMethodNotAllowed,
			"method",
			"method_not_allowed",
		))
		return nil, false
	}

	fanReq, err := proxy.ParseFanoutRequest(r, maxBody)
	if err != nil {
		logger.InfoContext(r.Context(), "invalid fan-out request", "error", err)
		writeError(w, logger, r, proxy.HandleError(err))
		return nil, false
	}
	return fanReq, true
}

func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		logger.ErrorContext(r.Context(), "failed to write error response", "error", err)
	}
}
