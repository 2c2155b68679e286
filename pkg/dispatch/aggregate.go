package dispatch

import (
	"time"

	"github.com/google/uuid"

	"mercator-hq/switchboard/pkg/providers"
)

// Envelope is the aggregated result of a fan-out.
type Envelope struct {
	ID        string             `json:"id"`
	Created   int64              `json:"created"`
	Responses []ProviderResponse `json:"responses"`
	Meta      Meta               `json:"meta"`
}

// ResponseStatus is the outcome of one task as callers see it. Failed and
// timed-out tasks both report ResponseError; ErrorKind tells them apart.
type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "success"
	ResponseError   ResponseStatus = "error"
)

// ProviderResponse is one task in the envelope.
type ProviderResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Content is null unless the task succeeded.
	Content *string `json:"content"`

	// Tokens is the total token count, absent when the provider reported
	// no usage. Usage carries the input/output split.
	Tokens *int   `json:"tokens,omitempty"`
	Usage  *Usage `json:"usage,omitempty"`

	LatencyMS int64          `json:"latency_ms"`
	Status    ResponseStatus `json:"status"`
	Attempts  int            `json:"attempts"`

	Error     string              `json:"error,omitempty"`
	ErrorKind providers.ErrorKind `json:"error_kind,omitempty"`

	FinishReason       string `json:"finish_reason,omitempty"`
	Truncated          bool   `json:"truncated"`
	Clamped            bool   `json:"clamped"`
	EffectiveMaxTokens int    `json:"effective_max_tokens"`
}

// Usage is the token split of one response.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Meta summarizes the fan-out.
type Meta struct {
	TotalEngines   int   `json:"total_engines"`
	Successful     int   `json:"successful"`
	Failed         int   `json:"failed"`
	TotalLatencyMS int64 `json:"total_latency_ms"`
}

// Aggregate folds settled tasks into an envelope, keeping task order.
// Tasks that are not terminal count as failed. total_latency_ms runs from
// start to the last task's finish.
func Aggregate(start time.Time, tasks []*Task) *Envelope {
	env := &Envelope{
		ID:        "fan-" + uuid.NewString(),
		Created:   start.Unix(),
		Responses: make([]ProviderResponse, 0, len(tasks)),
		Meta:      Meta{TotalEngines: len(tasks)},
	}

	var last time.Time
	for _, t := range tasks {
		resp := ProviderResponse{
			Provider:           t.Provider,
			Model:              t.Model,
			LatencyMS:          t.Latency().Milliseconds(),
			Status:             ResponseError,
			Attempts:           t.Attempts,
			Error:              t.Error,
			ErrorKind:          t.ErrorKind,
			FinishReason:       t.FinishReason,
			Truncated:          t.Truncated,
			Clamped:            t.Clamped,
			EffectiveMaxTokens: t.EffectiveMaxTokens,
		}
		if t.HasUsage {
			total := t.Usage.Total()
			resp.Tokens = &total
			resp.Usage = &Usage{Input: t.Usage.Input, Output: t.Usage.Output, Total: total}
		}
		if t.Status == StatusSucceeded {
			content := t.Content
			resp.Content = &content
			resp.Status = ResponseSuccess
			env.Meta.Successful++
		} else {
			env.Meta.Failed++
		}
		if t.FinishedAt.After(last) {
			last = t.FinishedAt
		}
		env.Responses = append(env.Responses, resp)
	}

	if last.After(start) {
		env.Meta.TotalLatencyMS = last.Sub(start).Milliseconds()
	}
	return env
}
