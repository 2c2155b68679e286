package stream

import (
	"context"
	"errors"
	"io"
	"time"
	"unicode/utf8"

	"mercator-hq/switchboard/pkg/providers"
)

// Result summarizes one normalized call.
type Result struct {
	Content string
	Model   string

	Usage    providers.Usage
	HasUsage bool

	// FinishReason is normalized; RawFinishReason is what the provider sent.
	FinishReason    string
	RawFinishReason string
	Truncated       bool

	// Emitted counts events handed to emit.
	Emitted int

	// Err is set when the stream ended with an error instead of EOF. No
	// terminal event is emitted in that case.
	Err error
}

// Normalizer turns one provider's chunk stream into Events.
//
// Text is coalesced: a chunk's text is flushed at the chunk boundary once
// FlushInterval has passed since the previous flush, and a timer flushes a
// non-empty buffer when the provider goes quiet. Flushes never split a
// UTF-8 sequence. Usage is reported once, just before Completed, so a call
// that fails before its first delta has emitted nothing and can be retried.
//
// A Whole chunk (single-body response) yields exactly one delta, possibly
// empty, followed immediately by Completed; its usage comes first.
//
// A Normalizer keeps its sequence counter across Run calls so retries of
// the same task continue the numbering. It is not safe for concurrent use.
type Normalizer struct {
	provider      string
	flushInterval time.Duration
	seq           int
	now           func() time.Time
}

// New creates a Normalizer. A zero flushInterval flushes at every chunk.
func New(provider string, flushInterval time.Duration) *Normalizer {
	return &Normalizer{
		provider:      provider,
		flushInterval: flushInterval,
		now:           time.Now,
	}
}

type readResult struct {
	chunk *providers.Chunk
	err   error
}

// Run consumes src until EOF, an error, or ctx is done, calling emit (which
// may be nil) for each event in order. It closes src.
func (n *Normalizer) Run(ctx context.Context, src providers.ChunkStream, emit func(Event)) Result {
	var (
		res       Result
		pending   []byte
		content   []byte
		lastFlush = n.now()
		timer     *time.Timer
		timerC    <-chan time.Time
	)

	send := func(e Event) {
		n.seq++
		e.Provider = n.provider
		e.Seq = n.seq
		res.Emitted++
		if emit != nil {
			emit(e)
		}
	}

	flush := func(final bool) {
		if len(pending) == 0 {
			return
		}
		cut := len(pending)
		if !final {
			cut = completePrefix(pending)
		}
		if cut == 0 {
			return
		}
		send(Event{Type: EventDelta, Text: string(pending[:cut])})
		pending = append(pending[:0], pending[cut:]...)
		lastFlush = n.now()
	}

	done := make(chan struct{})
	chunks := make(chan readResult)
	defer src.Close()
	defer close(done)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	go func() {
		for {
			chunk, err := src.Read(ctx)
			select {
			case chunks <- readResult{chunk: chunk, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			res.Content = string(content)
			res.Err = ctx.Err()
			return res

		case <-timerC:
			timerC = nil
			flush(false)

		case r := <-chunks:
			if r.err != nil {
				flush(true)
				res.Content = string(content)
				if !errors.Is(r.err, io.EOF) {
					res.Err = r.err
					return res
				}
				if res.HasUsage {
					usage := res.Usage
					send(Event{Type: EventUsage, Usage: &usage})
				}
				res.FinishReason, res.Truncated = NormalizeFinishReason(res.RawFinishReason)
				send(Event{Type: EventCompleted, FinishReason: res.FinishReason, Truncated: res.Truncated})
				return res
			}
			if r.chunk == nil {
				continue
			}

			n.absorb(&res, r.chunk)
			if r.chunk.Whole {
				flush(true)
				content = append(content, r.chunk.Delta...)
				res.Content = string(content)
				if res.HasUsage {
					usage := res.Usage
					send(Event{Type: EventUsage, Usage: &usage})
				}
				send(Event{Type: EventDelta, Text: r.chunk.Delta})
				res.FinishReason, res.Truncated = NormalizeFinishReason(res.RawFinishReason)
				send(Event{Type: EventCompleted, FinishReason: res.FinishReason, Truncated: res.Truncated})
				return res
			}
			if r.chunk.Delta == "" {
				continue
			}
			pending = append(pending, r.chunk.Delta...)
			content = append(content, r.chunk.Delta...)

			elapsed := n.now().Sub(lastFlush)
			if n.flushInterval <= 0 || elapsed >= n.flushInterval {
				flush(false)
				continue
			}
			if timerC == nil {
				if timer == nil {
					timer = time.NewTimer(n.flushInterval - elapsed)
				} else {
					timer.Reset(n.flushInterval - elapsed)
				}
				timerC = timer.C
			}
		}
	}
}

// absorb records the non-text parts of a chunk.
func (n *Normalizer) absorb(res *Result, chunk *providers.Chunk) {
	if chunk.Model != "" {
		res.Model = chunk.Model
	}
	if chunk.FinishReason != "" {
		res.RawFinishReason = chunk.FinishReason
	}
	if chunk.Usage != nil {
		res.HasUsage = true
		if chunk.Usage.Input > 0 {
			res.Usage.Input = chunk.Usage.Input
		}
		if chunk.Usage.Output > 0 {
			res.Usage.Output = chunk.Usage.Output
		}
	}
}

// Failed builds the terminal failure event for this provider, continuing
// the sequence.
func (n *Normalizer) Failed(kind providers.ErrorKind, message string) Event {
	n.seq++
	return Event{
		Provider:  n.provider,
		Seq:       n.seq,
		Type:      EventFailed,
		ErrorKind: kind,
		Message:   message,
	}
}

// completePrefix returns the length of the longest prefix of b that does
// not end inside a UTF-8 sequence.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}
