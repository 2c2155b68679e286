package providers

import (
	"context"
	"io"
)

// Adapter is the interface every provider integration implements.
// An adapter owns exactly one wire format. It translates a Call into the
// provider's request, decodes the response into Chunks, and maps failures to
// an ErrorKind.
//
// Adapters are stateless with respect to requests and must never retry;
// retry policy belongs to the dispatcher.
//
// Example usage:
//
//	stream, err := adapter.Dispatch(ctx, &providers.Call{
//	    Model:     "gpt-4o",
//	    Prompt:    "ping",
//	    MaxTokens: 256,
//	    Stream:    true,
//	})
//	if err != nil {
//	    return adapter.TranslateError(err), err
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Read(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
type Adapter interface {
	// Name returns the provider's configured name (e.g., "openai").
	Name() string

	// Type returns the adapter type (e.g., "openai", "generic").
	Type() string

	// Capabilities describes the wire format and request restrictions.
	Capabilities() Capabilities

	// HasCredentials reports whether the adapter has what it needs to
	// authenticate. Local providers without keys report true.
	HasCredentials() bool

	// Dispatch sends a single request upstream and returns a stream of raw
	// chunks. HTTP-level failures are returned as errors before any chunk is
	// read. The context bounds the whole call including the body read.
	Dispatch(ctx context.Context, call *Call) (ChunkStream, error)

	// TranslateError maps an error returned by Dispatch or the stream into
	// the shared error taxonomy.
	TranslateError(err error) ErrorKind

	// Close releases pooled connections.
	Close() error
}

// ChunkStream abstracts the underlying framing used by the provider.
type ChunkStream interface {
	// Read returns the next chunk.
	// Returns nil and io.EOF when the stream ends normally.
	Read(ctx context.Context) (*Chunk, error)

	// Close closes the stream and releases the response body.
	Close() error
}

// SingleChunkStream yields one chunk and then io.EOF.
// Adapters for non-streaming APIs return it after decoding the body.
type SingleChunkStream struct {
	chunk *Chunk
	done  bool
}

// NewSingleChunkStream wraps a fully decoded response and marks it Whole.
func NewSingleChunkStream(chunk *Chunk) *SingleChunkStream {
	if chunk != nil {
		chunk.Whole = true
	}
	return &SingleChunkStream{chunk: chunk}
}

// Read implements ChunkStream.
func (s *SingleChunkStream) Read(ctx context.Context) (*Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done || s.chunk == nil {
		return nil, io.EOF
	}
	s.done = true
	return s.chunk, nil
}

// Close implements ChunkStream.
func (s *SingleChunkStream) Close() error {
	s.done = true
	return nil
}
