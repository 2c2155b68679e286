package providers

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
)

type stubAdapter struct {
	name   string
	closed bool
}

func (s *stubAdapter) Name() string { return s.name }
func (s *stubAdapter) Type() string { return "stub" }
func (s *stubAdapter) Capabilities() Capabilities { return Capabilities{} }
func (s *stubAdapter) HasCredentials() bool { return true }
func (s *stubAdapter) TranslateError(err error) ErrorKind { return ClassifyError(err) }
func (s *stubAdapter) Close() error { s.closed = true; return nil }
func (s *stubAdapter) Dispatch(ctx context.Context, call *Call) (ChunkStream, error) {
	return NewSingleChunkStream(&Chunk{Delta: call.Prompt}), nil
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	a := &stubAdapter{name: "beta"}
	b := &stubAdapter{name: "alpha"}
	registry.Register(a)
	registry.Register(b)

	if got := registry.Names(); !reflect.DeepEqual(got, []string{"alpha", "beta"}) {
		t.Errorf("expected sorted names, got %v", got)
	}
	if !registry.Has("alpha") || registry.Has("gamma") {
		t.Error("unexpected Has result")
	}

	_, err := registry.Get("gamma")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for unknown provider, got %v", err)
	}

	replacement := &stubAdapter{name: "beta"}
	registry.Register(replacement)
	if !a.closed {
		t.Error("replaced adapter should be closed")
	}
	if got, _ := registry.Get("beta"); got != replacement {
		t.Error("expected replacement adapter")
	}

	if err := registry.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if registry.Len() != 0 || !b.closed {
		t.Error("close should close and remove all adapters")
	}
}

func TestSingleChunkStream(t *testing.T) {
	stream := NewSingleChunkStream(&Chunk{Delta: "x", FinishReason: "stop"})
	ctx := context.Background()

	chunk, err := stream.Read(ctx)
	if err != nil || chunk.Delta != "x" {
		t.Fatalf("unexpected first read: %+v, %v", chunk, err)
	}
	if !chunk.Whole {
		t.Error("single-body chunk should be marked Whole")
	}
	if _, err := stream.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
