package providers

import (
	"bufio"
	"context"
	"io"
)

// maxLineSize is the largest single SSE or NDJSON line accepted.
const maxLineSize = 1 << 20

// LineReader reads newline-delimited frames from a response body.
// Cancelling the request context closes the body, which unblocks Next.
type LineReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	base    *HTTPProvider
}

// NewLineReader wraps body for line-oriented decoding.
func NewLineReader(base *HTTPProvider, body io.ReadCloser) *LineReader {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &LineReader{body: body, scanner: scanner, base: base}
}

// Next returns the next line without its trailing newline.
// It returns io.EOF when the body is exhausted.
func (r *LineReader) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", r.base.ReadError(ctx, err)
	}
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", r.base.ReadError(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return "", r.base.ReadError(ctx, err)
	}
	return "", io.EOF
}

// Close releases the response body.
func (r *LineReader) Close() error {
	return r.body.Close()
}
