// Package stream turns a provider's line-delimited streaming response into
// the StreamChunk channel the generation port exposes.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// maxLine bounds a single streamed line.
const maxLine = 1 << 20

// Event is what a provider parser extracts from one line.
type Event struct {
	Delta string

	// Usage replaces the accumulated usage when any field is non-zero.
	Usage domain.Usage

	// Done marks the provider's end-of-stream signal.
	Done bool

	// Skip ignores the line (keep-alives, event names, blank lines).
	Skip bool
}

// LineParser decodes one line of the upstream body.
type LineParser func(line []byte) (Event, error)

// Pump reads body line by line in a goroutine and forwards deltas. The
// channel is closed after exactly one final chunk carrying Done or Err, unless
// ctx is cancelled first, in which case it is closed without a final chunk.
// Done is only sent when parse reports the provider's end signal; a body
// that ends without one yields io.ErrUnexpectedEOF. body is always closed.
func Pump(ctx context.Context, body io.ReadCloser, parse LineParser) <-chan driven.StreamChunk {
	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		defer body.Close()

		send := func(c driven.StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var usage domain.Usage
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			ev, err := parse(line)
			if err != nil {
				send(driven.StreamChunk{Err: err})
				return
			}
			if ev.Skip {
				continue
			}
			if ev.Usage.InputTokens != 0 || ev.Usage.OutputTokens != 0 {
				usage = ev.Usage
			}
			if ev.Delta != "" && !send(driven.StreamChunk{Delta: ev.Delta}) {
				return
			}
			if ev.Done {
				send(driven.StreamChunk{Done: true, Usage: usage})
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := scanner.Err(); err != nil {
			send(driven.StreamChunk{Err: err})
			return
		}
		send(driven.StreamChunk{Err: fmt.Errorf("stream closed before end signal: %w", io.ErrUnexpectedEOF)})
	}()
	return out
}

// SSEData returns the payload of an SSE "data:" line and whether the line was one.
func SSEData(line []byte) ([]byte, bool) {
	rest, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return nil, false
	}
	return bytes.TrimSpace(rest), true
}
