package ollama

import (
	"context"
	"strings"
	"time"
)

// WordChunker re-segments a completed response into word-sized chunks with
// single-space separators between them. It simulates incremental delivery
// until the upstream speaks a real streaming protocol.
type WordChunker struct {
	// Delay between consecutive chunk emissions. Zero emits without pacing.
	Delay time.Duration
}

// Chunks splits text on whitespace into words interleaved with single-space
// separator chunks. The last chunk never carries a trailing separator.
func (w WordChunker) Chunks(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(words)*2-1)
	for i, word := range words {
		if i > 0 {
			chunks = append(chunks, " ")
		}
		chunks = append(chunks, word)
	}
	return chunks
}

// Stream delivers the text chunk by chunk through fn, pausing Delay between
// emissions. Delivery stops when ctx is cancelled.
func (w WordChunker) Stream(ctx context.Context, text string, fn func(chunk string)) error {
	for i, chunk := range w.Chunks(text) {
		if i > 0 && w.Delay > 0 {
			select {
			case <-time.After(w.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		fn(chunk)
	}
	return nil
}
