// Package pacer reveals reply text a few words at a time. It is cosmetic:
// the full reply is already known when revealing starts.
package pacer

import (
	"context"
	"time"
	"unicode"
)

// Reveal calls emit with growing prefixes of text, one every step words,
// sleeping delay between emissions. Every emitted string is a prefix of text
// and the last one is text itself, unless ctx is cancelled first.
func Reveal(ctx context.Context, text string, delay time.Duration, step int, emit func(partial string)) error {
	if step < 1 {
		step = 1
	}
	ends := wordEnds(text)
	if delay <= 0 || len(ends) <= step {
		emit(text)
		return nil
	}

	t := time.NewTicker(delay)
	defer t.Stop()
	for i, end := range ends {
		if (i+1)%step != 0 || i == len(ends)-1 {
			continue
		}
		emit(text[:end])
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	emit(text)
	return nil
}

// wordEnds returns the byte offset just past each whitespace-separated word.
func wordEnds(text string) []int {
	var ends []int
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				ends = append(ends, i)
			}
			inWord = false
			continue
		}
		inWord = true
	}
	if inWord {
		ends = append(ends, len(text))
	}
	return ends
}
