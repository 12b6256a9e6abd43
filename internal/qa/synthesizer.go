// Package qa synthesizes question-answer pairs from source content through a
// chat-completion model and copes with the messy outputs models produce.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docgenie/apps/indexer/internal/adapter/openai"
)

// FileMaxPairs caps the pair count for file-derived content, which tends to
// be denser than web pages.
const FileMaxPairs = 35

const synthesisSystemPrompt = `You are an assistant that creates question and answer pairs from documentation.
Given a passage, produce questions a reader would plausibly ask and answer each one using only the passage.
Respond with a JSON array of objects, each with "question" and "answer" string fields, and nothing else.`

const enhanceSystemPrompt = `You are an assistant that cleans up meeting transcript excerpts.
Fix grammar and punctuation and remove filler words, keeping the meaning and all factual detail intact.
Respond with the cleaned text only.`

var errBudgetExhausted = errors.New("throttle retry budget exhausted")

// Target computes how many pairs to request for a piece of content: roughly
// one per thousand characters, clamped to [minPairs, maxPairs], then scaled
// by multiplier.
func Target(contentLen, minPairs, maxPairs, multiplier int) int {
	n := contentLen / 1000
	if n < minPairs {
		n = minPairs
	}
	if n > maxPairs {
		n = maxPairs
	}
	return n * multiplier
}

// Completer is the slice of the model client the synthesizer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Synthesizer struct {
	completer  Completer
	maxRetries int
	waitFor    time.Duration
	sleep      func(time.Duration)
}

// NewSynthesizer wires a synthesizer with a bounded throttle-retry budget.
// maxRetries caps total model calls per request; waitFor is the backoff used
// when a throttle response carries no wait hint.
func NewSynthesizer(completer Completer, maxRetries int, waitFor time.Duration) *Synthesizer {
	return &Synthesizer{
		completer:  completer,
		maxRetries: maxRetries,
		waitFor:    waitFor,
		sleep:      time.Sleep,
	}
}

// complete runs one model request under the throttle-retry budget. Throttle
// responses are retried after the hinted wait; other errors surface as-is.
func (s *Synthesizer) complete(ctx context.Context, system, user string) (string, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		out, err := s.completer.Complete(ctx, system, user)
		if err == nil {
			return out, nil
		}

		var te *openai.ThrottleError
		if !errors.As(err, &te) {
			return "", err
		}

		wait := s.waitFor
		if te.RetryAfter > 0 {
			wait = te.RetryAfter
		}
		slog.Info("completion throttled, backing off", "wait", wait, "attempt", attempt+1)
		s.sleep(wait)
	}
	return "", errBudgetExhausted
}

// Synthesize asks the model for target question-answer pairs about content.
// Exhausting the retry budget or receiving unparsable output yields an empty
// list, not an error.
func (s *Synthesizer) Synthesize(ctx context.Context, content string, target int) ([]Pair, error) {
	user := fmt.Sprintf(
		"Create %d question and answer pairs directly supported by the following passage. "+
			"Skip any pair the passage does not answer clearly and definitively. "+
			"Replace user-specific details such as IDs, GUIDs, or personal information with placeholders.\n\n%s",
		target, content)

	out, err := s.complete(ctx, synthesisSystemPrompt, user)
	if errors.Is(err, errBudgetExhausted) {
		slog.Warn("synthesis retry budget exhausted", "attempts", s.maxRetries)
		return []Pair{}, nil
	}
	if err != nil {
		return nil, err
	}

	pairs, err := ParsePairs(out)
	if err != nil {
		slog.Warn("discarding unparsable synthesis output", "error", err, "output_len", len(out))
		return []Pair{}, nil
	}
	return pairs, nil
}

// Enhance cleans up a transcript chunk through the model, under the same
// throttle-retry budget as synthesis. Any failure falls back to the raw
// chunk.
func (s *Synthesizer) Enhance(ctx context.Context, chunk string) string {
	out, err := s.complete(ctx, enhanceSystemPrompt, chunk)
	if err != nil {
		slog.Warn("transcript enhancement failed, keeping raw chunk", "error", err)
		return chunk
	}
	if out == "" {
		return chunk
	}
	return out
}
