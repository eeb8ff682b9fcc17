package form

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/property-cli/internal/debounce"
)

// MinSuggestPrefix is the shortest input that triggers a tag lookup.
const MinSuggestPrefix = 2

// TagAPI looks up tag completions.
type TagAPI interface {
	SuggestTags(ctx context.Context, prefix string, limit int) ([]string, error)
}

// TagSuggester debounces tag lookups as the user types. Only suggestions
// for the latest input reach the callback.
type TagSuggester struct {
	task *debounce.Task[[]string]
}

// Suggestion is the lookup result for one input. Seq matches the value
// returned by the Input call that scheduled it.
type Suggestion struct {
	Seq    uint64
	Prefix string
	Tags   []string
	Err    error
}

// NewTagSuggester creates a suggester that calls deliver with the
// suggestions for the most recent input.
func NewTagSuggester(api TagAPI, delay time.Duration, limit int, deliver func(Suggestion)) *TagSuggester {
	lookup := func(ctx context.Context, prefix string) ([]string, error) {
		return api.SuggestTags(ctx, prefix, limit)
	}
	return &TagSuggester{
		task: debounce.New[[]string](delay, lookup, func(r debounce.Result[[]string]) {
			deliver(Suggestion{Seq: r.Seq, Prefix: r.Input, Tags: r.Value, Err: r.Err})
		}),
	}
}

// Input registers the text currently typed in the tag field. Inputs shorter
// than MinSuggestPrefix cancel any pending lookup. Returns the sequence
// number of the scheduled lookup, or 0 when none was scheduled.
func (s *TagSuggester) Input(ctx context.Context, text string) uint64 {
	prefix := CurrentTag(text)
	if len([]rune(prefix)) < MinSuggestPrefix {
		s.task.Stop()
		return 0
	}
	return s.task.Trigger(ctx, prefix)
}

// Latest returns the sequence number of the most recent input.
func (s *TagSuggester) Latest() uint64 {
	return s.task.Latest()
}

// Dropped returns how many lookups finished after being superseded.
func (s *TagSuggester) Dropped() uint64 {
	return s.task.Dropped()
}

// Stop cancels any pending lookup.
func (s *TagSuggester) Stop() {
	s.task.Stop()
}

// CurrentTag returns the tag being typed: the text after the last comma,
// lowercased.
func CurrentTag(text string) string {
	if i := strings.LastIndex(text, ","); i >= 0 {
		text = text[i+1:]
	}
	return strings.ToLower(strings.TrimSpace(text))
}
