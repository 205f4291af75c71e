package syntax

import "github.com/dshills/loom/internal/engine/buffer"

// Span is one highlighted byte range tagged with a scope name such as
// "keyword", "string", or "comment". The renderer maps scopes to colors.
type Span struct {
	Range buffer.Range
	Scope string
}

// FilterViewport returns the spans overlapping the viewport range,
// clipped to it. Spans must be sorted by start offset, which is how
// providers return them.
func FilterViewport(spans []Span, viewport buffer.Range) []Span {
	var out []Span
	for _, sp := range spans {
		if sp.Range.Start >= viewport.End {
			break
		}
		if sp.Range.End <= viewport.Start {
			continue
		}
		clipped := sp
		if clipped.Range.Start < viewport.Start {
			clipped.Range.Start = viewport.Start
		}
		if clipped.Range.End > viewport.End {
			clipped.Range.End = viewport.End
		}
		out = append(out, clipped)
	}
	return out
}
