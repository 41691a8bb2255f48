// Package decoder rebuilds entity graphs from X12-style segment streams.
// Tokenization is stateless; the per-transaction reconstruction engines hold
// the state needed to resolve segments that arrive before their context.
package decoder

import (
	"strings"

	"github.com/claimstream/edi-fixtures/edi/constants"
)

// Segment is one tokenized segment. Elements excludes the segment id, so
// Elements[0] is the first data element (the X12 "01" position).
type Segment struct {
	ID       string
	Elements []string
	Raw      string
}

// Element returns the i-th data element, or "" when the segment is too
// short. Guarded access is what keeps malformed segments from taking down a
// whole decode run.
func (s Segment) Element(i int) string {
	if i < 0 || i >= len(s.Elements) {
		return ""
	}
	return s.Elements[i]
}

// Tokenize splits raw text into an ordered segment sequence. Empty fragments
// (trailing terminator, blank lines) are discarded; element counts are not
// validated here.
func Tokenize(raw string) []Segment {
	var segments []Segment
	for _, fragment := range strings.Split(raw, constants.SegmentTerminator) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		elements := strings.Split(fragment, constants.ElementSeparator)
		segments = append(segments, Segment{
			ID:       elements[0],
			Elements: elements[1:],
			Raw:      fragment,
		})
	}
	return segments
}
