// Package smarttext turns explanatory prose into annotated segments so the
// UI can cross-highlight recognized tokens against the code panels.
package smarttext

import (
	"regexp"
	"sort"
	"strings"

	"labz/internal/fheops"
	"labz/internal/glossary"
)

type SegmentKind string

const (
	KindPlain      SegmentKind = "plain"
	KindMethodCall SegmentKind = "method-call"
	KindNumber     SegmentKind = "number"
	KindIdentifier SegmentKind = "identifier"
	KindTerm       SegmentKind = "term"
	KindAddress    SegmentKind = "address"
	KindParamRef   SegmentKind = "param-ref"
)

// Segment is one annotated span of the input text. Start is the byte offset
// into the original string; Term carries the glossary/method key for
// hover lookups where one applies.
type Segment struct {
	Text  string      `json:"text"`
	Kind  SegmentKind `json:"kind"`
	Start int         `json:"start"`
	Term  string      `json:"term,omitempty"`
}

// Annotator tags prose spans. Annotation is a pure function of the input
// text; the matchers run most specific first and overlaps resolve to the
// earliest-starting accepted match.
type Annotator struct {
	glossary *glossary.Registry
}

func New(g *glossary.Registry) *Annotator {
	if g == nil {
		g = glossary.New()
	}
	return &Annotator{glossary: g}
}

type candidate struct {
	start, end int
	kind       SegmentKind
	term       string
	priority   int
}

var (
	hashRe       = regexp.MustCompile(`\b0x[0-9a-fA-F]{64}\b`)
	addressRe    = regexp.MustCompile(`\b0x[0-9a-fA-F]{40}\b`)
	capCallRe    = regexp.MustCompile(`\bT?FHE\.([A-Za-z_]\w*)(\(\))?`)
	callRe       = regexp.MustCompile(`\b[A-Za-z_]\w*\(\)`)
	paramRefRe   = regexp.MustCompile(`\{\{\s*[A-Za-z_]\w*\s*\}\}`)
	numberRe     = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	wordRe       = regexp.MustCompile(`\b[A-Za-z_]\w*(?:\.\w+)?\b`)
	paramInnerRe = regexp.MustCompile(`[A-Za-z_]\w*`)
)

// Annotate splits text into an ordered sequence of tagged segments covering
// the whole input. Unrecognized spans come back as plain text.
func (a *Annotator) Annotate(text string) []Segment {
	var cands []candidate

	for _, loc := range hashRe.FindAllStringIndex(text, -1) {
		cands = append(cands, candidate{loc[0], loc[1], KindAddress, "", 0})
	}
	for _, loc := range addressRe.FindAllStringIndex(text, -1) {
		cands = append(cands, candidate{loc[0], loc[1], KindAddress, "", 1})
	}
	for _, loc := range capCallRe.FindAllStringSubmatchIndex(text, -1) {
		method := text[loc[2]:loc[3]]
		if !fheops.IsKnown(method) {
			continue
		}
		cands = append(cands, candidate{loc[0], loc[1], KindMethodCall, method, 2})
	}
	for _, loc := range paramRefRe.FindAllStringIndex(text, -1) {
		name := paramInnerRe.FindString(text[loc[0]:loc[1]])
		cands = append(cands, candidate{loc[0], loc[1], KindParamRef, name, 3})
	}
	for _, loc := range callRe.FindAllStringIndex(text, -1) {
		cands = append(cands, candidate{loc[0], loc[1], KindMethodCall, "", 4})
	}
	for _, loc := range numberRe.FindAllStringIndex(text, -1) {
		cands = append(cands, candidate{loc[0], loc[1], KindNumber, "", 5})
	}
	for _, loc := range wordRe.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if term, ok := a.glossary.Lookup(word); ok {
			cands = append(cands, candidate{loc[0], loc[1], KindTerm, term.Name, 6})
			continue
		}
		if looksLikeIdentifier(word) {
			cands = append(cands, candidate{loc[0], loc[1], KindIdentifier, "", 7})
		}
	}

	// Earliest start wins; ties go to the more specific matcher.
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		return cands[i].priority < cands[j].priority
	})

	segments := []Segment{}
	pos := 0
	for _, c := range cands {
		if c.start < pos {
			continue // overlaps an already-accepted match
		}
		if c.start > pos {
			segments = append(segments, Segment{Text: text[pos:c.start], Kind: KindPlain, Start: pos})
		}
		segments = append(segments, Segment{Text: text[c.start:c.end], Kind: c.kind, Start: c.start, Term: c.term})
		pos = c.end
	}
	if pos < len(text) {
		segments = append(segments, Segment{Text: text[pos:], Kind: KindPlain, Start: pos})
	}
	return segments
}

// looksLikeIdentifier separates code-ish names from ordinary prose words:
// leading underscore, embedded capitals, digits, or a dotted member access.
func looksLikeIdentifier(word string) bool {
	if strings.HasPrefix(word, "_") || strings.Contains(word, "_") || strings.Contains(word, ".") {
		return true
	}
	for i, r := range word {
		if i > 0 && r >= 'A' && r <= 'Z' {
			return true
		}
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
