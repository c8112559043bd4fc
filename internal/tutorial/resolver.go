// Package tutorial resolves declarative step references into concrete line
// ranges in the current source. Resolution is recomputed from scratch against
// whatever source the resolver holds, so highlights never point at stale
// lines after a regeneration.
package tutorial

import (
	"regexp"
	"strings"

	"labz/internal/solidity"
)

// Range is an inclusive 1-based line range.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r Range) overlaps(other Range) bool {
	return r.Start <= other.End && r.End >= other.Start
}

// Ref is one step reference kind. Each kind resolves independently with a
// uniform nil-on-miss contract.
type Ref interface {
	isRef()
}

// LinesRef pins an explicit range.
type LinesRef struct {
	Start, End int
}

// MethodRef locates a function by name.
type MethodRef struct {
	Name string
}

// PatternRef locates the first regex match.
type PatternRef struct {
	Pattern string
}

// OpRef locates the first capability-namespace call with the given name.
// Always resolved against the contract side.
type OpRef struct {
	Name string
}

// TestCallRef locates a named test block, then the first call to Call inside
// it. Always resolved against the test side.
type TestCallRef struct {
	Block string
	Call  string
}

func (LinesRef) isRef()    {}
func (MethodRef) isRef()   {}
func (PatternRef) isRef()  {}
func (OpRef) isRef()       {}
func (TestCallRef) isRef() {}

// Resolver holds the two code panels' current sources. It keeps no cache
// across source updates.
type Resolver struct {
	contractLines []string
	contract      *solidity.Contract
	testSrc       []byte
	testLines     []string
	active        *Range
}

// NewResolver builds a resolver over the contract panel source and the test
// panel source (either may be empty).
func NewResolver(contractSrc, testSrc string) *Resolver {
	r := &Resolver{}
	r.SetContractSource(contractSrc)
	r.SetTestSource(testSrc)
	return r
}

// SetContractSource replaces the contract panel source and drops any derived
// state.
func (r *Resolver) SetContractSource(src string) {
	r.contractLines = strings.Split(src, "\n")
	// Parse is best-effort; a partial model still resolves what it contains.
	c, _ := solidity.Parse(src)
	r.contract = c
}

// SetTestSource replaces the test panel source.
func (r *Resolver) SetTestSource(src string) {
	r.testSrc = []byte(src)
	r.testLines = strings.Split(src, "\n")
}

// SetActive records the currently highlighted step range, used to keep
// ambiguous references anchored to the same logical step across panels. Pass
// nil to clear.
func (r *Resolver) SetActive(rg *Range) {
	r.active = rg
}

// Resolve maps a step reference to a line range in the requested panel, or
// nil when nothing matches. Callers treat nil as "no highlight", never as an
// error.
func (r *Resolver) Resolve(ref Ref, contractSide bool) *Range {
	switch v := ref.(type) {
	case LinesRef:
		if v.Start <= 0 || v.End < v.Start {
			return nil
		}
		return &Range{Start: v.Start, End: v.End}
	case MethodRef:
		return r.resolveMethod(v.Name, contractSide)
	case PatternRef:
		return r.resolvePattern(v.Pattern, contractSide)
	case OpRef:
		return r.resolveOp(v.Name)
	case TestCallRef:
		return r.resolveTestCall(v.Block, v.Call)
	default:
		return nil
	}
}

func (r *Resolver) resolveMethod(name string, contractSide bool) *Range {
	if name == "" {
		return nil
	}
	var candidates []Range
	if contractSide {
		for _, fn := range r.contract.FindFunction(name) {
			candidates = append(candidates, Range{Start: fn.StartLine, End: fn.EndLine})
		}
	} else {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
		if err != nil {
			return nil
		}
		candidates = matchingLines(r.testLines, re)
	}
	return r.pick(candidates)
}

func (r *Resolver) resolvePattern(pattern string, contractSide bool) *Range {
	re, err := regexp.Compile(pattern)
	if err != nil {
		// A broken pattern in step data is a resolution miss, not a crash.
		return nil
	}
	lines := r.contractLines
	if !contractSide {
		lines = r.testLines
	}
	return r.pick(matchingLines(lines, re))
}

func (r *Resolver) resolveOp(name string) *Range {
	for _, fn := range r.contract.Functions {
		for _, op := range fn.FHEOperations {
			if op.Name == name {
				return &Range{Start: op.Line, End: op.Line}
			}
		}
	}
	return nil
}

// pick applies the tie-break policy: prefer a candidate overlapping the
// active step range, else the first occurrence in source order.
func (r *Resolver) pick(candidates []Range) *Range {
	if len(candidates) == 0 {
		return nil
	}
	if r.active != nil {
		for _, c := range candidates {
			if c.overlaps(*r.active) {
				out := c
				return &out
			}
		}
	}
	out := candidates[0]
	return &out
}

func matchingLines(lines []string, re *regexp.Regexp) []Range {
	var out []Range
	for i, line := range lines {
		if re.MatchString(line) {
			out = append(out, Range{Start: i + 1, End: i + 1})
		}
	}
	return out
}
