package solidity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"labz/internal/fheops"
)

// ErrNoContract is returned when the source contains no contract declaration.
// The returned model still carries whatever header structure was found.
var ErrNoContract = errors.New("no contract declaration found")

var (
	licenseRe  = regexp.MustCompile(`SPDX-License-Identifier:\s*(\S+)`)
	pragmaRe   = regexp.MustCompile(`^\s*pragma\s+solidity\s+([^;]+);`)
	importRe   = regexp.MustCompile(`^\s*import\s+[^;]+;`)
	quotedRe   = regexp.MustCompile(`["']([^"']+)["']`)
	bracedRe   = regexp.MustCompile(`\{([^}]*)\}`)
	contractRe = regexp.MustCompile(`^\s*(?:abstract\s+)?contract\s+([A-Za-z_]\w*)(?:\s+is\s+([^{]+?))?\s*\{?\s*$`)
	functionRe = regexp.MustCompile(`\bfunction\s+([A-Za-z_]\w*)\s*\(`)
	fheCallRe  = regexp.MustCompile(`\b(?:T?FHE)\s*\.\s*([A-Za-z_]\w*)\s*\(`)
)

// Keywords that open constructs state-variable extraction must not touch.
var nonStateKeywords = map[string]bool{
	"function": true, "constructor": true, "modifier": true, "event": true,
	"error": true, "struct": true, "enum": true, "using": true,
	"receive": true, "fallback": true, "emit": true, "return": true,
	"require": true, "if": true, "for": true, "while": true, "revert": true,
}

var dataLocations = map[string]bool{"memory": true, "calldata": true, "storage": true}

var visibilityKeywords = map[string]bool{
	"public": true, "private": true, "internal": true, "external": true,
}

var mutabilityKeywords = map[string]bool{"view": true, "pure": true, "payable": true}

// Parse extracts the structured model from raw contract source text.
//
// Extraction is best-effort: unrecognized or malformed constructs are skipped
// rather than failing the whole parse, so downstream consumers always get a
// usable (possibly partial) model. The only reported error is ErrNoContract,
// and even then the partial model is returned alongside it.
func Parse(source string) (*Contract, error) {
	lines := strings.Split(source, "\n")
	c := &Contract{
		Imports:        []Import{},
		StateVariables: []StateVariable{},
		Functions:      []Function{},
	}

	depth := 0
	inBlockComment := false
	contractOpened := false

	for i := 0; i < len(lines); i++ {
		raw := lines[i]
		line := stripNoise(raw, &inBlockComment)
		lineNo := i + 1

		if c.License == "" {
			if m := licenseRe.FindStringSubmatch(raw); m != nil {
				c.License = m[1]
			}
		}
		if c.Pragma == "" {
			if m := pragmaRe.FindStringSubmatch(line); m != nil {
				c.Pragma = strings.TrimSpace(m[1])
			}
		}

		if depth == 0 && c.Line == 0 {
			// Match against the stripped line, but slice the statement
			// from the raw one: stripNoise blanks string literals, and
			// the import path lives inside one.
			if loc := importRe.FindStringIndex(line); loc != nil {
				c.Imports = append(c.Imports, parseImport(strings.TrimSpace(raw[loc[0]:loc[1]]), lineNo))
			}
			if m := contractRe.FindStringSubmatch(line); m != nil {
				c.Name = m[1]
				c.Line = lineNo
				for _, base := range strings.Split(m[2], ",") {
					if base = strings.TrimSpace(base); base != "" {
						c.Inherits = append(c.Inherits, base)
					}
				}
			}
		}

		if contractOpened && depth == 1 {
			if loc := functionRe.FindStringIndex(line); loc != nil {
				fn, bodyEnd, ok := parseFunction(lines, i, loc[0])
				if ok {
					c.Functions = append(c.Functions, fn)
					// Jump past the whole function; bodies never nest in
					// Solidity so nothing inside is lost.
					i = bodyEnd - 1
					continue
				}
				// Unterminated signature: skip just this line.
			} else if sv, ok := parseStateVariable(line, lineNo); ok {
				c.StateVariables = append(c.StateVariables, sv)
			}
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if c.Line != 0 && !contractOpened && depth > 0 {
			contractOpened = true
		}
		if contractOpened && depth == 0 && c.EndLine == 0 {
			c.EndLine = lineNo
		}
	}

	if c.EndLine == 0 && contractOpened {
		c.EndLine = len(lines)
	}
	if c.Name == "" {
		return c, ErrNoContract
	}
	return c, nil
}

// parseImport splits one import statement into its path and named symbols.
func parseImport(stmt string, line int) Import {
	imp := Import{Statement: stmt, Line: line}
	if m := quotedRe.FindStringSubmatch(stmt); m != nil {
		imp.Path = m[1]
	}
	if m := bracedRe.FindStringSubmatch(stmt); m != nil {
		for _, item := range strings.Split(m[1], ",") {
			if item = strings.TrimSpace(item); item != "" {
				imp.Items = append(imp.Items, item)
			}
		}
	}
	imp.ID = "import:" + imp.Path
	return imp
}

// parseStateVariable matches a contract-level storage declaration on a single
// line. Declarations it cannot make sense of are skipped.
func parseStateVariable(line string, lineNo int) (StateVariable, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || !strings.HasSuffix(trimmed, ";") {
		return StateVariable{}, false
	}
	decl := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if decl == "" {
		return StateVariable{}, false
	}

	first := decl
	if sp := strings.IndexAny(decl, " \t("); sp >= 0 {
		first = decl[:sp]
	}
	if nonStateKeywords[first] {
		return StateVariable{}, false
	}

	sv := StateVariable{Line: lineNo}
	if strings.HasPrefix(decl, "mapping") {
		close := matchingParen(decl, strings.Index(decl, "("))
		if close < 0 {
			return StateVariable{}, false
		}
		sv.IsMapping = true
		sv.Type = strings.Join(strings.Fields(decl[:close+1]), " ")
		decl = decl[close+1:]
	}
	// The mapping type is consumed by now, so any "=" left starts an
	// initializer rather than a "=>" arrow.
	if eq := strings.Index(decl, "="); eq >= 0 {
		decl = decl[:eq]
	}

	tokens := strings.Fields(decl)
	if sv.IsMapping {
		if len(tokens) == 0 {
			return StateVariable{}, false
		}
	} else {
		if len(tokens) < 2 {
			return StateVariable{}, false
		}
		sv.Type = tokens[0]
		tokens = tokens[1:]
	}

	sv.Name = tokens[len(tokens)-1]
	if !isIdentifier(sv.Name) {
		return StateVariable{}, false
	}
	for _, tok := range tokens[:len(tokens)-1] {
		if visibilityKeywords[tok] {
			sv.Visibility = tok
		}
	}
	sv.ID = fmt.Sprintf("state:%s:%d", sv.Name, lineNo)
	return sv, true
}

// parseFunction extracts one function starting at lines[start]. The parameter
// list may span multiple lines; the scan walks forward until the matching
// closing parenthesis, then through the attribute list, then through the body
// via brace-depth tracking. Returns the 1-based line after the function and
// false when the signature never terminates.
func parseFunction(lines []string, start, col int) (Function, int, bool) {
	m := functionRe.FindStringSubmatch(lines[start][col:])
	if m == nil {
		return Function{}, 0, false
	}
	fn := Function{
		Name:          m[1],
		StartLine:     start + 1,
		FHEOperations: []FHEOperation{},
	}

	// Signature: everything between the opening paren and its match.
	openIdx := col + strings.Index(lines[start][col:], "(")
	parenDepth := 0
	paramsText := ""
	sigLine, sigCol := start, openIdx
	inBlock := false
scan:
	for li := start; li < len(lines); li++ {
		line := stripNoise(lines[li], &inBlock)
		from := 0
		if li == start {
			from = openIdx
		}
		for ci := from; ci < len(line); ci++ {
			switch line[ci] {
			case '(':
				parenDepth++
				if parenDepth == 1 {
					continue
				}
			case ')':
				parenDepth--
				if parenDepth == 0 {
					sigLine, sigCol = li, ci
					break scan
				}
			}
			if parenDepth >= 1 {
				paramsText += string(line[ci])
			}
		}
		paramsText += " "
		if li == len(lines)-1 {
			return Function{}, 0, false
		}
	}
	fn.Parameters = parseParams(paramsText)

	// Attributes: between the signature's closing paren and the body brace
	// (or a bare `;` for bodyless declarations).
	attrText := ""
	bodyLine, bodyCol := -1, -1
	inBlock = false
	for li := sigLine; li < len(lines); li++ {
		line := stripNoise(lines[li], &inBlock)
		from := 0
		if li == sigLine {
			from = sigCol + 1
		}
		if idx := strings.IndexByte(line[min(from, len(line)):], '{'); idx >= 0 {
			cut := min(from, len(line)) + idx
			attrText += line[min(from, len(line)):cut]
			bodyLine, bodyCol = li, cut
			break
		}
		if idx := strings.IndexByte(line[min(from, len(line)):], ';'); idx >= 0 {
			attrText += line[min(from, len(line)) : min(from, len(line))+idx]
			fn.EndLine = li + 1
			break
		}
		attrText += line[min(from, len(line)):] + " "
	}
	applyAttributes(&fn, attrText)

	if bodyLine < 0 {
		// Declaration without a body (interface or abstract member).
		if fn.EndLine == 0 {
			fn.EndLine = sigLine + 1
		}
		fn.ID = fmt.Sprintf("func:%s:%d", fn.Name, fn.StartLine)
		return fn, fn.EndLine, true
	}

	// Body: brace-depth tracking from the opening brace. Nested braces from
	// if/for/unchecked blocks are expected.
	depth := 0
	inBlock = false
	for li := bodyLine; li < len(lines); li++ {
		line := stripNoise(lines[li], &inBlock)
		from := 0
		if li == bodyLine {
			from = bodyCol
		}
		for ci := from; ci < len(line); ci++ {
			switch line[ci] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					fn.EndLine = li + 1
				}
			}
		}
		if fn.EndLine != 0 {
			break
		}
	}
	if fn.EndLine == 0 {
		fn.EndLine = len(lines)
	}

	fn.FHEOperations = scanFHEOperations(lines, fn.Name, bodyLine, fn.EndLine)
	fn.ID = fmt.Sprintf("func:%s:%d", fn.Name, fn.StartLine)
	return fn, fn.EndLine, true
}

// parseParams splits a flattened parameter list on top-level commas.
func parseParams(text string) []Param {
	params := []Param{}
	depth := 0
	var parts []string
	cur := strings.Builder{}
	for _, r := range text {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
		}
		cur.WriteRune(r)
	}
	parts = append(parts, cur.String())

	for _, part := range parts {
		tokens := strings.Fields(part)
		filtered := tokens[:0]
		for _, tok := range tokens {
			if !dataLocations[tok] {
				filtered = append(filtered, tok)
			}
		}
		switch len(filtered) {
		case 0:
			continue
		case 1:
			params = append(params, Param{Type: filtered[0]})
		default:
			params = append(params, Param{
				Type: strings.Join(filtered[:len(filtered)-1], " "),
				Name: filtered[len(filtered)-1],
			})
		}
	}
	return params
}

// applyAttributes classifies the tokens between parameter list and body.
func applyAttributes(fn *Function, text string) {
	if idx := strings.Index(text, "returns"); idx >= 0 {
		rest := text[idx+len("returns"):]
		if open := strings.IndexByte(rest, '('); open >= 0 {
			if close := matchingParen(rest, open); close > open {
				fn.ReturnType = strings.TrimSpace(rest[open+1 : close])
			}
		}
		text = text[:idx]
	}
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimRight(tok, ",")
		switch {
		case visibilityKeywords[tok]:
			fn.Visibility = tok
		case mutabilityKeywords[tok]:
			fn.StateMutability = tok
		case tok == "virtual" || tok == "override":
			fn.Modifiers = append(fn.Modifiers, tok)
		case isIdentifier(tok) || strings.Contains(tok, "("):
			fn.Modifiers = append(fn.Modifiers, tok)
		}
	}
}

// scanFHEOperations records every capability-namespace call site within a
// function body, ordered by line then column.
func scanFHEOperations(lines []string, fnName string, bodyLine, endLine int) []FHEOperation {
	ops := []FHEOperation{}
	inBlock := false
	for li := bodyLine; li < endLine && li < len(lines); li++ {
		stripped := stripNoise(lines[li], &inBlock)
		for _, loc := range fheCallRe.FindAllStringSubmatchIndex(stripped, -1) {
			name := stripped[loc[2]:loc[3]]
			if !fheops.IsKnown(name) {
				continue
			}
			ops = append(ops, FHEOperation{
				ID:       fmt.Sprintf("fhe:%s:%s:%d:%d", fnName, name, li+1, loc[0]+1),
				Name:     name,
				FullCall: extractCall(stripped, lines[li], loc[0]),
				Line:     li + 1,
				Column:   loc[0] + 1,
			})
		}
	}
	return ops
}

// extractCall returns the verbatim call text from start through the balanced
// closing parenthesis, falling back to end-of-line for calls that continue on
// the next line. Paren matching runs on the stripped line so literals cannot
// fool it; the text is sliced from the raw line (stripNoise preserves byte
// offsets).
func extractCall(stripped, raw string, start int) string {
	open := strings.IndexByte(stripped[start:], '(')
	if open < 0 {
		return strings.TrimSpace(raw[start:])
	}
	close := matchingParen(stripped, start+open)
	if close < 0 {
		return strings.TrimSpace(raw[start:])
	}
	return raw[start : close+1]
}

// matchingParen returns the index of the parenthesis matching the one at
// open, or -1.
func matchingParen(s string, open int) int {
	if open < 0 || open >= len(s) || s[open] != '(' {
		return -1
	}
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// stripNoise blanks out comments and string literals so brace and paren
// counting cannot be fooled by them. Blanked spans keep their byte width so
// column positions stay stable.
func stripNoise(line string, inBlockComment *bool) string {
	out := []byte(line)
	i := 0
	for i < len(out) {
		if *inBlockComment {
			if i+1 < len(out) && out[i] == '*' && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				*inBlockComment = false
				i += 2
				continue
			}
			out[i] = ' '
			i++
			continue
		}
		switch {
		case i+1 < len(out) && out[i] == '/' && out[i+1] == '/':
			for ; i < len(out); i++ {
				out[i] = ' '
			}
		case i+1 < len(out) && out[i] == '/' && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			*inBlockComment = true
			i += 2
		case out[i] == '"' || out[i] == '\'':
			quote := out[i]
			i++
			for i < len(out) && out[i] != quote {
				if out[i] == '\\' {
					out[i] = ' '
					i++
					if i < len(out) {
						out[i] = ' '
					}
				} else {
					out[i] = ' '
				}
				i++
			}
			if i < len(out) {
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
