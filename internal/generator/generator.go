// Package generator turns a project state back into contract source text.
// It has two explicit modes: full generation from scratch, and incremental
// merge into a loaded template where every untouched line stays
// byte-identical.
package generator

import (
	"fmt"
	"strings"

	"labz/internal/blocks"
	"labz/internal/project"
	"labz/internal/solidity"
)

const (
	defaultLicense = "BSD-3-Clause-Clear"
	indentUnit     = "    "
)

// LoadedTemplate pairs a template's source text with its parsed model. Its
// presence is what switches generation into merge mode.
type LoadedTemplate struct {
	Source   string
	Contract *solidity.Contract
}

// LoadTemplate parses template source for later merging. Parsing is
// best-effort; an unparseable file still loads, the merger just degrades to
// its append fallback more often.
func LoadTemplate(source string) LoadedTemplate {
	c, err := solidity.Parse(source)
	if err != nil {
		c = &solidity.Contract{}
	}
	return LoadedTemplate{Source: source, Contract: c}
}

// Result is the output of either mode. Verified is false when a merge target
// could not be located and the fallback placement was used. Skipped lists
// block instances omitted as illegal placements; the caller is responsible
// for surfacing them.
type Result struct {
	Source   string
	Verified bool
	Skipped  []string
}

// MergeOptions tunes target selection. ActiveRange, when set, breaks ties
// between identically named functions in favor of the occurrence inside the
// currently highlighted step.
type MergeOptions struct {
	ActiveRange *[2]int
}

type Generator struct {
	registry *blocks.Registry
}

func New(registry *blocks.Registry) *Generator {
	if registry == nil {
		registry = blocks.NewRegistry()
	}
	return &Generator{registry: registry}
}

// Generate emits complete source text from the project state alone: header,
// imports, contract declaration, state variables, constructor, functions.
func (g *Generator) Generate(st project.State) (Result, error) {
	res := Result{Verified: true}
	var out []string

	out = append(out, "// SPDX-License-Identifier: "+defaultLicense)
	version := st.Version
	if version == "" {
		version = "^0.8.24"
	}
	out = append(out, "pragma solidity "+version+";", "")

	importLines, err := g.renderZone(st.Imports, project.ZoneImports, "", &res)
	if err != nil {
		return res, err
	}
	if len(importLines) > 0 {
		out = append(out, importLines...)
		out = append(out, "")
	}

	decl := "contract " + st.Name
	if len(st.Inherits) > 0 {
		decl += " is " + strings.Join(st.Inherits, ", ")
	}
	out = append(out, decl+" {")

	stateLines, err := g.renderZone(st.StateVariables, project.ZoneState, indentUnit, &res)
	if err != nil {
		return res, err
	}
	if len(stateLines) > 0 {
		out = append(out, stateLines...)
		out = append(out, "")
	}

	if len(st.ConstructorBody) > 0 {
		out = append(out, indentUnit+"constructor() {")
		bodyLines, err := g.renderZone(st.ConstructorBody, project.ZoneFunction, indentUnit+indentUnit, &res)
		if err != nil {
			return res, err
		}
		out = append(out, bodyLines...)
		out = append(out, indentUnit+"}", "")
	}

	for i, fn := range st.Functions {
		out = append(out, indentUnit+renderSignature(fn))
		bodyLines, err := g.renderZone(fn.Body, project.ZoneFunction, indentUnit+indentUnit, &res)
		if err != nil {
			return res, err
		}
		out = append(out, bodyLines...)
		out = append(out, indentUnit+"}")
		if i < len(st.Functions)-1 {
			out = append(out, "")
		}
	}

	out = append(out, "}", "")
	res.Source = strings.Join(out, "\n")
	return res, nil
}

// Merge inserts the state's new blocks into the loaded template, leaving
// every line outside the touched zones byte-for-byte identical.
func (g *Generator) Merge(tmpl LoadedTemplate, st project.State) (Result, error) {
	return g.MergeWithOptions(tmpl, st, MergeOptions{})
}

func (g *Generator) MergeWithOptions(tmpl LoadedTemplate, st project.State, opts MergeOptions) (Result, error) {
	res := Result{Verified: true}
	lines := strings.Split(tmpl.Source, "\n")
	c := tmpl.Contract

	// Insertion lines keyed by the original 1-based line they follow.
	// Key 0 prepends to the file. Emitting against original positions in a
	// single pass makes later insertions shift automatically.
	insertions := make(map[int][]string)
	seenImports := make(map[string]bool)
	for _, imp := range c.Imports {
		seenImports[imp.Path] = true
	}

	// Imports: after the last existing import, else after the pragma.
	if newBlocks := newBlocksOf(st.Imports); len(newBlocks) > 0 {
		anchor := lastImportLine(c)
		if anchor == 0 {
			anchor = pragmaLine(lines)
		}
		for _, b := range newBlocks {
			text, err := g.renderMergeBlock(b, project.ZoneImports, "", &res)
			if err != nil {
				return res, err
			}
			if text == nil {
				continue
			}
			if path := g.importPathOf(b); path != "" {
				if seenImports[path] {
					res.Skipped = append(res.Skipped, b.ID)
					continue
				}
				seenImports[path] = true
			}
			insertions[anchor] = append(insertions[anchor], text...)
		}
	}

	// State variables: after the last existing declaration, else right after
	// the contract declaration line.
	if newBlocks := newBlocksOf(st.StateVariables); len(newBlocks) > 0 {
		anchor := lastStateLine(c)
		indent := indentUnit
		if anchor > 0 {
			indent = indentOf(lines, anchor)
		} else if c.Line > 0 {
			anchor = c.Line
		} else {
			anchor = fallbackAnchor(c, lines)
			res.Verified = false
		}
		for _, b := range newBlocks {
			text, err := g.renderMergeBlock(b, project.ZoneState, indent, &res)
			if err != nil {
				return res, err
			}
			if text != nil {
				insertions[anchor] = append(insertions[anchor], text...)
			}
		}
	}

	// Function bodies: immediately before the target function's closing
	// brace. A missing target degrades to append-at-end-of-contract and
	// flags the result unverified; user edits are never dropped.
	for _, fn := range st.Functions {
		newBlocks := newBlocksOf(fn.Body)
		if len(newBlocks) == 0 {
			continue
		}
		target, found := selectTarget(c, fn.Name, opts.ActiveRange)
		anchor := 0
		indent := indentUnit + indentUnit
		if found && target.EndLine > target.StartLine {
			anchor = target.EndLine - 1
			indent = bodyIndent(lines, target)
		} else {
			anchor = fallbackAnchor(c, lines)
			res.Verified = false
		}
		for _, b := range newBlocks {
			text, err := g.renderMergeBlock(b, project.ZoneFunction, indent, &res)
			if err != nil {
				return res, err
			}
			if text != nil {
				insertions[anchor] = append(insertions[anchor], text...)
			}
		}
	}

	var out []string
	out = append(out, insertions[0]...)
	for i, line := range lines {
		out = append(out, line)
		out = append(out, insertions[i+1]...)
	}
	res.Source = strings.Join(out, "\n")
	return res, nil
}

// renderZone renders a zone's blocks for full generation, in order.
func (g *Generator) renderZone(zone []project.Block, zoneType project.Zone, indent string, res *Result) ([]string, error) {
	var out []string
	for _, b := range project.SortedBlocks(zone) {
		lines, err := g.renderMergeBlock(b, zoneType, indent, res)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

// renderMergeBlock renders a single block instance, applying the placement
// check the availability layer also enforces: an illegal placement omits
// that block and records it, without disturbing anything else. A nil slice
// with nil error means the block was skipped.
func (g *Generator) renderMergeBlock(b project.Block, zone project.Zone, indent string, res *Result) ([]string, error) {
	if b.BlockID == project.RawBlockID {
		return []string{b.Config["text"]}, nil
	}
	def, ok := g.registry.Get(b.BlockID)
	if !ok {
		// Orphan definition reference: internal invariant violation, not a
		// user-facing failure mode.
		return nil, fmt.Errorf("block %s references unknown definition %q", b.ID, b.BlockID)
	}
	if !def.AllowsZone(zone) {
		res.Skipped = append(res.Skipped, b.ID)
		return nil, nil
	}
	text, err := def.Render(b.Config)
	if err != nil {
		res.Skipped = append(res.Skipped, b.ID)
		return nil, nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			out = append(out, "")
			continue
		}
		out = append(out, indent+line)
	}
	return out, nil
}

func (g *Generator) importPathOf(b project.Block) string {
	if path := b.Config["path"]; path != "" {
		return path
	}
	if def, ok := g.registry.Get(b.BlockID); ok {
		return def.ImportPath
	}
	return ""
}

func newBlocksOf(zone []project.Block) []project.Block {
	var out []project.Block
	for _, b := range project.SortedBlocks(zone) {
		if b.IsNew() {
			out = append(out, b)
		}
	}
	return out
}

// selectTarget picks among identically named functions: the one overlapping
// the active step range when one is set, else the first in source order.
func selectTarget(c *solidity.Contract, name string, active *[2]int) (solidity.Function, bool) {
	candidates := c.FindFunction(name)
	if len(candidates) == 0 {
		return solidity.Function{}, false
	}
	if active != nil {
		for _, fn := range candidates {
			if fn.StartLine <= active[1] && fn.EndLine >= active[0] {
				return fn, true
			}
		}
	}
	return candidates[0], true
}

// fallbackAnchor is the line insertions degrade to when a zone cannot be
// located: just above the contract's closing brace, else end of file.
func fallbackAnchor(c *solidity.Contract, lines []string) int {
	if c.EndLine > 0 {
		return c.EndLine - 1
	}
	return len(lines)
}

func lastImportLine(c *solidity.Contract) int {
	last := 0
	for _, imp := range c.Imports {
		if imp.Line > last {
			last = imp.Line
		}
	}
	return last
}

func lastStateLine(c *solidity.Contract) int {
	last := 0
	for _, sv := range c.StateVariables {
		if sv.Line > last {
			last = sv.Line
		}
	}
	return last
}

func pragmaLine(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "pragma ") {
			return i + 1
		}
	}
	return 0
}

// bodyIndent picks the indentation for inserted body lines: the last
// non-blank line already inside the body, else one level past the closing
// brace.
func bodyIndent(lines []string, fn solidity.Function) string {
	for li := fn.EndLine - 1; li > fn.StartLine; li-- {
		if li-1 < len(lines) && strings.TrimSpace(lines[li-1]) != "" {
			return indentOf(lines, li)
		}
	}
	return indentOf(lines, fn.EndLine) + indentUnit
}

func indentOf(lines []string, lineNo int) string {
	if lineNo-1 < 0 || lineNo-1 >= len(lines) {
		return indentUnit
	}
	line := lines[lineNo-1]
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// renderSignature reconstructs a function signature from the parsed model.
func renderSignature(fn project.Function) string {
	var b strings.Builder
	b.WriteString("function ")
	b.WriteString(fn.Name)
	b.WriteString("(")
	for i, p := range fn.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type)
		if dataLocationFor(p.Type) != "" {
			b.WriteString(" " + dataLocationFor(p.Type))
		}
		if p.Name != "" {
			b.WriteString(" " + p.Name)
		}
	}
	b.WriteString(")")
	if fn.Visibility != "" {
		b.WriteString(" " + fn.Visibility)
	}
	if fn.StateMutability != "" {
		b.WriteString(" " + fn.StateMutability)
	}
	for _, m := range fn.Modifiers {
		b.WriteString(" " + m)
	}
	if fn.ReturnType != "" {
		b.WriteString(" returns (" + fn.ReturnType + ")")
	}
	b.WriteString(" {")
	return b.String()
}

// dataLocationFor restores the location keyword the parser drops for
// reference-typed parameters.
func dataLocationFor(typ string) string {
	switch {
	case typ == "bytes" || typ == "string" || strings.HasSuffix(typ, "[]"):
		return "calldata"
	default:
		return ""
	}
}
