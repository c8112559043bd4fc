// Package blocks is the catalog of reusable, parameterized source snippets
// the composer drops into a contract, plus the rules deciding when a block
// may legally be placed.
package blocks

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"labz/internal/fheops"
	"labz/internal/project"
)

// Category is the display grouping of a block in the palette.
type Category string

const (
	CategoryImports         Category = "imports"
	CategoryState           Category = "state"
	CategoryInputConversion Category = "input-conversion"
	CategoryArithmetic      Category = "arithmetic"
	CategoryComparison      Category = "comparison"
	CategoryBitwise         Category = "bitwise"
	CategoryConditional     Category = "conditional"
	CategoryACL             Category = "acl"
	CategoryDecrypt         Category = "decrypt"
)

// Field is one named configuration parameter of a block.
type Field struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"` // "identifier", "expression", "path", "address"
	Label    string `yaml:"label" json:"label"`
	Default  string `yaml:"default,omitempty" json:"default,omitempty"`
	Required bool   `yaml:"required" json:"required"`
}

// Definition is one catalog entry. Template is the emitted source fragment
// with {{param}} placeholders for the configured fields. ImportPath is set on
// import blocks and doubles as their identity for duplicate detection.
type Definition struct {
	ID         string         `yaml:"id" json:"id"`
	Title      string         `yaml:"title" json:"title"`
	Category   Category       `yaml:"category" json:"category"`
	Zones      []project.Zone `yaml:"zones" json:"zones"`
	Fields     []Field        `yaml:"fields" json:"fields"`
	Template   string         `yaml:"template" json:"template"`
	ImportPath string         `yaml:"import_path,omitempty" json:"import_path,omitempty"`
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_]\w*)\s*\}\}`)

// Render emits the block's source text for the given parameter values.
// Missing values fall back to the field default; a missing required value is
// an error.
func (d Definition) Render(config map[string]string) (string, error) {
	values := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		v, ok := config[f.Name]
		if !ok || v == "" {
			v = f.Default
		}
		if v == "" && f.Required {
			return "", fmt.Errorf("block %s: missing required parameter %q", d.ID, f.Name)
		}
		values[f.Name] = v
	}

	out := placeholderRe.ReplaceAllStringFunc(d.Template, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
	return out, nil
}

// AllowsZone reports whether the definition may be dropped into zone.
func (d Definition) AllowsZone(zone project.Zone) bool {
	for _, z := range d.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

// Registry holds block definitions in a stable palette order.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry returns a registry preloaded with the built-in catalog,
// including the reserved raw block used for template-originated lines.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	r.Register(rawDefinition)
	for _, d := range builtinCatalog {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a definition. Replacement keeps the original
// palette position.
func (r *Registry) Register(d Definition) {
	if _, exists := r.defs[d.ID]; !exists {
		r.order = append(r.order, d.ID)
	}
	r.defs[d.ID] = d
}

// Get looks a definition up by id.
func (r *Registry) Get(id string) (Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// List returns every definition in palette order, raw block excluded.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		if id == project.RawBlockID {
			continue
		}
		out = append(out, r.defs[id])
	}
	return out
}

// ByCategory returns the palette grouped by category, categories sorted by
// name for deterministic iteration.
func (r *Registry) ByCategory() map[Category][]Definition {
	out := make(map[Category][]Definition)
	for _, d := range r.List() {
		out[d.Category] = append(out[d.Category], d)
	}
	for cat := range out {
		defs := out[cat]
		sort.SliceStable(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
		out[cat] = defs
	}
	return out
}

// RenderBlock resolves a placed instance against the registry and renders it.
// Raw blocks re-emit their original template text verbatim.
func (r *Registry) RenderBlock(b project.Block) (string, error) {
	if b.BlockID == project.RawBlockID {
		return b.Config["text"], nil
	}
	def, ok := r.Get(b.BlockID)
	if !ok {
		return "", fmt.Errorf("unknown block definition %q", b.BlockID)
	}
	return def.Render(b.Config)
}

// Context is what availability decisions see: the current project state and
// the function the user has selected, if any.
type Context struct {
	State    *project.State
	Selected *project.Function
}

// Available is the pure placement predicate consumed by the palette UI. The
// generator re-checks placements independently; this gate is advisory only.
func Available(d Definition, ctx Context) bool {
	if ctx.State == nil {
		return false
	}
	switch d.Category {
	case CategoryImports:
		// Duplicate import paths are rejected here, before the generator
		// ever sees them.
		return d.ImportPath == "" || !ctx.State.HasImportPath(d.ImportPath)
	case CategoryState:
		// State variables need their types imported first.
		return len(ctx.State.Imports) > 0
	case CategoryACL, CategoryDecrypt:
		return ctx.Selected != nil && functionHasEncryptedValue(ctx.Selected)
	default:
		// Every function-body category needs a selected function.
		if d.AllowsZone(project.ZoneFunction) {
			return ctx.Selected != nil
		}
		return true
	}
}

// functionHasEncryptedValue reports whether the selected function already
// declares or produces an encrypted value an ACL/decrypt block could act on.
func functionHasEncryptedValue(fn *project.Function) bool {
	if len(fn.FHEOperations) > 0 {
		return true
	}
	for _, b := range fn.Body {
		if op, ok := operationOfBlock(b.BlockID); ok && op.ProducesHandle() {
			return true
		}
		if text, ok := b.Config["text"]; ok && strings.Contains(text, "FHE.") {
			return true
		}
	}
	return false
}

// operationOfBlock maps catalog ids like "fhe-add" to their namespace op.
func operationOfBlock(blockID string) (fheops.Op, bool) {
	name := strings.TrimPrefix(blockID, "fhe-")
	if name == blockID {
		return fheops.Op{}, false
	}
	return fheops.Lookup(name)
}
