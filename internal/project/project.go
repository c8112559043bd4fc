// Package project holds the editable contract model: the single source of
// truth the generator consumes, mutated only through explicit state
// transitions.
package project

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"labz/internal/solidity"
)

// Zone is one of the three locations a block may be inserted into.
type Zone string

const (
	ZoneImports  Zone = "imports"
	ZoneState    Zone = "state"
	ZoneFunction Zone = "function"
)

// RawBlockID is the reserved definition id for blocks lifted verbatim from a
// loaded template. Their Config carries "text" (the original line) and "line"
// (its 1-based position in the template source).
const RawBlockID = "raw"

var (
	ErrBlockNotFound    = errors.New("block instance not found")
	ErrFunctionNotFound = errors.New("function not found")
)

// Block is one placed instance of a catalog block definition.
type Block struct {
	ID      string            `json:"id"`       // instance-unique
	BlockID string            `json:"block_id"` // definition reference
	Config  map[string]string `json:"config"`
	Order   int               `json:"order"`
	Zone    Zone              `json:"zone"`
}

// TemplateLine returns the source line this block originates from in the
// loaded template. Blocks without one are "new": they are the only blocks the
// merge algorithm may insert.
func (b Block) TemplateLine() (int, bool) {
	raw, ok := b.Config["line"]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsNew reports whether the block is absent from the loaded template source.
func (b Block) IsNew() bool {
	_, ok := b.TemplateLine()
	return !ok
}

// Function is a parsed function plus its editable body of blocks.
type Function struct {
	solidity.Function
	Body []Block `json:"body"`
}

// State is the root aggregate of one editing session.
type State struct {
	Name            string     `json:"name"`
	Version         string     `json:"version"` // pragma constraint
	Inherits        []string   `json:"inherits,omitempty"`
	Imports         []Block    `json:"imports"`
	StateVariables  []Block    `json:"state_variables"`
	Functions       []Function `json:"functions"`
	Modifiers       []string   `json:"modifiers,omitempty"`
	ConstructorBody []Block    `json:"constructor_body,omitempty"`
}

// New returns an empty from-scratch state.
func New(name string) State {
	return State{
		Name:           name,
		Version:        "^0.8.24",
		Imports:        []Block{},
		StateVariables: []Block{},
		Functions:      []Function{},
	}
}

// FromContract builds the editable state for a parsed template. Every import,
// state variable, and function-body line becomes a raw block carrying its
// original text and template line, so regeneration preserves them verbatim
// and the merger knows they already exist.
func FromContract(c *solidity.Contract, sourceLines []string) State {
	st := New(c.Name)
	if c.Pragma != "" {
		st.Version = c.Pragma
	}
	st.Inherits = append([]string(nil), c.Inherits...)

	for i, imp := range c.Imports {
		st.Imports = append(st.Imports, rawBlock(ZoneImports, i, imp.Statement, imp.Line))
	}
	for i, sv := range c.StateVariables {
		text := ""
		if sv.Line-1 >= 0 && sv.Line-1 < len(sourceLines) {
			text = sourceLines[sv.Line-1]
		}
		st.StateVariables = append(st.StateVariables, rawBlock(ZoneState, i, text, sv.Line))
	}
	for _, fn := range c.Functions {
		pf := Function{Function: fn, Body: []Block{}}
		for li := fn.StartLine + 1; li < fn.EndLine; li++ {
			if li-1 < len(sourceLines) {
				pf.Body = append(pf.Body, rawBlock(ZoneFunction, len(pf.Body), sourceLines[li-1], li))
			}
		}
		st.Functions = append(st.Functions, pf)
	}
	return st
}

func rawBlock(zone Zone, order int, text string, line int) Block {
	return Block{
		ID:      uuid.NewString(),
		BlockID: RawBlockID,
		Config:  map[string]string{"text": text, "line": strconv.Itoa(line)},
		Order:   order,
		Zone:    zone,
	}
}

// Clone deep-copies the state so transitions never alias the previous value.
func (s State) Clone() State {
	out := s
	out.Inherits = append([]string(nil), s.Inherits...)
	out.Modifiers = append([]string(nil), s.Modifiers...)
	out.Imports = cloneBlocks(s.Imports)
	out.StateVariables = cloneBlocks(s.StateVariables)
	out.ConstructorBody = cloneBlocks(s.ConstructorBody)
	out.Functions = make([]Function, len(s.Functions))
	for i, fn := range s.Functions {
		cp := fn
		cp.Parameters = append([]solidity.Param(nil), fn.Parameters...)
		cp.Modifiers = append([]string(nil), fn.Modifiers...)
		cp.FHEOperations = append([]solidity.FHEOperation(nil), fn.FHEOperations...)
		cp.Body = cloneBlocks(fn.Body)
		out.Functions[i] = cp
	}
	return out
}

func cloneBlocks(in []Block) []Block {
	if in == nil {
		return nil
	}
	out := make([]Block, len(in))
	for i, b := range in {
		cfg := make(map[string]string, len(b.Config))
		for k, v := range b.Config {
			cfg[k] = v
		}
		b.Config = cfg
		out[i] = b
	}
	return out
}

// FindFunction returns a pointer into the state's function list, or nil.
func (s *State) FindFunction(id string) *Function {
	for i := range s.Functions {
		if s.Functions[i].ID == id || s.Functions[i].Name == id {
			return &s.Functions[i]
		}
	}
	return nil
}

// HasImportPath reports whether any import-zone block renders the given path.
func (s *State) HasImportPath(path string) bool {
	for _, b := range s.Imports {
		if b.Config["path"] == path {
			return true
		}
		if text, ok := b.Config["text"]; ok && containsPath(text, path) {
			return true
		}
	}
	return false
}

func containsPath(statement, path string) bool {
	return path != "" && (strings.Contains(statement, `"`+path+`"`) || strings.Contains(statement, `'`+path+`'`))
}

// Action is one discrete edit. Apply never mutates its input state.
type Action interface {
	apply(State) (State, error)
}

// Apply runs one state transition: previous state in, new state out.
func Apply(s State, a Action) (State, error) {
	return a.apply(s.Clone())
}

// AddBlock places a new block instance into a zone. FunctionID is required
// for the function zone and ignored otherwise.
type AddBlock struct {
	Zone       Zone
	FunctionID string
	BlockID    string
	Config     map[string]string
}

func (a AddBlock) apply(s State) (State, error) {
	cfg := make(map[string]string, len(a.Config))
	for k, v := range a.Config {
		cfg[k] = v
	}
	blk := Block{
		ID:      uuid.NewString(),
		BlockID: a.BlockID,
		Config:  cfg,
		Zone:    a.Zone,
	}

	switch a.Zone {
	case ZoneImports:
		blk.Order = nextOrder(s.Imports)
		s.Imports = append(s.Imports, blk)
	case ZoneState:
		blk.Order = nextOrder(s.StateVariables)
		s.StateVariables = append(s.StateVariables, blk)
	case ZoneFunction:
		fn := s.FindFunction(a.FunctionID)
		if fn == nil {
			return s, fmt.Errorf("add block %s: %w", a.BlockID, ErrFunctionNotFound)
		}
		blk.Order = nextOrder(fn.Body)
		fn.Body = append(fn.Body, blk)
	default:
		return s, fmt.Errorf("add block %s: unknown zone %q", a.BlockID, a.Zone)
	}
	return s, nil
}

// RemoveBlock deletes a block instance wherever it lives.
type RemoveBlock struct {
	ID string
}

func (a RemoveBlock) apply(s State) (State, error) {
	if removed := removeFrom(&s.Imports, a.ID) ||
		removeFrom(&s.StateVariables, a.ID) ||
		removeFrom(&s.ConstructorBody, a.ID); removed {
		return s, nil
	}
	for i := range s.Functions {
		if removeFrom(&s.Functions[i].Body, a.ID) {
			return s, nil
		}
	}
	return s, fmt.Errorf("remove block %s: %w", a.ID, ErrBlockNotFound)
}

// UpdateBlock replaces a block instance's configuration.
type UpdateBlock struct {
	ID     string
	Config map[string]string
}

func (a UpdateBlock) apply(s State) (State, error) {
	blk := findBlock(&s, a.ID)
	if blk == nil {
		return s, fmt.Errorf("update block %s: %w", a.ID, ErrBlockNotFound)
	}
	// Preserve the template line marker: edits must not turn an existing
	// block into a "new" one the merger would re-emit.
	line, hadLine := blk.Config["line"]
	cfg := make(map[string]string, len(a.Config))
	for k, v := range a.Config {
		cfg[k] = v
	}
	if hadLine {
		cfg["line"] = line
	}
	blk.Config = cfg
	return s, nil
}

// ReorderBlock moves a block to a new position within its zone.
type ReorderBlock struct {
	ID       string
	NewOrder int
}

func (a ReorderBlock) apply(s State) (State, error) {
	zone := zoneOf(&s, a.ID)
	if zone == nil {
		return s, fmt.Errorf("reorder block %s: %w", a.ID, ErrBlockNotFound)
	}
	for i := range *zone {
		if (*zone)[i].ID == a.ID {
			(*zone)[i].Order = a.NewOrder
		}
	}
	sortBlocks(*zone)
	for i := range *zone {
		(*zone)[i].Order = i
	}
	return s, nil
}

func findBlock(s *State, id string) *Block {
	zone := zoneOf(s, id)
	if zone == nil {
		return nil
	}
	for i := range *zone {
		if (*zone)[i].ID == id {
			return &(*zone)[i]
		}
	}
	return nil
}

func zoneOf(s *State, id string) *[]Block {
	for _, zone := range []*[]Block{&s.Imports, &s.StateVariables, &s.ConstructorBody} {
		for i := range *zone {
			if (*zone)[i].ID == id {
				return zone
			}
		}
	}
	for i := range s.Functions {
		for j := range s.Functions[i].Body {
			if s.Functions[i].Body[j].ID == id {
				return &s.Functions[i].Body
			}
		}
	}
	return nil
}

func removeFrom(zone *[]Block, id string) bool {
	for i := range *zone {
		if (*zone)[i].ID == id {
			*zone = append((*zone)[:i], (*zone)[i+1:]...)
			return true
		}
	}
	return false
}

func nextOrder(zone []Block) int {
	next := 0
	for _, b := range zone {
		if b.Order >= next {
			next = b.Order + 1
		}
	}
	return next
}

// SortedBlocks returns the zone's blocks in rendering order: ascending Order,
// ties broken by insertion sequence (the sort is stable).
func SortedBlocks(zone []Block) []Block {
	out := append([]Block(nil), zone...)
	sortBlocks(out)
	return out
}

func sortBlocks(zone []Block) {
	sort.SliceStable(zone, func(i, j int) bool { return zone[i].Order < zone[j].Order })
}
