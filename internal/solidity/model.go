package solidity

// Contract is the structured model extracted from one contract source file.
// All line numbers are 1-based and refer to the source text the contract was
// parsed from.
type Contract struct {
	Name           string          `json:"name"`
	Inherits       []string        `json:"inherits,omitempty"`
	License        string          `json:"license,omitempty"`
	Pragma         string          `json:"pragma,omitempty"`
	Line           int             `json:"line"`     // contract declaration line
	EndLine        int             `json:"end_line"` // contract closing brace line
	Imports        []Import        `json:"imports"`
	StateVariables []StateVariable `json:"state_variables"`
	Functions      []Function      `json:"functions"`
}

// Import is one import statement, with its original text preserved so the
// generator can re-emit it byte-identically.
type Import struct {
	ID        string   `json:"id"`
	Statement string   `json:"statement"` // verbatim statement text
	Path      string   `json:"path"`      // identity key, normalized
	Items     []string `json:"items,omitempty"`
	Line      int      `json:"line"`
}

// StateVariable is one contract-level storage declaration.
type StateVariable struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Visibility string `json:"visibility,omitempty"`
	IsMapping  bool   `json:"is_mapping"`
	Line       int    `json:"line"`
}

// Param is a single function parameter.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function is one function declaration. StartLine is the line carrying the
// `function` keyword; EndLine is the line carrying the matching closing brace
// of the body (or the declaration terminator for bodyless declarations).
type Function struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Visibility      string         `json:"visibility,omitempty"`
	StateMutability string         `json:"state_mutability,omitempty"`
	Parameters      []Param        `json:"parameters"`
	ReturnType      string         `json:"return_type,omitempty"`
	Modifiers       []string       `json:"modifiers,omitempty"`
	StartLine       int            `json:"start_line"`
	EndLine         int            `json:"end_line"`
	FHEOperations   []FHEOperation `json:"fhe_operations"`
}

// FHEOperation is one call site against the capability-method namespace,
// recorded in source order with its verbatim call text.
type FHEOperation struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullCall string `json:"full_call"`
	Line     int    `json:"line"`
	Column   int    `json:"column"` // 1-based byte column of the namespace token
}

// FindFunction returns every function with the given name, in source order.
func (c *Contract) FindFunction(name string) []Function {
	var out []Function
	for _, fn := range c.Functions {
		if fn.Name == name {
			out = append(out, fn)
		}
	}
	return out
}

// HasImport reports whether an import with the given path already exists.
func (c *Contract) HasImport(path string) bool {
	for _, imp := range c.Imports {
		if imp.Path == path {
			return true
		}
	}
	return false
}
