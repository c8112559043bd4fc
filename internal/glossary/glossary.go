// Package glossary is the static term registry behind interactive prose:
// capability-method names, Solidity keywords, and domain concepts mapped to
// short human descriptions.
package glossary

import (
	"sort"
	"strings"

	"labz/internal/fheops"
)

// Kind classifies where a term comes from.
type Kind string

const (
	KindMethod  Kind = "method"  // capability-namespace operation
	KindKeyword Kind = "keyword" // Solidity language keyword
	KindConcept Kind = "concept" // FHE/chain domain concept
)

type Term struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"kind"`
	Description string `json:"description"`
}

var concepts = []Term{
	{Name: "handle", Kind: KindConcept, Description: "An opaque on-chain reference to an encrypted value; the plaintext never touches the chain."},
	{Name: "ciphertext", Kind: KindConcept, Description: "The encrypted form of a value, operated on without decryption."},
	{Name: "inputProof", Kind: KindConcept, Description: "A zero-knowledge proof that an external encrypted input is well-formed."},
	{Name: "ACL", Kind: KindConcept, Description: "The access-control list deciding which accounts and contracts may use a handle."},
	{Name: "oracle", Kind: KindConcept, Description: "The off-chain decryption service that returns plaintexts for publicly decryptable handles."},
	{Name: "euint64", Kind: KindConcept, Description: "A 64-bit encrypted unsigned integer handle type."},
	{Name: "euint32", Kind: KindConcept, Description: "A 32-bit encrypted unsigned integer handle type."},
	{Name: "ebool", Kind: KindConcept, Description: "An encrypted boolean handle type, produced by comparisons."},
	{Name: "eaddress", Kind: KindConcept, Description: "An encrypted address handle type."},
	{Name: "externalEuint64", Kind: KindConcept, Description: "A 64-bit encrypted input produced off-chain, verified on-chain with its proof."},
}

var keywords = []Term{
	{Name: "mapping", Kind: KindKeyword, Description: "A key-value storage structure; here usually from an address to an encrypted balance."},
	{Name: "calldata", Kind: KindKeyword, Description: "Read-only data location for external function arguments."},
	{Name: "payable", Kind: KindKeyword, Description: "Marks a function as able to receive native currency."},
	{Name: "view", Kind: KindKeyword, Description: "Marks a function that reads but never writes contract state."},
	{Name: "external", Kind: KindKeyword, Description: "Visibility for functions callable only from outside the contract."},
	{Name: "internal", Kind: KindKeyword, Description: "Visibility restricted to the contract and its descendants."},
	{Name: "modifier", Kind: KindKeyword, Description: "A reusable precondition wrapped around function bodies."},
	{Name: "constructor", Kind: KindKeyword, Description: "Runs once at deployment to initialize contract state."},
	{Name: "require", Kind: KindKeyword, Description: "Reverts the transaction when its condition does not hold."},
	{Name: "msg.sender", Kind: KindKeyword, Description: "The account or contract that sent the current call."},
}

// Registry holds the lookup table. Keys are lowercased; lookups are
// case-insensitive.
type Registry struct {
	terms map[string]Term
}

// New builds the default registry from the capability-method table plus the
// built-in keyword and concept sets.
func New() *Registry {
	r := &Registry{terms: make(map[string]Term)}
	for _, op := range fheops.All() {
		r.add(Term{Name: op.Name, Kind: KindMethod, Description: op.Description})
	}
	for _, t := range keywords {
		r.add(t)
	}
	for _, t := range concepts {
		r.add(t)
	}
	return r
}

func (r *Registry) add(t Term) {
	r.terms[strings.ToLower(t.Name)] = t
}

// Lookup finds a term by name, case-insensitively.
func (r *Registry) Lookup(name string) (Term, bool) {
	t, ok := r.terms[strings.ToLower(name)]
	return t, ok
}

// Terms returns every registered term sorted by name.
func (r *Registry) Terms() []Term {
	out := make([]Term, 0, len(r.terms))
	for _, t := range r.terms {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
