package fheops

import "sort"

// Category groups capability-namespace operations by what they do to
// encrypted handles.
type Category string

const (
	CategoryInputConversion Category = "input-conversion"
	CategoryArithmetic      Category = "arithmetic"
	CategoryComparison      Category = "comparison"
	CategoryBitwise         Category = "bitwise"
	CategoryConditional     Category = "conditional"
	CategoryACL             Category = "acl"
	CategoryDecrypt         Category = "decrypt"
	CategoryRandom          Category = "random"
)

// ResultKind describes what an operation evaluates to.
type ResultKind string

const (
	ResultHandle ResultKind = "handle" // a new encrypted handle
	ResultBool   ResultKind = "ebool"  // an encrypted boolean handle
	ResultNone   ResultKind = "none"   // side effect only (ACL grants, decrypt requests)
)

// Op is one entry of the capability-method namespace the contracts call.
// The table is metadata only; the cryptographic library behind these names
// is an external surface.
type Op struct {
	Name        string
	Category    Category
	Arity       int
	Result      ResultKind
	Description string
}

var table = map[string]Op{
	// Input conversion
	"fromExternal": {Name: "fromExternal", Category: CategoryInputConversion, Arity: 2, Result: ResultHandle, Description: "Verifies an external encrypted input against its proof and returns an internal handle."},
	"asEbool":      {Name: "asEbool", Category: CategoryInputConversion, Arity: 1, Result: ResultBool, Description: "Trivially encrypts a plaintext boolean into an ebool handle."},
	"asEuint8":     {Name: "asEuint8", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext value into an euint8 handle."},
	"asEuint16":    {Name: "asEuint16", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext value into an euint16 handle."},
	"asEuint32":    {Name: "asEuint32", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext value into an euint32 handle."},
	"asEuint64":    {Name: "asEuint64", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext value into an euint64 handle."},
	"asEuint128":   {Name: "asEuint128", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext value into an euint128 handle."},
	"asEuint256":   {Name: "asEuint256", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext value into an euint256 handle."},
	"asEaddress":   {Name: "asEaddress", Category: CategoryInputConversion, Arity: 1, Result: ResultHandle, Description: "Trivially encrypts a plaintext address into an eaddress handle."},

	// Arithmetic
	"add": {Name: "add", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Adds two encrypted values without decrypting them."},
	"sub": {Name: "sub", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Subtracts one encrypted value from another."},
	"mul": {Name: "mul", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Multiplies two encrypted values."},
	"div": {Name: "div", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Divides an encrypted value by a plaintext divisor."},
	"rem": {Name: "rem", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Remainder of an encrypted value divided by a plaintext divisor."},
	"min": {Name: "min", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Minimum of two encrypted values."},
	"max": {Name: "max", Category: CategoryArithmetic, Arity: 2, Result: ResultHandle, Description: "Maximum of two encrypted values."},
	"neg": {Name: "neg", Category: CategoryArithmetic, Arity: 1, Result: ResultHandle, Description: "Negates an encrypted value."},

	// Comparison
	"eq": {Name: "eq", Category: CategoryComparison, Arity: 2, Result: ResultBool, Description: "Encrypted equality comparison; yields an ebool handle."},
	"ne": {Name: "ne", Category: CategoryComparison, Arity: 2, Result: ResultBool, Description: "Encrypted inequality comparison; yields an ebool handle."},
	"lt": {Name: "lt", Category: CategoryComparison, Arity: 2, Result: ResultBool, Description: "Encrypted less-than comparison; yields an ebool handle."},
	"le": {Name: "le", Category: CategoryComparison, Arity: 2, Result: ResultBool, Description: "Encrypted less-than-or-equal comparison; yields an ebool handle."},
	"gt": {Name: "gt", Category: CategoryComparison, Arity: 2, Result: ResultBool, Description: "Encrypted greater-than comparison; yields an ebool handle."},
	"ge": {Name: "ge", Category: CategoryComparison, Arity: 2, Result: ResultBool, Description: "Encrypted greater-than-or-equal comparison; yields an ebool handle."},

	// Bitwise
	"and":  {Name: "and", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Bitwise AND of two encrypted values."},
	"or":   {Name: "or", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Bitwise OR of two encrypted values."},
	"xor":  {Name: "xor", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Bitwise XOR of two encrypted values."},
	"not":  {Name: "not", Category: CategoryBitwise, Arity: 1, Result: ResultHandle, Description: "Bitwise NOT of an encrypted value."},
	"shl":  {Name: "shl", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Shifts an encrypted value left."},
	"shr":  {Name: "shr", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Shifts an encrypted value right."},
	"rotl": {Name: "rotl", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Rotates an encrypted value left."},
	"rotr": {Name: "rotr", Category: CategoryBitwise, Arity: 2, Result: ResultHandle, Description: "Rotates an encrypted value right."},

	// Conditional
	"select": {Name: "select", Category: CategoryConditional, Arity: 3, Result: ResultHandle, Description: "Branch-free conditional: picks one of two encrypted values based on an ebool, without revealing which."},

	// ACL
	"allow":                    {Name: "allow", Category: CategoryACL, Arity: 2, Result: ResultNone, Description: "Grants an account permanent permission to use a handle."},
	"allowThis":                {Name: "allowThis", Category: CategoryACL, Arity: 1, Result: ResultNone, Description: "Grants the contract itself permission to use a handle in later transactions."},
	"allowTransient":           {Name: "allowTransient", Category: CategoryACL, Arity: 2, Result: ResultNone, Description: "Grants permission to use a handle for the current transaction only."},
	"makePubliclyDecryptable":  {Name: "makePubliclyDecryptable", Category: CategoryACL, Arity: 1, Result: ResultNone, Description: "Marks a handle as decryptable by anyone through the decryption oracle."},
	"isSenderAllowed":          {Name: "isSenderAllowed", Category: CategoryACL, Arity: 1, Result: ResultNone, Description: "Checks whether msg.sender holds permission on a handle."},
	"isAllowed":                {Name: "isAllowed", Category: CategoryACL, Arity: 2, Result: ResultNone, Description: "Checks whether an account holds permission on a handle."},

	// Decryption
	"requestDecryption": {Name: "requestDecryption", Category: CategoryDecrypt, Arity: 2, Result: ResultNone, Description: "Asynchronously requests plaintext for a set of handles via the decryption oracle."},
	"checkSignatures":   {Name: "checkSignatures", Category: CategoryDecrypt, Arity: 2, Result: ResultNone, Description: "Verifies oracle signatures on a decryption callback before trusting the plaintext."},
	"toBytes32":         {Name: "toBytes32", Category: CategoryDecrypt, Arity: 1, Result: ResultNone, Description: "Exposes the raw 32-byte handle behind an encrypted value, for decryption requests."},

	// Randomness
	"randEbool":   {Name: "randEbool", Category: CategoryRandom, Arity: 0, Result: ResultBool, Description: "Generates an encrypted random boolean on-chain."},
	"randEuint8":  {Name: "randEuint8", Category: CategoryRandom, Arity: 0, Result: ResultHandle, Description: "Generates an encrypted random euint8 on-chain."},
	"randEuint16": {Name: "randEuint16", Category: CategoryRandom, Arity: 0, Result: ResultHandle, Description: "Generates an encrypted random euint16 on-chain."},
	"randEuint32": {Name: "randEuint32", Category: CategoryRandom, Arity: 0, Result: ResultHandle, Description: "Generates an encrypted random euint32 on-chain."},
	"randEuint64": {Name: "randEuint64", Category: CategoryRandom, Arity: 0, Result: ResultHandle, Description: "Generates an encrypted random euint64 on-chain."},
}

// Lookup returns the metadata for a capability-method name.
func Lookup(name string) (Op, bool) {
	op, ok := table[name]
	return op, ok
}

// IsKnown reports whether name belongs to the capability-method namespace.
func IsKnown(name string) bool {
	_, ok := table[name]
	return ok
}

// ProducesHandle reports whether the operation yields an encrypted value.
func (o Op) ProducesHandle() bool {
	return o.Result == ResultHandle || o.Result == ResultBool
}

// All returns every known operation sorted by name.
func All() []Op {
	out := make([]Op, 0, len(table))
	for _, op := range table {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ByCategory returns the operations in a category, sorted by name.
func ByCategory(cat Category) []Op {
	var out []Op
	for _, op := range All() {
		if op.Category == cat {
			out = append(out, op)
		}
	}
	return out
}
