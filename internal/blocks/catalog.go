package blocks

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"labz/internal/project"
)

// rawDefinition is the reserved pass-through block holding template lines.
var rawDefinition = Definition{
	ID:       project.RawBlockID,
	Title:    "Template line",
	Category: CategoryState,
	Zones:    []project.Zone{project.ZoneImports, project.ZoneState, project.ZoneFunction},
	Fields: []Field{
		{Name: "text", Type: "expression", Label: "Original text", Required: false},
	},
	Template: "{{text}}",
}

// builtinCatalog is the default palette. Snippets follow the FHE library's
// current call surface; custom catalogs can extend or override it via
// LoadCatalog.
var builtinCatalog = []Definition{
	{
		ID:         "import-fhe",
		Title:      "FHE library import",
		Category:   CategoryImports,
		Zones:      []project.Zone{project.ZoneImports},
		Template:   `import {FHE, ebool, euint64, externalEuint64} from "@fhevm/solidity/lib/FHE.sol";`,
		ImportPath: "@fhevm/solidity/lib/FHE.sol",
	},
	{
		ID:         "import-sepolia-config",
		Title:      "Sepolia coprocessor config",
		Category:   CategoryImports,
		Zones:      []project.Zone{project.ZoneImports},
		Template:   `import {SepoliaConfig} from "@fhevm/solidity/config/ZamaConfig.sol";`,
		ImportPath: "@fhevm/solidity/config/ZamaConfig.sol",
	},
	{
		ID:       "state-euint64",
		Title:    "Encrypted counter variable",
		Category: CategoryState,
		Zones:    []project.Zone{project.ZoneState},
		Fields: []Field{
			{Name: "name", Type: "identifier", Label: "Variable name", Default: "_value", Required: true},
		},
		Template: `euint64 private {{name}};`,
	},
	{
		ID:       "state-balances",
		Title:    "Encrypted balance mapping",
		Category: CategoryState,
		Zones:    []project.Zone{project.ZoneState},
		Fields: []Field{
			{Name: "name", Type: "identifier", Label: "Mapping name", Default: "_balances", Required: true},
		},
		Template: `mapping(address => euint64) private {{name}};`,
	},
	{
		ID:       "fhe-fromExternal",
		Title:    "Verify external input",
		Category: CategoryInputConversion,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result variable", Default: "amount", Required: true},
			{Name: "input", Type: "identifier", Label: "External input", Default: "encryptedAmount", Required: true},
			{Name: "proof", Type: "identifier", Label: "Input proof", Default: "inputProof", Required: true},
		},
		Template: `euint64 {{result}} = FHE.fromExternal({{input}}, {{proof}});`,
	},
	{
		ID:       "fhe-add",
		Title:    "Encrypted addition",
		Category: CategoryArithmetic,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result", Required: true},
			{Name: "lhs", Type: "expression", Label: "Left operand", Required: true},
			{Name: "rhs", Type: "expression", Label: "Right operand", Required: true},
		},
		Template: `{{result}} = FHE.add({{lhs}}, {{rhs}});`,
	},
	{
		ID:       "fhe-sub",
		Title:    "Encrypted subtraction",
		Category: CategoryArithmetic,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result", Required: true},
			{Name: "lhs", Type: "expression", Label: "Left operand", Required: true},
			{Name: "rhs", Type: "expression", Label: "Right operand", Required: true},
		},
		Template: `{{result}} = FHE.sub({{lhs}}, {{rhs}});`,
	},
	{
		ID:       "fhe-mul",
		Title:    "Encrypted multiplication",
		Category: CategoryArithmetic,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result", Required: true},
			{Name: "lhs", Type: "expression", Label: "Left operand", Required: true},
			{Name: "rhs", Type: "expression", Label: "Right operand", Required: true},
		},
		Template: `{{result}} = FHE.mul({{lhs}}, {{rhs}});`,
	},
	{
		ID:       "fhe-eq",
		Title:    "Encrypted equality",
		Category: CategoryComparison,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result ebool", Default: "isEqual", Required: true},
			{Name: "lhs", Type: "expression", Label: "Left operand", Required: true},
			{Name: "rhs", Type: "expression", Label: "Right operand", Required: true},
		},
		Template: `ebool {{result}} = FHE.eq({{lhs}}, {{rhs}});`,
	},
	{
		ID:       "fhe-ge",
		Title:    "Encrypted greater-or-equal",
		Category: CategoryComparison,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result ebool", Default: "canSpend", Required: true},
			{Name: "lhs", Type: "expression", Label: "Left operand", Required: true},
			{Name: "rhs", Type: "expression", Label: "Right operand", Required: true},
		},
		Template: `ebool {{result}} = FHE.ge({{lhs}}, {{rhs}});`,
	},
	{
		ID:       "fhe-xor",
		Title:    "Encrypted XOR",
		Category: CategoryBitwise,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result", Required: true},
			{Name: "lhs", Type: "expression", Label: "Left operand", Required: true},
			{Name: "rhs", Type: "expression", Label: "Right operand", Required: true},
		},
		Template: `{{result}} = FHE.xor({{lhs}}, {{rhs}});`,
	},
	{
		ID:       "fhe-select",
		Title:    "Branch-free conditional",
		Category: CategoryConditional,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "result", Type: "identifier", Label: "Result", Required: true},
			{Name: "condition", Type: "expression", Label: "ebool condition", Required: true},
			{Name: "ifTrue", Type: "expression", Label: "Value when true", Required: true},
			{Name: "ifFalse", Type: "expression", Label: "Value when false", Required: true},
		},
		Template: `{{result}} = FHE.select({{condition}}, {{ifTrue}}, {{ifFalse}});`,
	},
	{
		ID:       "fhe-allowThis",
		Title:    "Keep contract access",
		Category: CategoryACL,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "handle", Type: "expression", Label: "Handle", Required: true},
		},
		Template: `FHE.allowThis({{handle}});`,
	},
	{
		ID:       "fhe-allow",
		Title:    "Grant account access",
		Category: CategoryACL,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "handle", Type: "expression", Label: "Handle", Required: true},
			{Name: "account", Type: "address", Label: "Account", Default: "msg.sender", Required: true},
		},
		Template: `FHE.allow({{handle}}, {{account}});`,
	},
	{
		ID:       "fhe-makePubliclyDecryptable",
		Title:    "Make publicly decryptable",
		Category: CategoryACL,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "handle", Type: "expression", Label: "Handle", Required: true},
		},
		Template: `FHE.makePubliclyDecryptable({{handle}});`,
	},
	{
		ID:       "fhe-requestDecryption",
		Title:    "Request oracle decryption",
		Category: CategoryDecrypt,
		Zones:    []project.Zone{project.ZoneFunction},
		Fields: []Field{
			{Name: "handle", Type: "expression", Label: "Handle", Required: true},
			{Name: "callback", Type: "identifier", Label: "Callback selector", Default: "this.onDecrypted.selector", Required: true},
		},
		Template: `bytes32[] memory handles = new bytes32[](1);
handles[0] = FHE.toBytes32({{handle}});
FHE.requestDecryption(handles, {{callback}});`,
	},
}

// catalogFile is the YAML shape of an external block catalog.
type catalogFile struct {
	Blocks []Definition `yaml:"blocks"`
}

// LoadCatalog merges an external YAML catalog into the registry. Entries with
// known ids override the built-ins.
func (r *Registry) LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	for _, d := range file.Blocks {
		if d.ID == "" || d.ID == project.RawBlockID {
			continue
		}
		r.Register(d)
	}
	return nil
}
