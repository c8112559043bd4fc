package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labz/internal/project"
	"labz/internal/solidity"
)

const templateSource = `// SPDX-License-Identifier: BSD-3-Clause-Clear
pragma solidity ^0.8.24;

import {FHE, euint64, externalEuint64} from "@fhevm/solidity/lib/FHE.sol";

/// @title Encrypted counter demonstrating input verification and ACL grants.
contract EncryptedCounter is SepoliaConfig {
    euint64 private _count;

    /// Adds an externally encrypted amount to the counter.
    function increment(externalEuint64 encryptedAmount, bytes calldata inputProof) external {
        euint64 amount = FHE.fromExternal(encryptedAmount, inputProof);
        _count = FHE.add(_count, amount);
        FHE.allow(_count, msg.sender);
    }

    /// Returns the encrypted counter handle.
    function getCount() external view returns (euint64) {
        return _count;
    }
}
`

func loadTemplateState(t *testing.T) (LoadedTemplate, project.State) {
	t.Helper()
	tmpl := LoadTemplate(templateSource)
	require.Equal(t, "EncryptedCounter", tmpl.Contract.Name)
	st := project.FromContract(tmpl.Contract, strings.Split(templateSource, "\n"))
	return tmpl, st
}

func TestGenerate_FromScratch(t *testing.T) {
	g := New(nil)
	st := project.New("SecretVault")
	st.Inherits = []string{"SepoliaConfig"}

	var err error
	for _, a := range []project.Action{
		project.AddBlock{Zone: project.ZoneImports, BlockID: "import-fhe"},
		project.AddBlock{Zone: project.ZoneImports, BlockID: "import-sepolia-config"},
		project.AddBlock{Zone: project.ZoneState, BlockID: "state-euint64", Config: map[string]string{"name": "_total"}},
	} {
		st, err = project.Apply(st, a)
		require.NoError(t, err)
	}
	st.Functions = append(st.Functions, project.Function{
		Function: solidity.Function{
			Name:       "deposit",
			Visibility: "external",
			Parameters: []solidity.Param{
				{Name: "encryptedAmount", Type: "externalEuint64"},
				{Name: "inputProof", Type: "bytes"},
			},
		},
		Body: []project.Block{},
	})
	st, err = project.Apply(st, project.AddBlock{
		Zone: project.ZoneFunction, FunctionID: "deposit", BlockID: "fhe-fromExternal",
		Config: map[string]string{"result": "amount", "input": "encryptedAmount", "proof": "inputProof"},
	})
	require.NoError(t, err)

	res, err := g.Generate(st)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Empty(t, res.Skipped)

	// The emitted source must parse back to a structurally equivalent model.
	c, err := solidity.Parse(res.Source)
	require.NoError(t, err)
	assert.Equal(t, "SecretVault", c.Name)
	assert.Equal(t, []string{"SepoliaConfig"}, c.Inherits)
	assert.Len(t, c.Imports, 2)
	require.Len(t, c.StateVariables, 1)
	assert.Equal(t, "_total", c.StateVariables[0].Name)
	require.Len(t, c.Functions, 1)
	assert.Equal(t, "deposit", c.Functions[0].Name)
	assert.Len(t, c.Functions[0].Parameters, 2)
	require.Len(t, c.Functions[0].FHEOperations, 1)
	assert.Equal(t, "fromExternal", c.Functions[0].FHEOperations[0].Name)
}

func TestGenerate_RoundTripEquivalence(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	res, err := g.Generate(st)
	require.NoError(t, err)

	reparsed, err := solidity.Parse(res.Source)
	require.NoError(t, err)

	assert.Equal(t, tmpl.Contract.Name, reparsed.Name)
	assert.Len(t, reparsed.Imports, len(tmpl.Contract.Imports))
	assert.Len(t, reparsed.StateVariables, len(tmpl.Contract.StateVariables))
	require.Len(t, reparsed.Functions, len(tmpl.Contract.Functions))
	for i, fn := range reparsed.Functions {
		assert.Equal(t, tmpl.Contract.Functions[i].Name, fn.Name)
		assert.Len(t, fn.Parameters, len(tmpl.Contract.Functions[i].Parameters))
	}
}

func TestMerge_InsertsBeforeClosingBrace(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	st, err := project.Apply(st, project.AddBlock{
		Zone: project.ZoneFunction, FunctionID: "increment", BlockID: "fhe-allowThis",
		Config: map[string]string{"handle": "_count"},
	})
	require.NoError(t, err)

	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Empty(t, res.Skipped)

	origLines := strings.Split(templateSource, "\n")
	gotLines := strings.Split(res.Source, "\n")
	require.Len(t, gotLines, len(origLines)+1, "exactly one line inserted")

	// Every original line survives byte-identically, in order.
	oi := 0
	for _, line := range gotLines {
		if oi < len(origLines) && line == origLines[oi] {
			oi++
		}
	}
	assert.Equal(t, len(origLines), oi, "merge must preserve all original lines")

	// The new line sits immediately before increment's closing brace.
	target := tmpl.Contract.FindFunction("increment")[0]
	assert.Equal(t, "        FHE.allowThis(_count);", gotLines[target.EndLine-1])
	assert.Equal(t, origLines[target.EndLine-1], gotLines[target.EndLine])
}

func TestMerge_MultipleBlocksKeepOrder(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	var err error
	for _, cfg := range []map[string]string{
		{"result": "_count", "lhs": "_count", "rhs": "bonus"},
		{"handle": "_count"},
	} {
		id := "fhe-add"
		if _, ok := cfg["handle"]; ok {
			id = "fhe-allowThis"
		}
		st, err = project.Apply(st, project.AddBlock{
			Zone: project.ZoneFunction, FunctionID: "getCount", BlockID: id, Config: cfg,
		})
		require.NoError(t, err)
	}

	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)

	gotLines := strings.Split(res.Source, "\n")
	target := tmpl.Contract.FindFunction("getCount")[0]
	// Two lines inserted before the closing brace, ascending order.
	assert.Equal(t, "        _count = FHE.add(_count, bonus);", gotLines[target.EndLine-1])
	assert.Equal(t, "        FHE.allowThis(_count);", gotLines[target.EndLine])
	assert.Equal(t, strings.Split(templateSource, "\n")[target.EndLine-1], gotLines[target.EndLine+1])
}

func TestMerge_ImportAndStateZones(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	var err error
	for _, a := range []project.Action{
		project.AddBlock{Zone: project.ZoneImports, BlockID: "import-sepolia-config"},
		project.AddBlock{Zone: project.ZoneState, BlockID: "state-balances", Config: map[string]string{"name": "_balances"}},
	} {
		st, err = project.Apply(st, a)
		require.NoError(t, err)
	}

	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)
	assert.True(t, res.Verified)

	gotLines := strings.Split(res.Source, "\n")
	importLine := tmpl.Contract.Imports[0].Line
	assert.Equal(t, `import {SepoliaConfig} from "@fhevm/solidity/config/ZamaConfig.sol";`, gotLines[importLine])

	stateLine := tmpl.Contract.StateVariables[0].Line
	// Shifted by the one import line inserted above it.
	assert.Equal(t, "    mapping(address => euint64) private _balances;", gotLines[stateLine+1])
}

func TestMerge_DuplicateImportSkipped(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	st, err := project.Apply(st, project.AddBlock{Zone: project.ZoneImports, BlockID: "import-fhe"})
	require.NoError(t, err)

	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)
	assert.Len(t, res.Skipped, 1, "an import already present in the template must be skipped")
	assert.Equal(t, templateSource, res.Source)
}

func TestMerge_MissingTargetFallsBack(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	st.Functions = append(st.Functions, project.Function{
		Function: solidity.Function{Name: "withdraw"},
		Body:     []project.Block{},
	})
	st, err := project.Apply(st, project.AddBlock{
		Zone: project.ZoneFunction, FunctionID: "withdraw", BlockID: "fhe-allowThis",
		Config: map[string]string{"handle": "_count"},
	})
	require.NoError(t, err)

	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)
	assert.False(t, res.Verified, "fallback placement must be flagged unverified")
	assert.Contains(t, res.Source, "FHE.allowThis(_count);")

	// Insertion lands just above the contract's closing brace.
	gotLines := strings.Split(res.Source, "\n")
	assert.Equal(t, "        FHE.allowThis(_count);", gotLines[tmpl.Contract.EndLine-1])
}

func TestMerge_OverloadedTargetPrefersActiveRange(t *testing.T) {
	src := `contract Twins {
    function poke(uint256 a) external {
        _count = FHE.add(_count, one);
    }

    function poke(euint64 a) external {
        _count = FHE.add(_count, a);
    }
}
`
	g := New(nil)
	tmpl := LoadTemplate(src)
	require.Len(t, tmpl.Contract.FindFunction("poke"), 2)

	st := project.FromContract(tmpl.Contract, strings.Split(src, "\n"))
	st, err := project.Apply(st, project.AddBlock{
		Zone: project.ZoneFunction, FunctionID: "poke", BlockID: "fhe-allowThis",
		Config: map[string]string{"handle": "_count"},
	})
	require.NoError(t, err)

	second := tmpl.Contract.FindFunction("poke")[1]
	res, err := g.MergeWithOptions(tmpl, st, MergeOptions{ActiveRange: &[2]int{second.StartLine, second.EndLine}})
	require.NoError(t, err)

	gotLines := strings.Split(res.Source, "\n")
	assert.Equal(t, "        FHE.allowThis(_count);", gotLines[second.EndLine-1])
}

func TestMerge_IllegalZonePlacementIsOmitted(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	// A function-body block forced into the imports zone must be rejected
	// without corrupting anything else.
	st, err := project.Apply(st, project.AddBlock{
		Zone: project.ZoneImports, BlockID: "fhe-allowThis",
		Config: map[string]string{"handle": "_count"},
	})
	require.NoError(t, err)

	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)
	assert.Len(t, res.Skipped, 1)
	assert.Equal(t, templateSource, res.Source)
}

func TestMerge_UnknownDefinitionIsHardError(t *testing.T) {
	g := New(nil)
	tmpl, st := loadTemplateState(t)

	st, err := project.Apply(st, project.AddBlock{
		Zone: project.ZoneFunction, FunctionID: "increment", BlockID: "no-such-block",
	})
	require.NoError(t, err)

	_, err = g.Merge(tmpl, st)
	assert.Error(t, err)
}

func TestScenario_FortyLineTemplate(t *testing.T) {
	// The §8-style end-to-end pass: parse, inspect, add one new ACL block to
	// the second function, merge, verify single-line insertion.
	tmpl, st := loadTemplateState(t)

	assert.Len(t, tmpl.Contract.Imports, 1)
	assert.Len(t, tmpl.Contract.StateVariables, 1)
	require.Len(t, tmpl.Contract.Functions, 2)
	for _, fn := range tmpl.Contract.Functions {
		assert.Greater(t, fn.EndLine, fn.StartLine)
	}

	st, err := project.Apply(st, project.AddBlock{
		Zone: project.ZoneFunction, FunctionID: tmpl.Contract.Functions[1].Name, BlockID: "fhe-allowThis",
		Config: map[string]string{"handle": "_count"},
	})
	require.NoError(t, err)

	g := New(nil)
	res, err := g.Merge(tmpl, st)
	require.NoError(t, err)
	assert.True(t, res.Verified)

	origLines := strings.Split(templateSource, "\n")
	gotLines := strings.Split(res.Source, "\n")
	require.Len(t, gotLines, len(origLines)+1)

	second := tmpl.Contract.Functions[1]
	assert.Equal(t, "        FHE.allowThis(_count);", gotLines[second.EndLine-1])
}
