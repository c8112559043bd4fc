package project

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labz/internal/solidity"
)

const vaultSource = `pragma solidity ^0.8.24;

import {FHE, euint64} from "@fhevm/solidity/lib/FHE.sol";

contract Vault {
    euint64 private _total;

    function deposit(externalEuint64 amount, bytes calldata proof) external {
        euint64 value = FHE.fromExternal(amount, proof);
        _total = FHE.add(_total, value);
    }
}
`

func parseVault(t *testing.T) (State, *solidity.Contract) {
	t.Helper()
	c, err := solidity.Parse(vaultSource)
	require.NoError(t, err)
	return FromContract(c, strings.Split(vaultSource, "\n")), c
}

func TestFromContract(t *testing.T) {
	st, c := parseVault(t)

	assert.Equal(t, "Vault", st.Name)
	assert.Equal(t, "^0.8.24", st.Version)

	require.Len(t, st.Imports, 1)
	assert.Equal(t, RawBlockID, st.Imports[0].BlockID)
	line, ok := st.Imports[0].TemplateLine()
	require.True(t, ok)
	assert.Equal(t, c.Imports[0].Line, line)
	assert.False(t, st.Imports[0].IsNew())

	require.Len(t, st.StateVariables, 1)
	require.Len(t, st.Functions, 1)
	fn := st.Functions[0]
	assert.Equal(t, "deposit", fn.Name)
	// Body lines between signature and closing brace become raw blocks.
	assert.Len(t, fn.Body, fn.EndLine-fn.StartLine-1)
	for _, b := range fn.Body {
		assert.False(t, b.IsNew())
	}
}

func TestApply_AddBlock(t *testing.T) {
	st, _ := parseVault(t)

	next, err := Apply(st, AddBlock{
		Zone:       ZoneFunction,
		FunctionID: "deposit",
		BlockID:    "fhe-allowThis",
		Config:     map[string]string{"handle": "_total"},
	})
	require.NoError(t, err)

	// Original state is untouched.
	assert.Len(t, st.Functions[0].Body, len(next.Functions[0].Body)-1)

	added := next.Functions[0].Body[len(next.Functions[0].Body)-1]
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "fhe-allowThis", added.BlockID)
	assert.True(t, added.IsNew(), "freshly added blocks carry no template line")
	assert.Equal(t, nextOrder(st.Functions[0].Body), added.Order)
}

func TestApply_AddBlock_UnknownFunction(t *testing.T) {
	st, _ := parseVault(t)
	_, err := Apply(st, AddBlock{Zone: ZoneFunction, FunctionID: "withdraw", BlockID: "fhe-allowThis"})
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestApply_RemoveAndUpdate(t *testing.T) {
	st, _ := parseVault(t)
	withBlock, err := Apply(st, AddBlock{
		Zone: ZoneState, BlockID: "state-euint64",
		Config: map[string]string{"name": "_cap"},
	})
	require.NoError(t, err)
	added := withBlock.StateVariables[len(withBlock.StateVariables)-1]

	t.Run("update replaces config", func(t *testing.T) {
		updated, err := Apply(withBlock, UpdateBlock{ID: added.ID, Config: map[string]string{"name": "_limit"}})
		require.NoError(t, err)
		blk := findBlock(&updated, added.ID)
		require.NotNil(t, blk)
		assert.Equal(t, "_limit", blk.Config["name"])
	})

	t.Run("update keeps template line marker", func(t *testing.T) {
		existing := withBlock.StateVariables[0]
		require.False(t, existing.IsNew())
		updated, err := Apply(withBlock, UpdateBlock{ID: existing.ID, Config: map[string]string{"name": "x"}})
		require.NoError(t, err)
		blk := findBlock(&updated, existing.ID)
		require.NotNil(t, blk)
		assert.False(t, blk.IsNew(), "an edit must not turn an existing block into a new one")
	})

	t.Run("remove", func(t *testing.T) {
		removed, err := Apply(withBlock, RemoveBlock{ID: added.ID})
		require.NoError(t, err)
		assert.Len(t, removed.StateVariables, len(withBlock.StateVariables)-1)
	})

	t.Run("remove unknown id", func(t *testing.T) {
		_, err := Apply(withBlock, RemoveBlock{ID: "nope"})
		assert.ErrorIs(t, err, ErrBlockNotFound)
	})
}

func TestApply_Reorder(t *testing.T) {
	st := New("Scratch")
	var err error
	for _, name := range []string{"_a", "_b", "_c"} {
		st, err = Apply(st, AddBlock{Zone: ZoneState, BlockID: "state-euint64", Config: map[string]string{"name": name}})
		require.NoError(t, err)
	}

	last := st.StateVariables[2]
	st, err = Apply(st, ReorderBlock{ID: last.ID, NewOrder: -1})
	require.NoError(t, err)

	sorted := SortedBlocks(st.StateVariables)
	assert.Equal(t, "_c", sorted[0].Config["name"])
	// Orders renumber into a dense total order after a move.
	for i, b := range sorted {
		assert.Equal(t, i, b.Order)
	}
}

func TestClone_NoAliasing(t *testing.T) {
	st, _ := parseVault(t)
	cp := st.Clone()
	cp.Functions[0].Body[0].Config["text"] = "tampered"
	cp.Inherits = append(cp.Inherits, "Other")

	assert.NotEqual(t, "tampered", st.Functions[0].Body[0].Config["text"])
	assert.NotContains(t, st.Inherits, "Other")
}
