package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"labz/internal/gallery"
	"labz/internal/project"
	"labz/internal/solidity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterSource = `// SPDX-License-Identifier: BSD-3-Clause-Clear
pragma solidity ^0.8.24;

import {FHE, euint64, externalEuint64} from "@fhevm/solidity/lib/FHE.sol";

contract EncryptedCounter {
    euint64 private _count;

    function increment(externalEuint64 encryptedAmount, bytes calldata inputProof) external {
        euint64 amount = FHE.fromExternal(encryptedAmount, inputProof);
        _count = FHE.add(_count, amount);
    }
}
`

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testTemplate(t *testing.T) *gallery.TemplateInfo {
	t.Helper()
	contract, err := solidity.Parse(counterSource)
	require.NoError(t, err)
	return &gallery.TemplateInfo{
		Name:     contract.Name,
		Path:     "templates/EncryptedCounter.sol",
		Source:   counterSource,
		Contract: contract,
	}
}

func TestSQLiteStore_TemplateRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	info := testTemplate(t)
	require.NoError(t, store.SaveTemplate(ctx, info))

	loaded, err := store.GetTemplate(ctx, "EncryptedCounter")
	require.NoError(t, err)
	assert.Equal(t, info.Name, loaded.Name)
	assert.Equal(t, info.Source, loaded.Source)
	require.NotNil(t, loaded.Contract)
	assert.Len(t, loaded.Contract.Functions, 1)
	assert.Equal(t, "increment", loaded.Contract.Functions[0].Name)

	// Upsert keeps a single row per name.
	require.NoError(t, store.SaveTemplate(ctx, info))
	infos, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestSQLiteStore_TemplateChanged(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	changed, err := store.TemplateChanged(ctx, "EncryptedCounter", counterSource)
	require.NoError(t, err)
	assert.True(t, changed, "unknown templates always count as changed")

	require.NoError(t, store.SaveTemplate(ctx, testTemplate(t)))

	changed, err = store.TemplateChanged(ctx, "EncryptedCounter", counterSource)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = store.TemplateChanged(ctx, "EncryptedCounter", counterSource+"\n// edited")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSQLiteStore_ProjectRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	contract, err := solidity.Parse(counterSource)
	require.NoError(t, err)
	st := project.FromContract(contract, strings.Split(counterSource, "\n"))

	st, err = project.Apply(st, project.AddBlock{
		Zone:       project.ZoneFunction,
		FunctionID: "increment",
		BlockID:    "fhe-allowThis",
		Config:     map[string]string{"handle": "_count"},
	})
	require.NoError(t, err)

	require.NoError(t, store.SaveProject(ctx, "p1", st))

	loaded, err := store.LoadProject(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, st.Name, loaded.Name)
	require.Len(t, loaded.Functions, 1)
	assert.Equal(t, len(st.Functions[0].Body), len(loaded.Functions[0].Body))

	last := loaded.Functions[0].Body[len(loaded.Functions[0].Body)-1]
	assert.Equal(t, "fhe-allowThis", last.BlockID)
	assert.True(t, last.IsNew())

	summaries, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "p1", summaries[0].ID)
	assert.Equal(t, st.Name, summaries[0].Name)
}

func TestSQLiteStore_DeleteProject(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveProject(ctx, "p1", project.New("Scratch")))
	require.NoError(t, store.DeleteProject(ctx, "p1"))

	_, err := store.LoadProject(ctx, "p1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.NoError(t, store.DeleteProject(ctx, "missing"))
}
