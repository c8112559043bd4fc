package blocks

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labz/internal/project"
	"labz/internal/solidity"
)

func mustGet(t *testing.T, r *Registry, id string) Definition {
	t.Helper()
	d, ok := r.Get(id)
	require.True(t, ok, "missing built-in block %q", id)
	return d
}

func TestRender(t *testing.T) {
	r := NewRegistry()

	t.Run("substitutes parameters", func(t *testing.T) {
		d := mustGet(t, r, "fhe-add")
		out, err := d.Render(map[string]string{"result": "_count", "lhs": "_count", "rhs": "amount"})
		require.NoError(t, err)
		assert.Equal(t, "_count = FHE.add(_count, amount);", out)
	})

	t.Run("falls back to defaults", func(t *testing.T) {
		d := mustGet(t, r, "fhe-allow")
		out, err := d.Render(map[string]string{"handle": "_count"})
		require.NoError(t, err)
		assert.Equal(t, "FHE.allow(_count, msg.sender);", out)
	})

	t.Run("missing required parameter", func(t *testing.T) {
		d := mustGet(t, r, "fhe-allowThis")
		_, err := d.Render(nil)
		assert.Error(t, err)
	})
}

func TestRegistry_RenderBlock(t *testing.T) {
	r := NewRegistry()

	t.Run("raw block re-emits its text", func(t *testing.T) {
		out, err := r.RenderBlock(project.Block{
			BlockID: project.RawBlockID,
			Config:  map[string]string{"text": "    euint64 private _count;"},
		})
		require.NoError(t, err)
		assert.Equal(t, "    euint64 private _count;", out)
	})

	t.Run("unknown definition is an error", func(t *testing.T) {
		_, err := r.RenderBlock(project.Block{BlockID: "does-not-exist"})
		assert.Error(t, err)
	})
}

func TestAvailability_Gating(t *testing.T) {
	r := NewRegistry()
	stateBlock := mustGet(t, r, "state-euint64")
	importBlock := mustGet(t, r, "import-fhe")

	st := project.New("Fresh")

	assert.False(t, Available(stateBlock, Context{State: &st}),
		"state block must be unavailable before any import exists")
	assert.True(t, Available(importBlock, Context{State: &st}))

	next, err := project.Apply(st, project.AddBlock{Zone: project.ZoneImports, BlockID: "import-fhe", Config: map[string]string{"path": importBlock.ImportPath}})
	require.NoError(t, err)

	assert.True(t, Available(stateBlock, Context{State: &next}),
		"state block becomes available once an import is present")
	assert.False(t, Available(importBlock, Context{State: &next}),
		"duplicate import path must be rejected")
}

func TestAvailability_FunctionZones(t *testing.T) {
	r := NewRegistry()
	addBlock := mustGet(t, r, "fhe-add")
	aclBlock := mustGet(t, r, "fhe-allowThis")

	st := project.New("Fresh")
	st.Functions = append(st.Functions, project.Function{
		Function: solidity.Function{ID: "func:poke:5", Name: "poke"},
		Body:     []project.Block{},
	})

	t.Run("no selection", func(t *testing.T) {
		assert.False(t, Available(addBlock, Context{State: &st}))
		assert.False(t, Available(aclBlock, Context{State: &st}))
	})

	t.Run("selection without encrypted value", func(t *testing.T) {
		sel := &st.Functions[0]
		assert.True(t, Available(addBlock, Context{State: &st, Selected: sel}))
		assert.False(t, Available(aclBlock, Context{State: &st, Selected: sel}),
			"ACL block needs an encrypted value in the selected function")
	})

	t.Run("selection with produced handle", func(t *testing.T) {
		withBlock, err := project.Apply(st, project.AddBlock{
			Zone:       project.ZoneFunction,
			FunctionID: "poke",
			BlockID:    "fhe-fromExternal",
			Config:     map[string]string{"result": "amount"},
		})
		require.NoError(t, err)
		sel := withBlock.FindFunction("poke")
		require.NotNil(t, sel)
		assert.True(t, Available(aclBlock, Context{State: &withBlock, Selected: sel}))
	})

	t.Run("selection with parsed operations", func(t *testing.T) {
		parsed := st.Clone()
		parsed.Functions[0].FHEOperations = []solidity.FHEOperation{{Name: "add", Line: 6, Column: 9}}
		sel := &parsed.Functions[0]
		assert.True(t, Available(aclBlock, Context{State: &parsed, Selected: sel}))
	})
}

func TestRegistry_ListAndCategories(t *testing.T) {
	r := NewRegistry()

	list := r.List()
	require.NotEmpty(t, list)
	for _, d := range list {
		assert.NotEqual(t, project.RawBlockID, d.ID, "raw block must not appear in the palette")
		assert.NotEmpty(t, d.Zones, "block %s has no zone affinity", d.ID)
	}

	byCat := r.ByCategory()
	assert.Contains(t, byCat, CategoryACL)
	assert.Contains(t, byCat, CategoryArithmetic)
	assert.Contains(t, byCat, CategoryImports)
}

func TestLoadCatalog(t *testing.T) {
	r := NewRegistry()
	path := t.TempDir() + "/catalog.yaml"
	catalog := `blocks:
  - id: fhe-min
    title: Encrypted minimum
    category: arithmetic
    zones: [function]
    fields:
      - name: result
        type: identifier
        required: true
      - name: lhs
        type: expression
        required: true
      - name: rhs
        type: expression
        required: true
    template: "{{result}} = FHE.min({{lhs}}, {{rhs}});"
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	require.NoError(t, r.LoadCatalog(path))

	d, ok := r.Get("fhe-min")
	require.True(t, ok)
	out, err := d.Render(map[string]string{"result": "low", "lhs": "a", "rhs": "b"})
	require.NoError(t, err)
	assert.Equal(t, "low = FHE.min(a, b);", out)
}
