package gallery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterTemplate = `// SPDX-License-Identifier: BSD-3-Clause-Clear
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

func writeTemplate(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestScanner_ScanDir(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "counter/EncryptedCounter.sol", counterTemplate)
	writeTemplate(t, dir, "node_modules/Ignored.sol", counterTemplate)
	writeTemplate(t, dir, "notes/readme.md", "not solidity")
	writeTemplate(t, dir, "broken/Empty.sol", "// nothing here\n")

	s := NewScanner()
	var found []*TemplateInfo
	err := s.ScanDir(dir, func(info *TemplateInfo) {
		found = append(found, info)
	})
	require.NoError(t, err)

	require.Len(t, found, 1, "ignored dirs and contract-less files are skipped")
	assert.Equal(t, "EncryptedCounter", found[0].Name)
	assert.Equal(t, counterTemplate, found[0].Source)
	require.NotNil(t, found[0].Contract)
	assert.Len(t, found[0].Contract.Functions, 1)
}

func TestScanner_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "EncryptedCounter.sol", counterTemplate)

	s := NewScanner()
	info, err := s.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "EncryptedCounter", info.Name)
	assert.Equal(t, path, info.Path)

	_, err = s.Load(filepath.Join(dir, "missing.sol"))
	assert.Error(t, err)
}

func TestScanner_List(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "a/A.sol", counterTemplate)
	writeTemplate(t, dir, "b/B.sol", counterTemplate)

	s := NewScanner()
	infos, err := s.List(dir)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}
