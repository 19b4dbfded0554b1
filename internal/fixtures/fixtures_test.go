package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextFixture(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteTextFixture(dir, "nubank_reference.txt", "linha um\nlinha dois")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nubank_reference.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "linha um\nlinha dois", string(data))
}

func TestWriteTextFixtureOverwrites(t *testing.T) {
	dir := t.TempDir()

	_, err := WriteTextFixture(dir, "ref.txt", "primeira versão")
	require.NoError(t, err)
	path, err := WriteTextFixture(dir, "ref.txt", "segunda versão")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "segunda versão", string(data))
}

func TestWriteTextFixtureCreatesParents(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteTextFixture(filepath.Join(dir, "nested", "deep"), "ref.txt", "x")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
