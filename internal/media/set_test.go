package media

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(t *testing.T, name string, size int) *Item {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeFile(t, path, size)
	item, err := NewFileItem(path)
	require.NoError(t, err)
	return item
}

func TestSetKeepsInsertionOrder(t *testing.T) {
	s := NewSet()
	a := newTestItem(t, "a", 10)
	b := newTestItem(t, "b", 10)
	c := newTestItem(t, "c", 10)

	s.Add(a)
	s.Add(b)
	s.Add(c)

	assert.Equal(t, []*Item{a, b, c}, s.Items())
	assert.Equal(t, 3, s.Len())
}

func TestSetAllowsDuplicatePaths(t *testing.T) {
	s := NewSet()
	path := filepath.Join(t.TempDir(), "dup")
	writeFile(t, path, 4096)

	first, err := NewFileItem(path)
	require.NoError(t, err)
	second, err := NewFileItem(path)
	require.NoError(t, err)

	s.Add(first)
	s.Add(second)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(8192), s.SizeOnDisc())

	require.True(t, s.Remove(second))
	assert.Equal(t, []*Item{first}, s.Items())
}

func TestSetRemoveMissing(t *testing.T) {
	s := NewSet()
	a := newTestItem(t, "a", 10)
	s.Add(a)

	assert.False(t, s.Remove(newTestItem(t, "b", 10)))
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.Equal(t, 0, s.Len())
}

func TestSetItemsIsACopy(t *testing.T) {
	s := NewSet()
	s.Add(newTestItem(t, "a", 10))

	items := s.Items()
	items[0] = nil
	assert.NotNil(t, s.Items()[0])
}
