package resource

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableInsertGrowsByDoubling(t *testing.T) {
	tbl := NewTable[int]("meshes")
	assert.Equal(t, InitialCapacity, tbl.Capacity())

	for i := range InitialCapacity {
		idx, grew := tbl.Insert(uuid.New(), i)
		assert.Equal(t, i, idx)
		assert.False(t, grew)
	}
	_, grew := tbl.Insert(uuid.New(), 99)
	assert.True(t, grew)
	assert.Equal(t, 2*InitialCapacity, tbl.Capacity())
	assert.Equal(t, InitialCapacity+1, tbl.Len())
}

func TestTableInsertReplacesExisting(t *testing.T) {
	tbl := NewTable[string]("materials")
	id := uuid.New()
	i1, _ := tbl.Insert(id, "a")
	i2, _ := tbl.Insert(id, "b")
	assert.Equal(t, i1, i2)
	assert.Equal(t, 1, tbl.Len())
	v, ok := tbl.Get(id)
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestTableRemoveSwapsLastIntoHole(t *testing.T) {
	tbl := NewTable[string]("meshes")
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	tbl.Insert(a, "a")
	tbl.Insert(b, "b")
	tbl.Insert(c, "c")

	moved, ok := tbl.Remove(a)
	require.True(t, ok)
	assert.Equal(t, c, moved)
	idx, _ := tbl.Index(c)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []string{"c", "b"}, tbl.Snapshot())
	assert.Equal(t, []uuid.UUID{c, b}, tbl.Handles())

	moved, ok = tbl.Remove(b)
	require.True(t, ok)
	assert.Equal(t, uuid.Nil, moved, "removing the last record moves nothing")

	_, ok = tbl.Remove(a)
	assert.False(t, ok)
}

func TestTableAtOutOfRange(t *testing.T) {
	tbl := NewTable[int]("lights")
	tbl.Insert(uuid.New(), 1)

	_, err := tbl.At(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexOutOfRange))

	var be *BindingError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "lights", be.Table)
	assert.Equal(t, 1, be.Index)
	assert.Equal(t, 1, be.Len)

	_, err = tbl.At(-1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestTableUpdateMissing(t *testing.T) {
	tbl := NewTable[int]("materials")
	err := tbl.Update(uuid.New(), 3)
	assert.ErrorIs(t, err, ErrMissingResource)

	id := uuid.New()
	tbl.Insert(id, 1)
	rev := tbl.Revision()
	require.NoError(t, tbl.Update(id, 2))
	assert.Greater(t, tbl.Revision(), rev)
	v, _ := tbl.Get(id)
	assert.Equal(t, 2, v)
}
