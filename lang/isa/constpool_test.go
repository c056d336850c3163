package isa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/aria/lang/isa"
)

func TestConstantPoolDeduplicates(t *testing.T) {
	var pool isa.ConstantPool

	i1, err := pool.InsertInt(42)
	require.NoError(t, err)
	i2, err := pool.InsertInt(42)
	require.NoError(t, err)
	assert.Equal(t, i1, i2, "inserting the same value twice must return the same index")

	s1, err := pool.InsertString("hello")
	require.NoError(t, err)
	s2, err := pool.InsertString("hello")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.NotEqual(t, i1, s1)

	got, ok := pool.Get(i1)
	require.True(t, ok)
	assert.Equal(t, int64(42), got.Int)

	_, ok = pool.Get(999)
	assert.False(t, ok, "out-of-range index must be reported, never silently return a zero value")
}

func TestConstantPoolCodeObjectsNeverDeduplicate(t *testing.T) {
	var pool isa.ConstantPool
	c1, err := pool.InsertCode(&isa.CodeObject{Name: "f"})
	require.NoError(t, err)
	c2, err := pool.InsertCode(&isa.CodeObject{Name: "f"})
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}
