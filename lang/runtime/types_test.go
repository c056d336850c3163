package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/aria/lang/runtime"
)

func TestUnionAnyAbsorbs(t *testing.T) {
	u := runtime.NewUnion(runtime.NewBuiltinType(runtime.BuiltinInt), runtime.NewBuiltinType(runtime.BuiltinAny))
	bt, ok := u.(*runtime.BuiltinType)
	assert.True(t, ok, "Any absorbs any union it appears in")
	assert.Equal(t, runtime.BuiltinAny, bt.ID)
}

func TestUnionFlattensAndDedupes(t *testing.T) {
	inner := runtime.NewUnion(runtime.NewBuiltinType(runtime.BuiltinInt), runtime.NewBuiltinType(runtime.BuiltinString))
	u := runtime.NewUnion(inner, runtime.NewBuiltinType(runtime.BuiltinInt), runtime.NewBuiltinType(runtime.BuiltinBool))
	ut, ok := u.(*runtime.UnionType)
	assert.True(t, ok)
	assert.Len(t, ut.Members, 3)
}

func TestBuiltinTypeCheck(t *testing.T) {
	assert.True(t, runtime.NewBuiltinType(runtime.BuiltinInt).Check(runtime.NewInteger(1)))
	assert.False(t, runtime.NewBuiltinType(runtime.BuiltinInt).Check(runtime.NewString("x")))
	assert.True(t, runtime.NewBuiltinType(runtime.BuiltinAny).Check(runtime.NewString("x")))
}

func TestStructTypeCheck(t *testing.T) {
	s := runtime.NewStruct("Point")
	other := runtime.NewStruct("Other")
	pred := &runtime.StructType{Struct: s}
	assert.True(t, pred.Check(runtime.NewObject(s)))
	assert.False(t, pred.Check(runtime.NewObject(other)))
}
