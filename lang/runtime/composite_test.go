package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/aria/lang/runtime"
)

func TestStructMixinAttributeFallthrough(t *testing.T) {
	m := runtime.NewMixin("Greet")
	m.SetAttr("hello", runtime.NewString("hi"))

	s := runtime.NewStruct("Person")
	s.IncludeMixin(m)
	obj := runtime.NewObject(s)

	v, ok := obj.GetAttr("hello")
	assert.True(t, ok)
	assert.Equal(t, "hi", v.(*runtime.String).V)
}

func TestObjectSetAttrTargetsInstanceNotStruct(t *testing.T) {
	s := runtime.NewStruct("Counter")
	a := runtime.NewObject(s)
	b := runtime.NewObject(s)

	a.SetAttr("n", runtime.NewInteger(1))
	_, ok := b.GetAttr("n")
	assert.False(t, ok, "per-instance writes must not leak to sibling instances")
}

func TestEnumValueEquality(t *testing.T) {
	e := runtime.NewEnum("Shape")
	circle := e.AddCase("Circle", runtime.NewBuiltinType(runtime.BuiltinFloat))
	e.AddCase("Point", nil)

	a := runtime.NewEnumValue(e, circle, runtime.NewFloat(1.0))
	b := runtime.NewEnumValue(e, circle, runtime.NewFloat(1.0))
	c := runtime.NewEnumValue(e, circle, runtime.NewFloat(2.0))

	eq := func(x, y runtime.Value) bool { return runtime.Equals(x, y, nil) }
	assert.True(t, a.Equal(b, eq))
	assert.False(t, a.Equal(c, eq))
}

func TestMixinIsaTransitiveThroughStruct(t *testing.T) {
	base := runtime.NewMixin("Named")
	mid := runtime.NewMixin("Describable")
	mid.IncludeMixin(base)

	s := runtime.NewStruct("Animal")
	s.IncludeMixin(mid)

	pred := &runtime.MixinType{Mixin: base}
	assert.True(t, pred.Check(runtime.NewObject(s)))
}
