package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/aria/lang/runtime"
)

func noInvoke(c runtime.Callable, args []runtime.Value) (runtime.Value, error) {
	panic("no overload expected in this test")
}

func TestFastArithmetic(t *testing.T) {
	v, err := runtime.BinArith("add", runtime.NewInteger(2), runtime.NewInteger(3), noInvoke)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.(*runtime.Integer).V)

	_, err = runtime.BinArith("div", runtime.NewInteger(1), runtime.NewInteger(0), noInvoke)
	assert.Error(t, err)
}

func TestRelationalOppositeFallback(t *testing.T) {
	s := runtime.NewStruct("Box")
	called := ""
	invoke := func(c runtime.Callable, args []runtime.Value) (runtime.Value, error) {
		nf := c.(*runtime.NativeFunction)
		called = nf.Name
		return runtime.NewBoolean(true), nil
	}
	gt := &runtime.NativeFunction{Name: "gt", Fn: func(args []runtime.Value) (runtime.Value, error) {
		return runtime.NewBoolean(true), nil
	}}
	s.SetAttr("_op_impl_gt", gt)
	obj := runtime.NewObject(s)

	v, err := runtime.BinRel("lt", "gt", runtime.NewInteger(1), obj, invoke)
	require.NoError(t, err)
	assert.True(t, v.(*runtime.Boolean).V)
	assert.Equal(t, "gt", called, "relational fallback must look up the opposite operator on rhs, not an r-prefixed one")
}

func TestEqualsNeverErrors(t *testing.T) {
	a := runtime.NewInteger(1)
	b := runtime.NewString("x")
	assert.False(t, runtime.Equals(a, b, noInvoke))
	assert.True(t, runtime.Equals(runtime.NewInteger(4), runtime.NewInteger(4), noInvoke))
}

func TestListEqualityIsElementwise(t *testing.T) {
	a := runtime.NewList(runtime.NewInteger(1), runtime.NewInteger(2))
	b := runtime.NewList(runtime.NewInteger(1), runtime.NewInteger(2))
	c := runtime.NewList(runtime.NewInteger(1), runtime.NewInteger(3))
	assert.True(t, runtime.Equals(a, b, noInvoke))
	assert.False(t, runtime.Equals(a, c, noInvoke))
}
