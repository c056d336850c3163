package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mna/aria/lang/runtime"
)

func TestMaybeSomeNone(t *testing.T) {
	some := runtime.Some(runtime.NewInteger(3))
	assert.True(t, some.IsSome())
	assert.False(t, runtime.None().IsSome())
}

func TestResultOkErr(t *testing.T) {
	ok := runtime.OkResult(runtime.NewInteger(1))
	err := runtime.ErrResult(runtime.NewRuntimeError("boom"))
	assert.True(t, ok.IsOk())
	assert.False(t, err.IsOk())
}

func TestRuntimeErrorMessageAttr(t *testing.T) {
	e := runtime.NewRuntimeError("bad thing")
	v, ok := e.GetAttr("message")
	assert.True(t, ok)
	assert.Equal(t, "bad thing", v.(*runtime.String).V)
}
