package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexError_FormatsWithPosition(t *testing.T) {
	err := NewLex("a.e", 3, 7, "unexpected char %q", "~")
	assert.Equal(t, `a.e:3:7: unexpected char "~"`, err.Error())
}

func TestParseError_FormatsWithoutPositionWhenLineZero(t *testing.T) {
	err := NewParseAt("a.e", "missing required `bring stdr;`")
	assert.Equal(t, "a.e: missing required `bring stdr;`", err.Error())
}

func TestTypeError_FormatsWithPosition(t *testing.T) {
	err := NewType("a.e", 10, 2, "cannot assign %s to %s", "bool", "num")
	assert.Equal(t, "a.e:10:2: cannot assign bool to num", err.Error())
}

func TestTypeErrorAt_HasNoPosition(t *testing.T) {
	err := NewTypeAt("a.e", "program has no entry()")
	assert.Equal(t, "a.e: program has no entry()", err.Error())
	assert.Equal(t, 0, err.Line)
}

func TestErrorTypes_SatisfyErrorInterface(t *testing.T) {
	var errs_ []error
	errs_ = append(errs_, NewLex("a.e", 1, 1, "x"))
	errs_ = append(errs_, NewParse("a.e", 1, 1, "x"))
	errs_ = append(errs_, NewType("a.e", 1, 1, "x"))
	for _, e := range errs_ {
		assert.NotEmpty(t, e.Error())
	}
}
