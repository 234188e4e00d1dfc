package invariant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreconditionPassesSilently(t *testing.T) {
	assert.NotPanics(t, func() {
		Precondition(true, "should not fire")
	})
}

func TestPreconditionPanicsOnViolation(t *testing.T) {
	assert.Panics(t, func() {
		Precondition(false, "argv must not be empty")
	})
}

func TestNotNilCatchesTypedNil(t *testing.T) {
	var p *int
	assert.Panics(t, func() {
		NotNil(p, "p")
	})
}

func TestNotNilAllowsNonNil(t *testing.T) {
	v := 5
	assert.NotPanics(t, func() {
		NotNil(&v, "v")
	})
}
