package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapLookup(t *testing.T) {
	m := Map{"CUDA_PATH": "/opt/cuda"}

	v, ok := m.Lookup("CUDA_PATH")
	assert.True(t, ok)
	assert.Equal(t, "/opt/cuda", v)

	_, ok = m.Lookup("MISSING")
	assert.False(t, ok)
}

func TestGetAndOr(t *testing.T) {
	m := Map{"QUOTED": `"metal" `, "EMPTY": ""}

	assert.Equal(t, "metal", Get(m, "QUOTED"))
	assert.Equal(t, "", Get(m, "MISSING"))
	assert.Equal(t, "fallback", Or(m, "EMPTY", "fallback"))
	assert.Equal(t, "metal", Or(m, "QUOTED", "fallback"))
}

func TestOSLookup(t *testing.T) {
	t.Setenv("LLAMABUILD_TEST_VAR", "42")

	v, ok := OS{}.Lookup("LLAMABUILD_TEST_VAR")
	assert.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestSnapshot(t *testing.T) {
	m := Map{"A": "1", "C": "3"}
	assert.Equal(t, map[string]string{"A": "1", "C": "3"}, Snapshot(m, "C", "B", "A"))
}
