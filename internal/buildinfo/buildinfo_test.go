package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	origVersion, origDate := Version, BuildDate
	t.Cleanup(func() { Version, BuildDate = origVersion, origDate })

	Version, BuildDate = "v1.2.3", "2026-08-26"
	assert.Equal(t, "v1.2.3 (built 2026-08-26)", String())

	Version, BuildDate = "", ""
	assert.Equal(t, "unknown (built unknown)", String())
}
