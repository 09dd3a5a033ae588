package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPackage(t *testing.T) {
	p, ok := FindPackage("standard")
	assert.True(t, ok)
	assert.Equal(t, int64(20), p.Credits)
	assert.Equal(t, int64(900), p.AmountCents)

	p, ok = FindPackage("  Starter ")
	assert.True(t, ok)
	assert.Equal(t, "starter", p.ID)

	_, ok = FindPackage("nonexistent")
	assert.False(t, ok)
}

func TestPackagesIsACopy(t *testing.T) {
	got := Packages()
	got[0].Credits = 999

	again := Packages()
	assert.NotEqual(t, int64(999), again[0].Credits)
}
