package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_ContainsVersionAndCommit(t *testing.T) {
	s := String()
	assert.True(t, strings.Contains(s, Version))
	assert.True(t, strings.Contains(s, Commit))
}

func TestGetInfo_MatchesPackageVars(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, Date, info.Date)
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
}

func TestShort_ReturnsVersion(t *testing.T) {
	assert.Equal(t, Version, Short())
}
