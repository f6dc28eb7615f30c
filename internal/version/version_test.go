package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringIncludesCommitWhenSet(t *testing.T) {
	origVersion, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = origVersion, origCommit }()

	Version = "v1.2.0"
	GitCommit = "unknown"
	assert.Equal(t, "v1.2.0", String())

	GitCommit = "abc1234"
	assert.Equal(t, "v1.2.0 (abc1234)", String())
}
