package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepoWithCommit(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("a.txt")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}

func TestDescribeCleanRepo(t *testing.T) {
	dir := initRepoWithCommit(t)

	p, err := Describe(dir)
	require.NoError(t, err)
	assert.Len(t, p.Revision, 40)
	assert.Len(t, p.ShortRevision(), 8)
	assert.False(t, p.Dirty)
	assert.NotEmpty(t, p.Branch)
}

func TestDescribeDirtyRepo(t *testing.T) {
	dir := initRepoWithCommit(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("two"), 0o644))

	p, err := Describe(dir)
	require.NoError(t, err)
	assert.True(t, p.Dirty)
}

func TestDescribeFromSubdirectory(t *testing.T) {
	dir := initRepoWithCommit(t)
	sub := filepath.Join(dir, "nested", "deep")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	p, err := Describe(sub)
	require.NoError(t, err)
	assert.Len(t, p.Revision, 40)
}

func TestDescribeOutsideRepository(t *testing.T) {
	_, err := Describe(t.TempDir())
	require.Error(t, err)
}
