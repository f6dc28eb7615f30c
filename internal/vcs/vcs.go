// Package vcs reads lightweight git provenance (revision, branch, dirty
// state) from the build context so builds can be traced back to the source
// state they were produced from.
package vcs

import (
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Provenance describes the source state a build was produced from.
type Provenance struct {
	Revision string
	Branch   string
	Dirty    bool
}

// Describe reads the provenance of the repository containing dir. It walks
// up parent directories the way git itself does.
func Describe(dir string) (*Provenance, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	p := &Provenance{Revision: head.Hash().String()}
	if name := head.Name(); name.IsBranch() {
		p.Branch = name.Short()
	} else if name == plumbing.HEAD {
		p.Branch = "detached"
	}

	wt, err := repo.Worktree()
	if err != nil {
		return p, nil // bare repository; revision alone is still useful
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("failed to read worktree status: %w", err)
	}
	p.Dirty = !status.IsClean()
	return p, nil
}

// ShortRevision returns the abbreviated commit hash.
func (p *Provenance) ShortRevision() string {
	if len(p.Revision) > 8 {
		return p.Revision[:8]
	}
	return p.Revision
}
