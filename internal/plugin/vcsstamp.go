package plugin

import (
	"strconv"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/logfields"
	"git.home.luguber.info/inful/bundler/internal/vcs"
)

// VCSStamp attaches git provenance of the build context to every
// compilation's metadata. A context outside any repository downgrades to a
// log line; builds do not require git.
type VCSStamp struct{}

func (VCSStamp) Apply(c *compiler.Compiler) error {
	c.Hooks().ThisCompilation.Tap("vcs-stamp", func(comp *compiler.Compilation) {
		p, err := vcs.Describe(c.Context)
		if err != nil {
			c.Logger().Debug("no VCS provenance available", logfields.Error(err))
			return
		}
		comp.SetMeta("revision", p.ShortRevision())
		comp.SetMeta("branch", p.Branch)
		comp.SetMeta("dirty", strconv.FormatBool(p.Dirty))
	})
	return nil
}
