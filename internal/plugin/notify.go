package plugin

import (
	"context"

	"git.home.luguber.info/inful/bundler/internal/compiler"
	"git.home.luguber.info/inful/bundler/internal/logfields"
	"git.home.luguber.info/inful/bundler/internal/notify"
)

// Notify publishes a report after every completed build. Publish failures
// are logged and swallowed so a broker outage never fails a build.
type Notify struct {
	Publisher notify.Publisher
}

func (n *Notify) Apply(c *compiler.Compiler) error {
	c.Hooks().Done.Tap("notify", func(_ context.Context, stats *compiler.Stats) error {
		report := stats.Report()
		err := n.Publisher.Publish(notify.BuildReport{
			Compiler:   c.Name,
			BuildID:    stats.Compilation.ID,
			Hash:       report.Hash,
			Errors:     report.Errors,
			DurationMS: report.DurationMS,
			Assets:     len(report.Assets),
			Meta:       report.Meta,
		})
		if err != nil {
			c.Logger().Warn("build report publish failed", logfields.Error(err))
		}
		return nil
	})
	return nil
}
