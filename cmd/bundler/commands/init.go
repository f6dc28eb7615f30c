package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/bundler/internal/errors"
)

// InitCmd writes an example configuration file.
type InitCmd struct {
	Force bool `help:"Overwrite an existing configuration file"`
}

const exampleConfig = `# bundler build configuration
name: app
context: .

output:
  path: dist
  # cache: true
  # concurrency: 15

records:
  path: .bundler/records.json

watch:
  paths: [src]
  debounce: 300ms
  # poll_interval: 30s

# monitoring:
#   metrics_listen: ":9402"

# notify:
#   url: nats://localhost:4222
#   subject: builds.app

# journal:
#   path: .bundler/journal.db

logging:
  level: info
  format: text
`

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if _, err := os.Stat(root.Config); err == nil && !i.Force {
		return errors.ValidationFailed("config", fmt.Sprintf("%s already exists (use --force to overwrite)", root.Config))
	}
	if err := os.WriteFile(root.Config, []byte(exampleConfig), 0o644); err != nil {
		return errors.FileSystemError("write", root.Config, err)
	}
	fmt.Printf("Wrote %s\n", root.Config)
	return nil
}
