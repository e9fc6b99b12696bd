package version

import (
	"github.com/hashicorp-forge/courier/internal/cmd/base"
	"github.com/hashicorp-forge/courier/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return "Usage: courier version"
}

func (c *Command) Run(args []string) int {
	c.UI.Output("courier " + version.FullVersion())
	return 0
}
