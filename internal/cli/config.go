package cli

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/runoshun/beanloop/internal/app"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the merged configuration as TOML: built-in defaults, the global
config file, .beanloop.toml in the repository root and BEANLOOP_*
environment variables, in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := toml.Marshal(c.Cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = cmd.OutOrStdout().Write(data)
			return nil
		},
	}
}
