package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/pipeline"
)

// configCommand creates the config command, which prints the effective
// options after defaults, --config and flags are merged.
func (c *CLI) configCommand() *cobra.Command {
	var flags optionFlags
	format := pipeline.FormatTOML

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective options",
		Example: `  # Start a config file from the defaults
  blendgen config > blends.toml

  # Check what a file plus overrides resolves to
  blendgen config -c blends.toml --seed 7 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return pipeline.EncodeOptions(cmd.OutOrStdout(), opts, format)
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", format, "output format: toml, yaml, json")

	return cmd
}
