package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/lazyproxy/pkg/cli"
)

var validateFlags struct {
	output string
	quiet  bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and print the effective values",
	Long: `Load the configuration exactly as run would (file, .env, environment
overrides), validate it and print the effective values.

Exit status is 2 when the configuration is invalid.

Examples:
  # Print effective configuration as YAML
  lazyproxy validate --config lazyproxy.yaml

  # Only check, print nothing on success
  lazyproxy validate --quiet

  # JSON output
  lazyproxy validate --output json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "yaml", "output format: yaml, json")
	validateCmd.Flags().BoolVarP(&validateFlags.quiet, "quiet", "q", false, "print nothing on success")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := revalidate(cfg); err != nil {
		return err
	}

	if validateFlags.quiet {
		return nil
	}

	out := cmd.OutOrStdout()
	switch validateFlags.output {
	case "yaml", "":
		if path != "" {
			fmt.Fprintf(out, "# loaded from %s\n", path)
		} else {
			fmt.Fprintln(out, "# no config file, defaults and environment only")
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return cli.NewCommandError("validate", err)
		}
		return enc.Close()
	case "json":
		return cli.NewFormatter(cli.FormatJSON).FormatTo(out, cfg)
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", validateFlags.output)
	}
}
