package cmd

import (
	"fmt"
	"io"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/petstore-e2e/internal/capabilities"
)

func newCapsCmd() *cobra.Command {
	var (
		format string
		all    bool
	)
	capsCmd := &cobra.Command{
		Use:   "caps [browser]",
		Short: "Prints the capability record sent to the WebDriver hub",
		Long: `Prints the capability record for the given browser, or for browser.name
when none is given. --all prints the full set keyed by browser identifier.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			opts := capabilities.Options{
				Args:     cfg.Browser.Args,
				Headless: cfg.Browser.Headless,
				Platform: capabilities.HostPlatform(),
			}

			var out interface{}
			if all {
				set := make(map[string]interface{})
				for id, c := range capabilities.Set(opts) {
					set[id] = c.Map()
				}
				out = set
			} else {
				name := cfg.Browser.Name
				if len(args) == 1 {
					name = args[0]
				}
				c, err := capabilities.Select(name, opts)
				if err != nil {
					return err
				}
				out = c.Map()
			}
			return writeCaps(cmd.OutOrStdout(), format, out)
		},
	}
	capsCmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	capsCmd.Flags().BoolVar(&all, "all", false, "Print every supported browser")
	return capsCmd
}

func writeCaps(w io.Writer, format string, v interface{}) error {
	switch format {
	case "json":
		b, err := json.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode capabilities: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode capabilities: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported caps format %q (want json or yaml)", format)
	}
}
