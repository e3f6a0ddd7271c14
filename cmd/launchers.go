package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// CreateLaunchersCmd creates the launchers command.
func CreateLaunchersCmd(opts *Options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "launchers",
		Short: "List launcher profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := &environment{opts: opts}
			launchers, err := env.loadLaunchers()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(launchers.Launchers)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tBINARY\tARGS")
			for _, name := range launchers.Names() {
				spec := launchers.Launchers[name]
				fmt.Fprintf(tw, "%s\t%s\t%s\n", name, spec.Binary, strings.Join(spec.Args, " "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print profiles as JSON")
	return cmd
}
