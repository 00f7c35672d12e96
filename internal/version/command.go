package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// AttachCobraVersionCommand attaches a `version` subcommand to root.
// It prints build info followed by one line per component.
func AttachCobraVersionCommand(root *cobra.Command, components ...Component) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Long:  "Print build metadata (version, commit, build time) and the versions of linked components such as the HDF5 library.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, Full())

			for _, c := range components {
				_, _ = fmt.Fprintln(out, c.Describe())
			}
		},
	})
}
