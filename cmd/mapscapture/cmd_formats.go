package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/maps-capture/pkg/gpuformat"
)

func init() {
	rootCmd.AddCommand(formatsCmd)
}

var formatsCmd = &cobra.Command{
	Use:   "formats <name>...",
	Short: "Check vertex format names such as R32G32B32_FLOAT",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCOMPONENTS\tTYPE\tBYTES\tSTATUS")

		var failed int
		for _, name := range args {
			f, err := gpuformat.ParseFormat(name)
			if err != nil {
				failed++
				fmt.Fprintf(w, "%s\t-\t-\t-\t%v\n", name, err)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%d\tok\n", f, f.CompCount, f.CompType, f.ElementSize())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d formats cannot be decoded", failed, len(args))
		}
		return nil
	},
}
