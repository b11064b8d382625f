package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/maps-capture/internal/capture"
	"github.com/Faultbox/maps-capture/internal/classify"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/uniforms"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify <capture>",
	Short: "Show which draw calls of a capture hold map tiles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := replay.Open(cmd.Context(), args[0], replayOptions())
		if err != nil {
			return err
		}
		defer s.Close()

		roots, err := s.RootActions()
		if err != nil {
			return err
		}
		result, err := classify.Classify(capture.Flatten(roots), uniforms.NewProber(s))
		if err != nil {
			return err
		}

		fmt.Printf("Variant:  %s\n", result.Variant)
		fmt.Printf("Strategy: %s\n", result.StrategyName())
		fmt.Printf("Draws:    %d\n\n", len(result.Draws))

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EVENT\tNAME")
		for _, ev := range result.Draws {
			fmt.Fprintf(w, "%d\t%s\n", ev.EventID, ev.Name)
		}
		return w.Flush()
	},
}
