package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/maps-capture/internal/profiling"
	"github.com/Faultbox/maps-capture/internal/replay"
	"github.com/Faultbox/maps-capture/internal/scraper"
	"github.com/Faultbox/maps-capture/internal/session"
	"github.com/Faultbox/maps-capture/internal/workdir"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <capture>",
	Short: "Extract the map tiles of a capture into a new directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := replay.Open(ctx, args[0], replayOptions())
		if err != nil {
			return err
		}
		defer s.Close()

		dir, err := workdir.Make(cfg.Extract.TmpDir, args[0])
		if err != nil {
			return err
		}

		store, err := session.Load(cfg.Session.StateFile)
		if err != nil {
			return err
		}
		resolver := store.Resolver()

		report, err := scraper.Run(ctx, s, scraper.Options{
			Prefix:    dir.Prefix,
			MaxBlocks: cfg.Extract.MaxBlocks,
			Workers:   cfg.Extract.Workers,
			Resolver:  resolver,
			Counters:  profiling.NewCounters(),
		})
		if err != nil {
			// Nothing usable was written for an unrecognized capture
			if report == nil || len(report.Tiles) == 0 {
				dir.Remove()
			}
			return err
		}
		if err := store.Commit(resolver); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Variant:\t%s\n", report.Variant)
		fmt.Fprintf(w, "Strategy:\t%s\n", report.Strategy)
		fmt.Fprintf(w, "Relevant draws:\t%d\n", report.Relevant)
		fmt.Fprintf(w, "Tiles:\t%d\n", len(report.Tiles))
		fmt.Fprintf(w, "Skipped:\t%d\n", report.Skipped)
		fmt.Fprintf(w, "Output:\t%s\n", dir.Prefix)
		return w.Flush()
	},
}

func replayOptions() replay.Options {
	return replay.Options{
		BridgeCommand: cfg.Replay.BridgeCommand,
		BridgeArgs:    cfg.Replay.BridgeArgs,
		WorkDir:       cfg.Extract.TmpDir,
	}
}
