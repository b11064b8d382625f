package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Faultbox/maps-capture/internal/assemble"
	"github.com/Faultbox/maps-capture/internal/profiling"
	"github.com/Faultbox/maps-capture/internal/session"
)

var importVerbose bool

func init() {
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "List every tile")
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <prefix>",
	Short: "Assemble extracted file sets into positioned tiles",
	Long: `Assemble reads the file sets an extract run wrote under <prefix>
and resolves each draw call into a tile with world-space geometry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.Load(cfg.Session.StateFile)
		if err != nil {
			return err
		}
		resolver := store.Resolver()

		counters := profiling.NewCounters()
		tiles, err := assemble.Import(args[0], resolver, assemble.Options{
			MaxBlocks:   cfg.Import.MaxBlocks,
			GlobalScale: cfg.Import.GlobalScale,
			Counters:    counters,
		})
		if err != nil {
			return err
		}
		if err := store.Commit(resolver); err != nil {
			return err
		}
		counters.Log()

		var vertices, triangles int
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if importVerbose {
			fmt.Fprintln(w, "NAME\tVERTICES\tTRIANGLES\tTEXTURE")
		}
		for _, t := range tiles {
			vertices += len(t.Vertices)
			triangles += len(t.Triangles)
			if importVerbose {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", t.Name, len(t.Vertices), len(t.Triangles), t.Texture)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("Imported %d tiles (%d vertices, %d triangles)\n", len(tiles), vertices, triangles)
		return nil
	},
}
