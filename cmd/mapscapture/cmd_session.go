package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Faultbox/maps-capture/internal/session"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionShowCmd, sessionResetCmd)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the reference matrix shared between captures",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored reference matrix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.Load(cfg.Session.StateFile)
		if err != nil {
			return err
		}
		ref, ok := store.Reference()
		if !ok {
			fmt.Println("No reference matrix stored.")
			return nil
		}
		for row := 0; row < 4; row++ {
			fmt.Printf("% 12.6f % 12.6f % 12.6f % 12.6f\n", ref.At(row, 0), ref.At(row, 1), ref.At(row, 2), ref.At(row, 3))
		}
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the reference matrix so the next capture sets a new one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.Load(cfg.Session.StateFile)
		if err != nil {
			return err
		}
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Println("Reference matrix cleared.")
		return nil
	},
}
