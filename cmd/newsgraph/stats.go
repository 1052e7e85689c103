package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func statsCMD() *cobra.Command {
	var stats = &cobra.Command{
		Use:   "stats",
		Short: "Print knowledge graph statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := openApp(loadAppConfig())
			if err != nil {
				return err
			}
			defer n.Close()

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(n.Graph.GraphStatistics(cmd.Context()))
		},
	}

	return stats
}
