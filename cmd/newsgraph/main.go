package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:          "newsgraph",
		Short:        "Hybrid graph and vector retrieval over news articles",
		SilenceUsage: true,
	}

	root.AddCommand(serveCMD(), ingestCMD(), askCMD(), flashcardsCMD(), statsCMD(), reindexCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
