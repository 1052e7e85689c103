package main

import (
	"fmt"

	"github.com/siherrmann/newsgraph/database"
	"github.com/spf13/cobra"
)

func reindexCMD() *cobra.Command {
	var indexType string
	var m, efConstruction, lists int
	var reindex = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the article and chunk vector indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			index := database.VectorIndex{
				Type:           database.IndexType(indexType),
				M:              m,
				EfConstruction: efConstruction,
				Lists:          lists,
			}
			if index.Type != database.IndexTypeHNSW && index.Type != database.IndexTypeIVFFlat {
				return fmt.Errorf("unknown index type %q (hnsw or ivfflat)", indexType)
			}

			n, _, err := openApp(loadAppConfig())
			if err != nil {
				return err
			}
			defer n.Close()

			return n.ChangeIndexType(cmd.Context(), index)
		},
	}
	reindex.Flags().StringVar(&indexType, "type", string(database.IndexTypeHNSW), "hnsw or ivfflat")
	reindex.Flags().IntVar(&m, "m", 16, "hnsw max connections per layer")
	reindex.Flags().IntVar(&efConstruction, "ef-construction", 64, "hnsw candidate list size")
	reindex.Flags().IntVar(&lists, "lists", 100, "ivfflat list count")

	return reindex
}
