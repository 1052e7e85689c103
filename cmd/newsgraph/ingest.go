package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/siherrmann/newsgraph/model"
	"github.com/spf13/cobra"
)

func ingestCMD() *cobra.Command {
	var ingest = &cobra.Command{
		Use:   "ingest [file.json]",
		Short: "Ingest a JSON array of articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var articles []*model.Article
			if err := json.Unmarshal(data, &articles); err != nil {
				return fmt.Errorf("error parsing %s: %w", args[0], err)
			}

			n, _, err := openApp(loadAppConfig())
			if err != nil {
				return err
			}
			defer n.Close()

			out := cmd.OutOrStdout()
			for _, article := range articles {
				result, err := n.IngestArticle(cmd.Context(), article)
				if err != nil {
					return fmt.Errorf("error ingesting %q: %w", article.Title, err)
				}
				fmt.Fprintf(out, "%d\t%s\t%d chunks, %d entities, %d relationships\n",
					result.ArticleID, article.Title, result.Chunks, result.Entities, result.Relationships)
			}
			return nil
		},
	}

	return ingest
}
