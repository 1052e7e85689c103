package main

import (
	"fmt"
	"time"

	"github.com/siherrmann/newsgraph/model"
	"github.com/spf13/cobra"
)

func flashcardsCMD() *cobra.Command {
	var topics []string
	var daysBack int
	var limit int
	var flashcards = &cobra.Command{
		Use:   "flashcards",
		Short: "Summarize recent news as themed flashcards",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daysBack < 0 {
				return fmt.Errorf("days must not be negative: %d", daysBack)
			}

			n, _, err := openApp(loadAppConfig())
			if err != nil {
				return err
			}
			defer n.Close()

			request := model.FlashcardRequest{Topics: topics, Limit: limit}
			if daysBack > 0 {
				end := time.Now().UTC()
				start := end.AddDate(0, 0, -daysBack)
				request.StartDate, request.EndDate = &start, &end
			}

			out := cmd.OutOrStdout()
			for _, card := range n.Digest.GenerateFlashcards(cmd.Context(), request) {
				fmt.Fprintf(out, "## %s [%s]\n%s\n", card.Title, card.Category, card.Summary)
				for _, point := range card.KeyPoints {
					fmt.Fprintf(out, "  - %s\n", point)
				}
				for _, source := range card.SourceArticles {
					fmt.Fprintf(out, "  source #%d: %s\n", source.ID, source.Title)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	flashcards.Flags().StringSliceVar(&topics, "topic", nil, "topic to focus on, repeatable")
	flashcards.Flags().IntVar(&daysBack, "days", 0, "only use articles of the last n days (0 for all)")
	flashcards.Flags().IntVar(&limit, "limit", 10, "maximum number of flashcards")

	return flashcards
}
