package main

import (
	"fmt"
	"strings"

	"github.com/siherrmann/newsgraph/core/citation"
	"github.com/spf13/cobra"
)

func askCMD() *cobra.Command {
	var conversationID string
	var ask = &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the ingested news",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := openApp(loadAppConfig())
			if err != nil {
				return err
			}
			defer n.Close()

			response, err := n.Ask(cmd.Context(), conversationID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, response.Response)
			if len(response.Citations) > 0 {
				fmt.Fprintln(out)
				for i, c := range response.Citations {
					fmt.Fprintf(out, "[%d] %s (%s)\n", i+1, c.Title, c.Publication)
				}
				fmt.Fprintf(out, "\nCitation quality: %s\n", citation.QualityLabel(response.Quality.QualityScore))
			}
			return nil
		},
	}
	ask.Flags().StringVar(&conversationID, "conversation", "", "conversation id to continue")

	return ask
}
