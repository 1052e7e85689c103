package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/siherrmann/newsgraph/server"
	"github.com/spf13/cobra"
)

func serveCMD() *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadAppConfig()
			if serveAddr == "" {
				serveAddr = fmt.Sprintf(":%s", config.Port)
			}

			n, _, err := openApp(config)
			if err != nil {
				return err
			}
			defer n.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s := server.New(server.Services{
				Chat:       n.Chat,
				Search:     n.Retriever,
				Graph:      n.Graph,
				Articles:   n.Articles,
				Flashcards: n.Digest,
				Metrics:    n.Metrics,
			}, n.Config, n.Logger())
			return s.Run(ctx, serveAddr)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :$NEWSGRAPH_PORT)")

	return serve
}
