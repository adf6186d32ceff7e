package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/document-intelligence-api/internal/client"
)

const defaultServerURL = "http://localhost:8080/api/v1"

type commandContext struct {
	server string
}

func (c *commandContext) client() *client.Client {
	return client.New(c.server, nil)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "docintel",
		Short:         "Document intelligence CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	server := os.Getenv("DOCINTEL_URL")
	if server == "" {
		server = defaultServerURL
	}
	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", server, "Base URL of the API (env DOCINTEL_URL)")

	rootCmd.AddCommand(newUploadCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newEntitiesCommand(ctx))
	rootCmd.AddCommand(newReportCommand(ctx))

	return rootCmd
}
