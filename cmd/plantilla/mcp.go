package main

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/plantilla/plantilla"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the front end as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			srv := mcp.NewServer(&mcp.Implementation{Name: "plantilla", Version: "1.0.0"}, nil)
			c.RegisterMCP(srv, plantilla.NewSession())

			slog.Info("MCP stdio starting", "gateway", opts.gateway)
			return srv.Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
