package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/cronside/cronside/pkg/client"
)

// mcpCmd serves the agent's operations as MCP tools over stdio, so LLM
// frontends can trigger and inspect jobs through the same API the CLI
// uses.
func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve job operations as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return server.ServeStdio(newMCPServer(apiClient()))
		},
	}
}

func newMCPServer(api *client.Client) *server.MCPServer {
	s := server.NewMCPServer("cronside", version)

	s.AddTool(
		mcp.NewTool("trigger_job",
			mcp.WithDescription("Start a named job's attempt sequence and return its run ID."),
			mcp.WithString("job", mcp.Required(), mcp.Description("Job name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("job")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			runID, err := api.TriggerJob(ctx, name)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("started run %s", runID)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("kill_job",
			mcp.WithDescription("Terminate a job's running attempt sequence."),
			mcp.WithString("job", mcp.Required(), mcp.Description("Job name")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			name, err := req.RequireString("job")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := api.KillJob(ctx, name); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("killed %s", name)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("list_runs",
			mcp.WithDescription("List recent runs, newest first, as JSON."),
			mcp.WithString("status", mcp.Description("Filter by status: running, success, failed or killed")),
			mcp.WithNumber("limit", mcp.Description("Maximum runs to return (default 20)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			list, err := api.ListRuns(ctx, client.ListRunsOptions{
				Limit:  req.GetInt("limit", 20),
				Status: req.GetString("status", ""),
			})
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := json.MarshalIndent(list.Runs, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(data)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("get_run",
			mcp.WithDescription("Fetch one run including its full log output."),
			mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("run_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			detail, err := api.GetRun(ctx, id)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			data, err := json.MarshalIndent(detail, "", "  ")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(string(data)), nil
		},
	)

	return s
}
