package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sendahq/senda/internal/cli"
	"github.com/sendahq/senda/internal/config"
	"github.com/sendahq/senda/internal/logging"
	mcpadapter "github.com/sendahq/senda/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server so AI agents can drive workflows
as tools. The store backend and flows directory come from the same SENDA_*
environment variables as serve.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
		if cmd.Flags().Changed("flows") {
			cfg.FlowsDir, _ = cmd.Flags().GetString("flows")
		}

		// Logs must stay off stdout: stdio transport speaks JSON-RPC there.
		level := logging.ParseLevel(cfg.Log.Level)
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)
		slog.SetDefault(logger)
		log.SetOutput(os.Stderr)

		rt, err := cli.NewRuntime(cfg, logger)
		if err != nil {
			logger.Error("startup failed", "err", err)
			os.Exit(1)
		}
		defer rt.Close()

		srv := mcpadapter.NewServer(rt.Engine, mcpadapter.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("mcp server starting", "transport", "stdio")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			logger.Info("mcp server starting", "transport", "sse", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && err != http.ErrServerClosed {
				logger.Error("mcp server failed", "err", err)
				os.Exit(1)
			}
			logger.Info("mcp server stopped")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
