package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/oscillatelabsllc/recall/internal/api"
	"github.com/oscillatelabsllc/recall/internal/mcp"
	"github.com/oscillatelabsllc/recall/internal/telegram"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	envFile string
	askUser int64

	rootCmd = &cobra.Command{
		Use:   "recall",
		Short: "Chat assistant with per-user memory and web search",
		Long: `Recall answers chat messages using what each user said before,
plus a web search when the question needs fresh information.
It runs as a Telegram bot, an HTTP API and an MCP server.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when TELEGRAM_TOKEN is set, the Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}

	askCmd = &cobra.Command{
		Use:   "ask [message]",
		Short: "Run a single turn for a user and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env when present)")
	askCmd.Flags().Int64Var(&askUser, "user", 0, "user id the turn runs as")

	rootCmd.AddCommand(serveCmd, mcpCmd, askCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	httpServer := api.NewServer(a.pipeline, a.store, api.Options{
		Port:            a.cfg.HTTPPort,
		TelegramEnabled: a.cfg.TelegramEnabled(),
		Gatherer:        a.registry,
		Logger:          a.logger,
	})
	if a.cfg.MCPSSE {
		httpServer.AddMCPServer(mcp.NewServer(a.pipeline, a.store, a.logger).GetMCPServer())
	}

	var bot *telegram.Bot
	if a.cfg.TelegramEnabled() {
		if bot, err = telegram.New(a.cfg.TelegramToken, a.pipeline, a.logger); err != nil {
			return err
		}
	} else {
		a.logger.Warn().Msg("TELEGRAM_TOKEN not set, running without the Telegram bot")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpServer.Serve(gctx)
	})
	if bot != nil {
		g.Go(func() error {
			return bot.Run(gctx)
		})
	}

	a.logger.Info().
		Str("port", a.cfg.HTTPPort).
		Str("memory_backend", a.cfg.MemoryBackend).
		Str("model", a.cfg.LLMModel).
		Bool("telegram", a.cfg.TelegramEnabled()).
		Bool("mcp_sse", a.cfg.MCPSSE).
		Msg("recall started")

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info().Msg("recall stopped")
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info().
		Str("memory_backend", a.cfg.MemoryBackend).
		Str("ollama", a.cfg.OllamaURL).
		Str("embedding_model", a.cfg.EmbeddingModel).
		Msg("recall MCP server starting")

	return mcp.NewServer(a.pipeline, a.store, a.logger).Serve()
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.pipeline.HandleTurn(cmd.Context(), askUser, strings.Join(args, " "))
	fmt.Fprintln(cmd.OutOrStdout(), res.Reply())
	if !res.OK() {
		return fmt.Errorf("turn failed: %w", res.Err)
	}
	return nil
}
