package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/i2y/papermcp/configs"
	"github.com/i2y/papermcp/internal/adapter/outbound/mcpclient"
	"github.com/i2y/papermcp/internal/agent"
	"github.com/i2y/papermcp/internal/domain"
)

func main() {
	// === Command Line Flags ===
	// Flags override the corresponding PAPERMCP_AGENT_* environment variables.
	var (
		provider  string
		model     string
		transport string
	)
	flag.StringVar(&provider, "provider", "", "LLM provider: anthropic, openai, or gemini")
	flag.StringVar(&model, "model", "", "Model name (defaults to the provider's default model)")
	flag.StringVar(&transport, "transport", "", "Transport mode: sse or stdio")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.LoadAgent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load agent config: %v\n", err)
		os.Exit(1)
	}
	if provider != "" {
		cfg.Provider = provider
	}
	if model != "" {
		cfg.Model = model
	}
	if transport != "" {
		cfg.Transport = transport
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid agent config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	// The conversation itself goes to stdout, so logs stay on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}))
	logger = logger.With(slog.String("session_id", uuid.NewString()))
	slog.SetDefault(logger)

	// === LLM Provider ===
	llm, err := agent.NewProvider(ctx, cfg.Provider)
	if err != nil {
		logger.Error("Failed to initialize LLM provider.", slog.Any("error", err))
		os.Exit(1)
	}

	// === MCP Client ===
	var client *mcpclient.Client
	switch cfg.Transport {
	case "stdio":
		client, err = mcpclient.NewStdio(cfg.ServerCommand, os.Environ(), cfg.ServerArgs, cfg.RequestTimeout, logger)
	default:
		client, err = mcpclient.NewSSE(cfg.ServerURL, cfg.RequestTimeout, logger)
	}
	if err != nil {
		logger.Error("Failed to create MCP client.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close MCP client.", slog.Any("error", err))
		}
	}()

	if err := client.Connect(ctx); err != nil {
		logger.Error("Failed to connect to MCP server.", slog.Any("error", err))
		os.Exit(1)
	}

	// === Agent Runner ===
	runner, err := agent.NewRunner(llm, client, agent.Config{
		Model:        cfg.ResolvedModel(),
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		MaxToolTurns: cfg.MaxToolTurns,
		MaxRetries:   cfg.MaxRetries,
	}, logger)
	if err != nil {
		logger.Error("Failed to create agent runner.", slog.Any("error", err))
		os.Exit(1)
	}
	if err := runner.Start(ctx); err != nil {
		logger.Error("Failed to start agent.", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("Connected to MCP server (%s). Tools: %s\n",
		cfg.Transport, strings.Join(runner.Catalog().Names(), ", "))
	fmt.Println("Type a question, or 'exit' to quit.")
	fmt.Println()

	chat(ctx, runner, logger)

	usage := runner.Usage()
	logger.Info("Session finished.",
		slog.Int("input_tokens", usage.InputTokens),
		slog.Int("output_tokens", usage.OutputTokens))
	fmt.Println("Bye.")
}

// chat runs the conversational loop until the user exits, stdin closes, the
// context is canceled, or the MCP connection is lost.
func chat(ctx context.Context, runner *agent.Runner, logger *slog.Logger) {
	// Reading stdin in a goroutine keeps the loop responsive to SIGINT while
	// blocked at the prompt.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case input, ok := <-lines:
			if !ok {
				// stdin closed (EOF)
				fmt.Println()
				return
			}
			line = input
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit":
			return
		}

		reply, err := runner.Send(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if domain.KindOf(err) == domain.KindConnection {
				logger.Error("Lost connection to MCP server.", slog.Any("error", err))
				fmt.Println("\nLost connection to the MCP server, exiting.")
				return
			}
			logger.Warn("Request failed.", slog.Any("error", err))
			fmt.Printf("\nSorry, I ran into an error: %v\n\n", err)
			continue
		}

		fmt.Printf("\nAssistant: %s\n\n", reply)
	}
}
