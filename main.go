package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"omnichat/internal/chat"
	"omnichat/internal/config"
	"omnichat/internal/omnibot"
	"omnichat/internal/store"
	"omnichat/internal/terminal"
	"omnichat/internal/thread"
	"omnichat/internal/ui"
)

func main() {
	// Set the GetEnv function for config
	config.GetEnv = os.Getenv

	cfg := parseFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize components
	threadStore := store.New(cfg.StorePath)
	repo := thread.NewRepository(threadStore, threadStore.Load())
	client := omnibot.NewClient(cfg.ServerURL, cfg.StreamTimeout)
	controller := chat.NewController(repo, client)

	// Reachability check (non-fatal): the local history still works
	// offline, queries will just fail fast.
	warning := ""
	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 3*time.Second)
	if err := client.Health(healthCtx); err != nil {
		warning = fmt.Sprintf("server unreachable: %s", cfg.ServerURL)
		if cfg.Verbose {
			fmt.Fprintf(os.Stderr, "health check: %v\n", err)
		}
	}
	cancelHealth()

	if cfg.Plain || !terminal.IsTerminal() {
		runPlain(cfg, repo, client, warning)
		return
	}

	if err := ui.Run(controller, cfg, warning); err != nil {
		fmt.Fprintf(os.Stderr, "UI error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command-line flags over the configuration defaults
func parseFlags() *config.Config {
	cfg := config.NewConfig()

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Omnibot server URL")
	flag.StringVar(&cfg.StorePath, "store", cfg.StorePath, "Path of the persisted thread collection")
	flag.BoolVar(&cfg.Plain, "plain", cfg.Plain, "Plain line-mode instead of the TUI")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")

	timeoutSeconds := flag.Int("timeout", int(cfg.StreamTimeout/time.Second),
		"Overall timeout per exchange in seconds; bounds hung streams")

	flag.Parse()

	cfg.StreamTimeout = time.Duration(*timeoutSeconds) * time.Second
	return cfg
}

// runPlain is the non-TTY fallback: a line-oriented loop over the one-shot
// chat endpoint. Streaming and the ephemeral status only matter on an
// interactive screen.
func runPlain(cfg *config.Config, repo *thread.Repository, client *omnibot.Client, warning string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("omnichat (plain mode) — /new /threads /use /rename /delete /exit")
	if warning != "" {
		fmt.Println("warning:", warning)
	}

	divider := strings.Repeat("─", min(terminal.Width(), 72))
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := terminal.ReadUserInput(reader)
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit" || line == "exit" || line == "quit":
			return
		case line == "/new":
			id := mintOrLocal(ctx, cfg, repo, client)
			fmt.Println("new thread:", id)
			continue
		case line == "/threads":
			for i, t := range repo.Snapshot() {
				marker := " "
				if t.ID == repo.ActiveID() {
					marker = "*"
				}
				fmt.Printf("%s %2d  %s\n", marker, i+1, t.Title)
			}
			continue
		case strings.HasPrefix(line, "/use "):
			pickThread(repo, strings.TrimSpace(strings.TrimPrefix(line, "/use ")))
			continue
		case strings.HasPrefix(line, "/rename "):
			repo.Rename(repo.ActiveID(), strings.TrimPrefix(line, "/rename "))
			continue
		case line == "/delete":
			repo.Delete(repo.ActiveID())
			continue
		}

		tid := repo.ActiveID()
		if tid == "" {
			tid = mintOrLocal(ctx, cfg, repo, client)
		}

		repo.AppendMessage(tid, thread.Message{
			ID:      uuid.NewString(),
			Role:    thread.RoleUser,
			Content: line,
		})

		answer, err := client.ChatOnce(ctx, line, tid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
		fmt.Println(divider)

		repo.AppendMessage(tid, thread.Message{
			ID:      uuid.NewString(),
			Role:    thread.RoleAssistant,
			Content: answer,
		})
	}
}

// mintOrLocal creates a thread, preferring a server-minted id and falling
// back silently to a local one.
func mintOrLocal(ctx context.Context, cfg *config.Config, repo *thread.Repository, client *omnibot.Client) string {
	mintCtx, cancel := context.WithTimeout(ctx, cfg.MintTimeout)
	defer cancel()
	if minted, err := client.MintThread(mintCtx); err == nil && minted != "" {
		id, _ := repo.AdoptThread(minted)
		return id
	}
	id, _ := repo.NewThread()
	return id
}

// pickThread resolves a /use argument as a 1-based list index or an id.
func pickThread(repo *thread.Repository, arg string) {
	threads := repo.Snapshot()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(threads) {
		repo.SetActive(threads[n-1].ID)
		return
	}
	repo.SetActive(arg)
}
