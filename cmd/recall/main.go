// ABOUTME: Entry point for the recall conversational memory server
// ABOUTME: Subcommands: serve, init, health, token

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/recallhq/recall/internal/agent"
	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/reason"
	"github.com/recallhq/recall/internal/search"
	"github.com/recallhq/recall/internal/session"
	"github.com/recallhq/recall/internal/templates"
	"github.com/recallhq/recall/internal/tools"
	"github.com/recallhq/recall/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                          _ _
  _ __ ___  ___ __ _ | | |
 | '__/ _ \/ __/ _' || | |
 | | |  __/ (_| (_| || | |
 |_|  \___|\___\__,_||_|_|
`

// getConfigPath returns the path to the recall config file.
// Priority: RECALL_CONFIG env var > XDG_CONFIG_HOME/recall/config.yaml > ~/.config/recall/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("RECALL_CONFIG"); envPath != "" {
		return envPath
	}
	return config.DefaultPath()
}

// getDataPath returns the path to the recall data directory.
// Priority: XDG_DATA_HOME/recall > ~/.local/share/recall
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "recall")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: recall <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the chat server")
		fmt.Println("  init     Create a new config file interactively")
		fmt.Println("  health   Check server health")
		fmt.Println("  token    Mint an API bearer token")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database: %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Model:    %s\n", cfg.Reasoning.Model)
	if cfg.Search.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Search:   enabled (%s)\n", cfg.Search.Language)
	}
	fmt.Println()

	logger.Info("starting recall",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"model", cfg.Reasoning.Model,
	)

	store, err := memory.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening memory store: %w", err)
	}
	defer store.Close()

	searcher := search.New(cfg.Search.Enabled, cfg.Search.Language)
	engine := reason.New(reason.Config{
		BaseURL:     cfg.Reasoning.BaseURL,
		APIKey:      cfg.Reasoning.APIKey,
		Model:       cfg.Reasoning.Model,
		Temperature: cfg.Reasoning.Temperature,
		MaxTokens:   cfg.Reasoning.MaxTokens,
		Timeout:     cfg.Reasoning.Timeout,
	})
	ag := agent.New(store, searcher, engine)

	manager := session.NewManager(cfg.Auth.Username, cfg.Reasoning.Model,
		session.WithLogger(logger))

	var library *templates.Library
	if cfg.Templates.Path != "" {
		library, err = templates.LoadFile(cfg.Templates.Path)
	} else {
		library, err = templates.Load()
	}
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.TokenSecret))
	server := web.NewServer(manager, ag, store, library, verifier, web.Options{
		Username:      cfg.Auth.Username,
		PasswordHash:  cfg.Auth.PasswordHash,
		TokenTTL:      cfg.Auth.TokenTTL,
		SearchEnabled: cfg.Search.Enabled,
		Models:        cfg.Reasoning.Models,
	})
	server.SetModelSwitch(engine.SetModel)

	registry := tools.NewRegistry()
	if err := registry.RegisterAll(tools.MemoryPack(store, nil)); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}
	server.SetToolRegistry(registry)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	base := cfg.Server.BaseURL
	if base == "" {
		addr := cfg.Server.HTTPAddr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		base = "http://" + addr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/healthz", nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	color.Green("✓ server healthy (%s)", base)
	return nil
}

// runToken mints a bearer token from the configured secret, for API use.
func runToken() error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	verifier := auth.NewJWTVerifier([]byte(cfg.Auth.TokenSecret))
	token, err := verifier.Generate(cfg.Auth.Username, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	fmt.Println(token)
	return nil
}

func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	reader := bufio.NewReader(os.Stdin)
	color.Cyan("recall setup")
	fmt.Println()

	httpAddr := prompt(reader, "HTTP listen address", ":8080")
	dbPath := prompt(reader, "Database path", filepath.Join(getDataPath(), "recall.db"))
	username := prompt(reader, "Username", "admin")

	password := prompt(reader, "Password", "")
	if password == "" {
		return fmt.Errorf("password is required")
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	model := prompt(reader, "Model", "gpt-4o-mini")
	searchEnabled := prompt(reader, "Enable web search? (y/n)", "y") == "y"

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("generating token secret: %w", err)
	}
	tokenSecret := base64.StdEncoding.EncodeToString(secretBytes)

	content := fmt.Sprintf(`server:
  http_addr: "%s"

database:
  path: "%s"

reasoning:
  base_url: "https://api.openai.com/v1"
  api_key: "${OPENAI_API_KEY}"
  model: "%s"

search:
  enabled: %t
  language: "ko"

auth:
  username: "%s"
  password_hash: "%s"
  token_secret: "%s"

logging:
  level: "info"
  format: "text"
`, httpAddr, dbPath, model, searchEnabled, username, passwordHash, tokenSecret)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	color.Green("✓ wrote %s", configPath)
	fmt.Println("Set OPENAI_API_KEY in the environment, then run: recall serve")
	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return defaultVal
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}
