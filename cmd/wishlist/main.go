// ABOUTME: Entry point for the wishlist server
// ABOUTME: Provides serve, health, token and bootstrap commands

package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/wishlist/internal/config"
	"github.com/2389/wishlist/internal/gateway"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const banner = `
          _     _     _ _     _
__      _(_)___| |__ | (_)___| |_
\ \ /\ / / / __| '_ \| | / __| __|
 \ V  V /| \__ \ | | | | \__ \ |_
  \_/\_/ |_|___/_| |_|_|_|___/\__|
`

func usage() {
	fmt.Println("Usage: wishlist <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                      Start the server")
	fmt.Println("  health                     Check server readiness")
	fmt.Println("  token                      Print a random token for WISHLIST_API_TOKEN")
	fmt.Println("  bootstrap [--base-url URL] Write a config file with generated secrets")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	case "token":
		err = runToken(os.Stdout)
	case "bootstrap":
		err = runBootstrap(os.Args[2:])
	case "-h", "--help", "help":
		usage()
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
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if configPath == "" {
		configPath = "(none, using defaults and environment)"
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	} else {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	green.Print("    ▶ ")
	if cfg.OAuthEnabled() {
		fmt.Println("OAuth:     enabled")
	} else {
		fmt.Print("OAuth:     ")
		yellow.Println("disabled (set auth.jwt_secret)")
	}
	if cfg.Auth.APIToken == "" && !cfg.OAuthEnabled() {
		green.Print("    ▶ ")
		yellow.Println("No API token or OAuth configured: /mcp will reject every request")
	}
	fmt.Println()

	logger.Info("starting wishlist", "config", configPath, "http_addr", cfg.Server.HTTPAddr)

	gw, err := gateway.New(ctx, cfg, version, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}
	return gw.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := healthURL(cfg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("healthy")
	return nil
}

// healthURL points at the readiness endpoint of the configured listener.
func healthURL(cfg *config.Config) string {
	addr := cfg.Server.HTTPAddr
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if cfg.Tailscale.Enabled {
		addr = cfg.Tailscale.Hostname
	}
	return "http://" + addr + "/health/ready"
}

// randomSecret returns n random bytes encoded as URL-safe base64.
func randomSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func runToken(w io.Writer) error {
	token, err := randomSecret(32)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}

// bootstrapSecrets are the generated credentials written by bootstrap.
type bootstrapSecrets struct {
	APIToken        string
	ApprovePassword string
	JWTSecret       string
}

func newBootstrapSecrets() (*bootstrapSecrets, error) {
	var s bootstrapSecrets
	var err error
	if s.APIToken, err = randomSecret(32); err != nil {
		return nil, err
	}
	if s.ApprovePassword, err = randomSecret(12); err != nil {
		return nil, err
	}
	if s.JWTSecret, err = randomSecret(48); err != nil {
		return nil, err
	}
	return &s, nil
}

func renderBootstrapConfig(dbPath, baseURL string, s *bootstrapSecrets) string {
	return fmt.Sprintf(`# wishlist configuration
# Generated by wishlist bootstrap

server:
  http_addr: "127.0.0.1:8787"
  base_url: %q

database:
  path: %q

auth:
  api_token: %q
  approve_password: %q
  jwt_secret: %q

oauth:
  allowed_redirect_hosts: ["claude.ai", "claude.com", "localhost", "127.0.0.1"]

cors:
  allowed_origins: ["http://localhost:5173"]

logging:
  level: "info"
  format: "text"

metrics:
  enabled: false
  path: "/metrics"
`, baseURL, dbPath, s.APIToken, s.ApprovePassword, s.JWTSecret)
}

// runBootstrap writes a new config file with generated secrets. It refuses
// to overwrite an existing file.
func runBootstrap(args []string) error {
	var baseURL string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--base-url":
			if i+1 >= len(args) {
				return errors.New("--base-url requires a value")
			}
			baseURL = args[i+1]
			i++
		case strings.HasPrefix(arg, "--base-url="):
			baseURL = strings.TrimPrefix(arg, "--base-url=")
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			return fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	configPath := config.DefaultPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists: %s", configPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking config: %w", err)
	}

	secrets, err := newBootstrapSecrets()
	if err != nil {
		return err
	}
	dbPath := config.Default().Database.Path
	content := renderBootstrapConfig(dbPath, baseURL, secrets)

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// Validate what we wrote so a bad --base-url is caught now.
	if _, err := config.Load(configPath); err != nil {
		_ = os.Remove(configPath)
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	green.Printf("  ✓ Created config: %s\n", configPath)
	fmt.Println()
	cyan.Println("  Credentials")
	cyan.Println("  -----------")
	fmt.Printf("  API token:        %s\n", secrets.APIToken)
	fmt.Printf("  Approve password: %s\n", secrets.ApprovePassword)
	fmt.Println()
	yellow.Println("  Ready to go:")
	fmt.Println("    wishlist serve")
	if baseURL == "" {
		fmt.Println("    (set server.base_url before exposing OAuth to remote clients)")
	}
	fmt.Println()
	return nil
}
