package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/JuampiHernandez/raave-outfit/internal/auth"
	"github.com/JuampiHernandez/raave-outfit/internal/config"
	"github.com/JuampiHernandez/raave-outfit/internal/handle"
	"github.com/JuampiHernandez/raave-outfit/internal/server"
	"github.com/JuampiHernandez/raave-outfit/internal/style"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// newCLIApp creates the CLI application. Config flags live on the app so
// every command sees them; each one also reads an environment variable.
func newCLIApp(in io.Reader, out io.Writer) *cli.App {
	app := &cli.App{
		Name:    "raave-outfit",
		Usage:   "RAAVE outfit generator API",
		Version: Version,
		Reader:  in,
		Writer:  out,
		Flags:   configFlags(config.Default()),
		Action:  runServe,
		Commands: []*cli.Command{
			serveCmd(),
			styleCmd(),
			resolveCmd(),
			hashPasswordCmd(),
			tokenCmd(),
		},
	}
	// Let main decide how to report errors; tests inspect them directly.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func configFlags(d config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Value: d.Port, Usage: "HTTP port", EnvVars: []string{"PORT"}},

		&cli.StringFlag{Name: "store", Value: d.StoreDriver, Usage: "Store driver: sqlite|postgres|redis", EnvVars: []string{"STORE_DRIVER"}},
		&cli.StringFlag{Name: "sqlite-path", Value: d.SQLitePath, Usage: "SQLite database file", EnvVars: []string{"SQLITE_PATH", "DB_PATH"}},
		&cli.StringFlag{Name: "postgres-dsn", Usage: "Postgres connection string", EnvVars: []string{"POSTGRES_DSN", "DATABASE_URL"}},
		&cli.StringFlag{Name: "redis-addr", Value: d.RedisAddr, Usage: "Redis host:port", EnvVars: []string{"REDIS_ADDR"}},
		&cli.StringFlag{Name: "redis-password", Usage: "Redis password", EnvVars: []string{"REDIS_PASSWORD"}},
		&cli.IntFlag{Name: "redis-db", Value: d.RedisDB, Usage: "Redis database number", EnvVars: []string{"REDIS_DB"}},

		&cli.StringFlag{Name: "gemini-api-key", Usage: "Gemini API key", EnvVars: []string{"GEMINI_API_KEY"}},
		&cli.StringFlag{Name: "gemini-model", Value: d.GeminiModel, Usage: "Gemini image model", EnvVars: []string{"GEMINI_MODEL"}},
		&cli.StringFlag{Name: "gemini-base-url", Value: d.GeminiBaseURL, Usage: "Gemini REST base URL", EnvVars: []string{"GEMINI_BASE_URL"}},
		&cli.DurationFlag{Name: "edit-timeout", Value: d.EditTimeout, Usage: "Upper bound for one image edit", EnvVars: []string{"EDIT_TIMEOUT"}},
		&cli.BoolFlag{Name: "dedupe", Value: d.DedupeGenerations, Usage: "Share in-flight generations per handle", EnvVars: []string{"DEDUPE_GENERATIONS"}},

		&cli.DurationFlag{Name: "probe-timeout", Value: d.ProbeTimeout, Usage: "Upper bound for one avatar strategy", EnvVars: []string{"PROBE_TIMEOUT"}},
		&cli.Int64Flag{Name: "placeholder-size", Value: d.PlaceholderSize, Usage: "Byte size of the avatar placeholder image", EnvVars: []string{"PLACEHOLDER_SIZE"}},
		&cli.StringFlag{Name: "talent-api-key", Usage: "Talent Protocol API key (enables that lookup)", EnvVars: []string{"TALENT_API_KEY"}},
		&cli.StringFlag{Name: "github-token", Usage: "GitHub token (enables the users API lookup)", EnvVars: []string{"GITHUB_TOKEN"}},

		&cli.StringFlag{Name: "admin-password-hash", Usage: "bcrypt hash of the admin password", EnvVars: []string{"ADMIN_PASSWORD_HASH"}},
		&cli.StringFlag{Name: "jwt-secret", Usage: "HMAC secret for admin tokens", EnvVars: []string{"JWT_SECRET"}},
		&cli.DurationFlag{Name: "token-ttl", Value: d.TokenTTL, Usage: "Admin token lifetime", EnvVars: []string{"TOKEN_TTL"}},

		&cli.StringFlag{Name: "public-url", Value: d.PublicURL, Usage: "Frontend origin for share pages", EnvVars: []string{"PUBLIC_URL"}},
		&cli.StringFlag{Name: "log-level", Value: d.LogLevel, Usage: "debug|info|warn|error", EnvVars: []string{"LOG_LEVEL"}},
		&cli.StringFlag{Name: "log-format", Value: d.LogFormat, Usage: "text|json", EnvVars: []string{"LOG_FORMAT"}},
	}
}

// configFromContext reads the app-level flags. Subcommand contexts see them
// through their lineage.
func configFromContext(c *cli.Context) config.Config {
	return config.Config{
		Port:              c.Int("port"),
		StoreDriver:       c.String("store"),
		SQLitePath:        c.String("sqlite-path"),
		PostgresDSN:       c.String("postgres-dsn"),
		RedisAddr:         c.String("redis-addr"),
		RedisPassword:     c.String("redis-password"),
		RedisDB:           c.Int("redis-db"),
		GeminiAPIKey:      c.String("gemini-api-key"),
		GeminiModel:       c.String("gemini-model"),
		GeminiBaseURL:     c.String("gemini-base-url"),
		EditTimeout:       c.Duration("edit-timeout"),
		DedupeGenerations: c.Bool("dedupe"),
		ProbeTimeout:      c.Duration("probe-timeout"),
		PlaceholderSize:   c.Int64("placeholder-size"),
		TalentAPIKey:      c.String("talent-api-key"),
		GitHubToken:       c.String("github-token"),
		AdminPasswordHash: c.String("admin-password-hash"),
		JWTSecret:         c.String("jwt-secret"),
		TokenTTL:          c.Duration("token-ttl"),
		PublicURL:         c.String("public-url"),
		LogLevel:          c.String("log-level"),
		LogFormat:         c.String("log-format"),
	}
}

// newLogger builds the slog handler the config asks for. Unknown levels
// fall back to info; Validate reports them for serve.
func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// serveCmd runs the HTTP server. It is also the app's default action.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API (default)",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg := configFromContext(c)
	logger := newLogger(cfg, c.App.ErrWriter)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create server: %v", err), 1)
	}
	if err := srv.Start(); err != nil {
		return cli.Exit(fmt.Sprintf("server error: %v", err), 1)
	}
	return nil
}

type styleOutput struct {
	Handle string `json:"handle"`
	Style  string `json:"style"`
	Index  int    `json:"index"`
}

// styleCmd prints the style a handle would be assigned.
func styleCmd() *cli.Command {
	return &cli.Command{
		Name:      "style",
		Usage:     "Print the outfit style assigned to a handle",
		ArgsUsage: "<handle>",
		Action: func(c *cli.Context) error {
			h, err := handle.Validate(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			styles, err := style.NewAssigner(style.DefaultStyles())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, styleOutput{
				Handle: h,
				Style:  styles.Assign(h).Name,
				Index:  styles.Index(h),
			})
		},
	}
}

// resolveCmd runs the avatar chain for a handle, the same one the API uses.
func resolveCmd() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a handle to an avatar URL",
		ArgsUsage: "<handle>",
		Action: func(c *cli.Context) error {
			h, err := handle.Validate(c.Args().First())
			if err != nil {
				return outputError(err)
			}
			cfg := configFromContext(c)
			resolver, err := server.NewAvatarResolver(cfg, newLogger(cfg, c.App.ErrWriter))
			if err != nil {
				return outputError(err)
			}
			fmt.Fprintln(c.App.Writer, resolver.Resolve(c.Context, h))
			return nil
		},
	}
}

// hashPasswordCmd prints a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func hashPasswordCmd() *cli.Command {
	return &cli.Command{
		Name:  "hash-password",
		Usage: "Hash an admin password (reads stdin unless --password is set)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password to hash"},
		},
		Action: func(c *cli.Context) error {
			pw := c.String("password")
			if pw == "" {
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return outputError(err)
				}
				pw = strings.TrimRight(string(data), "\r\n")
			}
			hash, err := auth.NewPasswordService().Hash(pw)
			if err != nil {
				return outputError(err)
			}
			fmt.Fprintln(c.App.Writer, hash)
			return nil
		},
	}
}

// tokenCmd mints an admin JWT with the configured secret, for scripts.
func tokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint an admin token",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime (defaults to --token-ttl)"},
		},
		Action: func(c *cli.Context) error {
			cfg := configFromContext(c)
			if cfg.JWTSecret == "" {
				return cli.Exit("JWT_SECRET is required", 1)
			}
			ttl := cfg.TokenTTL
			if d := c.Duration("ttl"); d > 0 {
				ttl = d
			}
			tokens, err := auth.NewTokenService(cfg.JWTSecret, ttl)
			if err != nil {
				return outputError(err)
			}
			token, err := tokens.Generate(auth.AdminSubject)
			if err != nil {
				return outputError(err)
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputError(err error) error {
	return cli.Exit(err.Error(), 1)
}
