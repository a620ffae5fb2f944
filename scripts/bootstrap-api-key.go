// Command bootstrap-api-key ensures a user exists and prints a fresh API key
// for it, so a new deployment can make its first authenticated request.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/model"
	"github.com/snerberd/snerberd/internal/repository"
)

type options struct {
	databaseURL string
	appEnv      string
	email       string
	name        string
	scopes      []string
	tier        string
	json        bool
}

type issued struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	KeyID     string   `json:"key_id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
	Tier      string   `json:"rate_limit_tier"`
}

func main() {
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	appEnv := flag.String("env", envOr("APP_ENV", "development"), "Application environment; production issues live keys")
	email := flag.String("email", "admin@snerberd.local", "Email of the user owning the key")
	name := flag.String("name", "bootstrap", "API key name")
	scopes := flag.String("scopes", "admin", "Comma-separated scopes (read,write,admin)")
	tier := flag.String("tier", model.TierUnlimited, "Rate limit tier (free,pro,unlimited)")
	format := flag.String("format", "plain", "Output format: plain or json")
	flag.Parse()

	if err := run(*databaseURL, *appEnv, *email, *name, *scopes, *tier, *format); err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap-api-key:", err)
		os.Exit(1)
	}
}

func run(databaseURL, appEnv, email, name, scopes, tier, format string) error {
	opts, err := parseOptions(databaseURL, appEnv, email, name, scopes, tier, format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, opts.databaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer repo.Close()

	out, err := issue(ctx, repo, opts)
	if err != nil {
		return err
	}
	return out.write(os.Stdout, opts.json)
}

// parseOptions validates everything that can be checked without a database.
func parseOptions(databaseURL, appEnv, email, name, scopes, tier, format string) (options, error) {
	opts := options{
		databaseURL: databaseURL,
		appEnv:      appEnv,
		email:       email,
		name:        name,
		tier:        tier,
	}
	if databaseURL == "" {
		return opts, errors.New("DATABASE_URL is required")
	}

	var err error
	if opts.scopes, err = parseScopes(scopes); err != nil {
		return opts, err
	}
	if _, ok := model.TierConfigs[tier]; !ok {
		return opts, fmt.Errorf("invalid tier: %s", tier)
	}

	switch strings.ToLower(format) {
	case "plain":
	case "json":
		opts.json = true
	default:
		return opts, fmt.Errorf("invalid format %q; use plain or json", format)
	}
	return opts, nil
}

func issue(ctx context.Context, repo *repository.Repository, opts options) (*issued, error) {
	user, err := repo.GetOrCreateUser(ctx, opts.email)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	gen, err := auth.GenerateAPIKey(auth.EnvForAppEnv(opts.appEnv))
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}

	key := &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        user.ID,
		KeyHash:       gen.Hash,
		KeyPrefix:     gen.Prefix,
		Scopes:        opts.scopes,
		RateLimitTier: opts.tier,
		Name:          opts.name,
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}

	return &issued{
		UserID:    user.ID,
		Email:     user.Email,
		KeyID:     key.ID,
		Key:       gen.Plaintext,
		KeyPrefix: key.KeyPrefix,
		Scopes:    key.Scopes,
		Tier:      key.RateLimitTier,
	}, nil
}

// write prints only the plaintext key unless asJSON is set, so the plain
// form can be captured directly by a shell.
func (o *issued) write(w io.Writer, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, o.Key)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}

func parseScopes(input string) ([]string, error) {
	scopes, err := model.NormalizeScopes(strings.Split(input, ","))
	if err != nil {
		return nil, err
	}
	if len(scopes) == 0 {
		scopes = []string{model.ScopeAdmin}
	}
	return scopes, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
