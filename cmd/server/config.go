package main

import (
	"os"
	"strconv"
	"strings"
)

// Config carries every runtime option, sourced from the environment.
type Config struct {
	Addr            string
	DSN             string
	BaseURL         string
	Debug           bool
	SigningKey      string
	SigningMethod   string
	ContextKey      string
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string
	AccessTokenTTL  int
	RefreshTokenTTL int
	ResetTokenTTL   int
	SMTPAddr        string
	SMTPFrom        string
}

func LoadConfig() *Config {
	return &Config{
		Addr:            envOr("IDENTITY_ADDR", ":8572"),
		DSN:             envOr("IDENTITY_DSN", "file:identity.db?cache=shared"),
		BaseURL:         envOr("IDENTITY_BASE_URL", "http://localhost:8572"),
		Debug:           envOr("IDENTITY_DEBUG", "") != "",
		SigningKey:      envOr("IDENTITY_SIGNING_KEY", "dev-signing-key-change-me"),
		SigningMethod:   envOr("IDENTITY_SIGNING_METHOD", "HS256"),
		ContextKey:      envOr("IDENTITY_CONTEXT_KEY", "user"),
		TokenLookup:     envOr("IDENTITY_TOKEN_LOOKUP", "header:Authorization"),
		AuthScheme:      envOr("IDENTITY_AUTH_SCHEME", "Bearer"),
		Issuer:          envOr("IDENTITY_ISSUER", "go-identity"),
		Audience:        splitList(envOr("IDENTITY_AUDIENCE", "")),
		AccessTokenTTL:  envInt("IDENTITY_ACCESS_TTL_MINUTES", 15),
		RefreshTokenTTL: envInt("IDENTITY_REFRESH_TTL_DAYS", 7),
		ResetTokenTTL:   envInt("IDENTITY_RESET_TTL_MINUTES", 30),
		SMTPAddr:        envOr("IDENTITY_SMTP_ADDR", ""),
		SMTPFrom:        envOr("IDENTITY_SMTP_FROM", "no-reply@localhost"),
	}
}

func (c *Config) GetSigningKey() string    { return c.SigningKey }
func (c *Config) GetSigningMethod() string { return c.SigningMethod }
func (c *Config) GetContextKey() string    { return c.ContextKey }
func (c *Config) GetTokenLookup() string   { return c.TokenLookup }
func (c *Config) GetAuthScheme() string    { return c.AuthScheme }
func (c *Config) GetIssuer() string        { return c.Issuer }
func (c *Config) GetAudience() []string    { return c.Audience }
func (c *Config) GetAccessTokenTTL() int   { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() int  { return c.RefreshTokenTTL }
func (c *Config) GetResetTokenTTL() int    { return c.ResetTokenTTL }

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
