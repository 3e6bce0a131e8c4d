// Package config defines the server settings, their flags and environment
// bindings, and validation.
//
// Every flag can be set from the environment: --log-level reads LOG_LEVEL,
// --conceptnet-rps reads CONCEPTNET_RPS and so on. Flags given on the
// command line win over the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/similarity"
)

// Provider names accepted in PROVIDER and PROVIDERS.
const (
	ProviderVectors    = "vectors"
	ProviderOpenAI     = "openai"
	ProviderConceptNet = "conceptnet"
	ProviderPgVector   = "pgvector"
)

var knownProviders = []string{ProviderVectors, ProviderOpenAI, ProviderConceptNet, ProviderPgVector}

// Config holds every server setting.
type Config struct {
	Port           int
	LogLevel       string
	LogFormat      string
	DBPath         string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	ClientOrigin   string
	AppEnv         string
	RequestTimeout time.Duration

	Provider         string
	Providers        []string
	VectorsFile      string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIDimensions int
	ConceptNetURL    string
	ConceptNetRPS    float64
	PgVectorDSN      string
	AdjustmentsFile  string
	Scaling          string
	ProviderScaling  map[string]string
	UnknownWords     string
	CacheSize        int

	SessionTTL time.Duration
	DailySalt  string
	WordsFile  string
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool { return c.AppEnv == "production" }

// RegisterServeFlags defines the server flags on fs, writing into c.
func RegisterServeFlags(fs *pflag.FlagSet, c *Config) {
	fs.IntVarP(&c.Port, "port", "p", 5175, "port to listen on (env: PORT)")
	fs.StringVar(&c.DBPath, "db-path", "./data/semantle.db", "SQLite database path (env: DB_PATH)")
	fs.StringVar(&c.JWTSecret, "jwt-secret", "dev_secret_change_me", "secret for auth tokens and session cookies (env: JWT_SECRET)")
	fs.IntVar(&c.JWTExpiresDays, "jwt-expires-days", 14, "auth token lifetime in days (env: JWT_EXPIRES_DAYS)")
	fs.StringVar(&c.CookieName, "cookie-name", "semantle_token", "auth cookie name (env: COOKIE_NAME)")
	fs.StringVar(&c.ClientOrigin, "client-origin", "http://localhost:5173", "allowed CORS origin (env: CLIENT_ORIGIN)")
	fs.StringVar(&c.AppEnv, "app-env", "development", "development or production (env: APP_ENV)")
	fs.DurationVar(&c.RequestTimeout, "request-timeout", 10*time.Second, "per-request handler timeout (env: REQUEST_TIMEOUT)")
	fs.StringVar(&c.UnknownWords, "unknown-words", string(game.UnknownReject), "unknown guess policy: reject or flag (env: UNKNOWN_WORDS)")
	fs.DurationVar(&c.SessionTTL, "session-ttl", 2*time.Hour, "idle time before a game session is dropped (env: SESSION_TTL)")
	fs.StringVar(&c.DailySalt, "daily-salt", "local_dev_salt", "salt for the daily word (env: DAILY_SALT)")
	fs.StringVar(&c.WordsFile, "words-file", "", "secret word list, one per line; embedded list if empty (env: WORDS_FILE)")
}

// RegisterProviderFlags defines logging and similarity flags shared by all commands.
func RegisterProviderFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVar(&c.LogLevel, "log-level", "info", "zerolog level (env: LOG_LEVEL)")
	fs.StringVar(&c.LogFormat, "log-format", "json", "json or console (env: LOG_FORMAT)")
	fs.StringVar(&c.Provider, "provider", ProviderVectors, "default similarity provider (env: PROVIDER)")
	fs.StringSliceVar(&c.Providers, "providers", nil, "providers to enable; defaults to --provider (env: PROVIDERS)")
	fs.StringVar(&c.VectorsFile, "vectors-file", "", "GloVe/word2vec text file; embedded vectors if empty (env: VECTORS_FILE)")
	fs.StringVar(&c.OpenAIAPIKey, "openai-api-key", "", "OpenAI API key (env: OPENAI_API_KEY)")
	fs.StringVar(&c.OpenAIModel, "openai-model", "text-embedding-3-small", "OpenAI embedding model (env: OPENAI_MODEL)")
	fs.IntVar(&c.OpenAIDimensions, "openai-dimensions", 256, "OpenAI embedding dimensions (env: OPENAI_DIMENSIONS)")
	fs.StringVar(&c.ConceptNetURL, "conceptnet-url", similarity.DefaultConceptNetURL, "ConceptNet API base URL (env: CONCEPTNET_URL)")
	fs.Float64Var(&c.ConceptNetRPS, "conceptnet-rps", 2, "ConceptNet requests per second, 0 for unlimited (env: CONCEPTNET_RPS)")
	fs.StringVar(&c.PgVectorDSN, "pgvector-dsn", "", "PostgreSQL DSN for the pgvector provider (env: PGVECTOR_DSN)")
	fs.StringVar(&c.AdjustmentsFile, "adjustments-file", "", "YAML pair similarity overrides (env: ADJUSTMENTS_FILE)")
	fs.StringVar(&c.Scaling, "scaling", string(similarity.ScalingLinear), "score scaling: linear, shifted or relative (env: SCALING)")
	fs.StringToStringVar(&c.ProviderScaling, "provider-scaling", map[string]string{ProviderConceptNet: string(similarity.ScalingShifted)},
		"per-provider scaling overrides, e.g. conceptnet=shifted,vectors=relative (env: PROVIDER_SCALING)")
	fs.IntVar(&c.CacheSize, "cache-size", 50000, "entries per score cache (env: CACHE_SIZE)")
}

// BindEnv fills every flag of fs not given on the command line from its
// environment variable.
func BindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// EnabledProviders returns Providers, or just Provider when none are listed.
func (c *Config) EnabledProviders() []string {
	var out []string
	for _, p := range c.Providers {
		p = strings.TrimSpace(p)
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{c.Provider}
	}
	if !slices.Contains(out, c.Provider) {
		out = append(out, c.Provider)
	}
	return out
}

// ScalingFor returns the scaling policy for provider: its override when one
// is set, otherwise Scaling.
func (c *Config) ScalingFor(provider string) string {
	if sc, ok := c.ProviderScaling[provider]; ok && sc != "" {
		return sc
	}
	return c.Scaling
}

// ValidateProviders checks the similarity settings.
func (c *Config) ValidateProviders() error {
	var errs []error
	for _, p := range c.EnabledProviders() {
		if !slices.Contains(knownProviders, p) {
			errs = append(errs, fmt.Errorf("unknown provider %q (want one of %s)", p, strings.Join(knownProviders, ", ")))
			continue
		}
		switch {
		case p == ProviderOpenAI && c.OpenAIAPIKey == "":
			errs = append(errs, errors.New("provider openai needs --openai-api-key"))
		case p == ProviderPgVector && c.PgVectorDSN == "":
			errs = append(errs, errors.New("provider pgvector needs --pgvector-dsn"))
		}
	}
	if _, err := similarity.ParseScaling(c.Scaling); err != nil {
		errs = append(errs, err)
	}
	for p, sc := range c.ProviderScaling {
		if !slices.Contains(knownProviders, p) {
			errs = append(errs, fmt.Errorf("provider scaling: unknown provider %q", p))
		}
		if _, err := similarity.ParseScaling(sc); err != nil {
			errs = append(errs, fmt.Errorf("provider scaling %s: %w", p, err))
		}
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid cache size: %d", c.CacheSize))
	}
	if c.ConceptNetRPS < 0 {
		errs = append(errs, fmt.Errorf("invalid conceptnet rps: %v", c.ConceptNetRPS))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q (want json or console)", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Validate checks every setting needed to serve.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateProviders(); err != nil {
		errs = append(errs, err)
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port))
	}
	if _, err := game.ParseUnknownPolicy(c.UnknownWords); err != nil {
		errs = append(errs, err)
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret must not be empty"))
	}
	if c.Production() && c.JWTSecret == "dev_secret_change_me" {
		errs = append(errs, errors.New("set JWT_SECRET in production"))
	}
	if c.JWTExpiresDays <= 0 {
		errs = append(errs, fmt.Errorf("invalid jwt expiry: %d days", c.JWTExpiresDays))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid request timeout: %s", c.RequestTimeout))
	}
	return errors.Join(errs...)
}
