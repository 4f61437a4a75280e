package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"signup/internal/identity"
	platformstrings "signup/pkg/platform/strings"
)

// Profile store backends.
const (
	ProfileStoreREST     = "rest"
	ProfileStorePostgres = "postgres"
	ProfileStoreMemory   = "memory"
)

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Server   Server
	Log      Log
	Identity Identity
	Profile  Profile
	App      App
	Redis    RedisConfig
	Audit    Audit

	CompensateOrphans bool
	GuardTTL          time.Duration
	// SubmitTimeout bounds the remote sequence; zero leaves it to the remote
	// services' own limits.
	SubmitTimeout time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

type Log struct {
	Level  string
	Format string
}

// Identity points at the hosted identity service. An empty URL selects the
// in-memory service.
type Identity struct {
	URL        string
	APIKey     string
	ServiceKey string
	Timeout    time.Duration
}

type Profile struct {
	Store       string
	URL         string
	Table       string
	DatabaseURL string
}

// App describes the front end the verification link returns to.
type App struct {
	Origin          string
	EmailRedirectTo string
	LoginURL        string
}

// RedisConfig enables the cross-instance submission guard when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit enables the Kafka audit sink when brokers are set.
type Audit struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	r := envReader{}
	cfg := Config{
		Server: Server{Addr: r.str("SIGNUP_ADDR", ":8080")},
		Log: Log{
			Level:  r.str("LOG_LEVEL", "info"),
			Format: r.str("LOG_FORMAT", "json"),
		},
		Identity: Identity{
			URL:        strings.TrimRight(r.str("IDENTITY_URL", ""), "/"),
			APIKey:     r.str("IDENTITY_API_KEY", ""),
			ServiceKey: r.str("IDENTITY_SERVICE_KEY", ""),
			Timeout:    r.duration("IDENTITY_TIMEOUT", 10*time.Second),
		},
		Profile: Profile{
			Store:       r.str("PROFILE_STORE", ""),
			URL:         strings.TrimRight(r.str("PROFILE_STORE_URL", ""), "/"),
			Table:       r.str("PROFILE_TABLE", "profiles"),
			DatabaseURL: r.str("DATABASE_URL", ""),
		},
		App: App{
			Origin:          strings.TrimRight(r.str("APP_ORIGIN", ""), "/"),
			EmailRedirectTo: r.str("EMAIL_REDIRECT_TO", ""),
			LoginURL:        r.str("LOGIN_URL", "/login"),
		},
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: Audit{
			KafkaBrokers: r.list("AUDIT_KAFKA_BROKERS"),
			KafkaTopic:   r.str("AUDIT_KAFKA_TOPIC", "signup.audit"),
		},
		CompensateOrphans: r.boolean("COMPENSATE_ORPHANS", false),
		GuardTTL:          r.duration("SUBMISSION_GUARD_TTL", 30*time.Second),
		SubmitTimeout:     r.duration("SUBMIT_TIMEOUT", 0),
	}

	if cfg.Profile.Store == "" {
		cfg.Profile.Store = defaultProfileStore(cfg)
	}
	if cfg.Profile.URL == "" {
		cfg.Profile.URL = cfg.Identity.URL
	}

	if err := errors.Join(r.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultProfileStore(cfg Config) string {
	switch {
	case cfg.Profile.DatabaseURL != "":
		return ProfileStorePostgres
	case cfg.Identity.URL != "" || cfg.Profile.URL != "":
		return ProfileStoreREST
	default:
		return ProfileStoreMemory
	}
}

// RedirectTarget is where the verification email links back to: the
// explicit override, else the app's login route.
func (c Config) RedirectTarget() string {
	if c.App.EmailRedirectTo != "" {
		return c.App.EmailRedirectTo
	}
	if c.App.Origin != "" {
		return c.App.Origin + "/login"
	}
	return ""
}

// UsesMemoryIdentity reports whether no identity service is configured.
func (c Config) UsesMemoryIdentity() bool {
	return c.Identity.URL == ""
}

// Validate checks cross-field rules that FromEnv cannot express.
func (c Config) Validate() error {
	var errs []error

	if !c.UsesMemoryIdentity() {
		if !govalidator.IsRequestURL(c.Identity.URL) {
			errs = append(errs, fmt.Errorf("IDENTITY_URL %q is not a valid URL", c.Identity.URL))
		}
		if c.Identity.APIKey == "" {
			errs = append(errs, errors.New("IDENTITY_API_KEY is required with IDENTITY_URL"))
		}
	}
	errs = append(errs, c.validateKeys()...)

	switch c.Profile.Store {
	case ProfileStoreREST:
		if !govalidator.IsRequestURL(c.Profile.URL) {
			errs = append(errs, fmt.Errorf("PROFILE_STORE_URL %q is not a valid URL", c.Profile.URL))
		}
	case ProfileStorePostgres:
		if c.Profile.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres profile store"))
		}
	case ProfileStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("PROFILE_STORE %q must be one of rest, postgres, memory", c.Profile.Store))
	}
	if !govalidator.Matches(c.Profile.Table, `^[A-Za-z_][A-Za-z0-9_]*$`) {
		errs = append(errs, fmt.Errorf("PROFILE_TABLE %q is not a valid table name", c.Profile.Table))
	}

	if c.App.Origin != "" && !govalidator.IsRequestURL(c.App.Origin) {
		errs = append(errs, fmt.Errorf("APP_ORIGIN %q is not a valid URL", c.App.Origin))
	}
	if c.App.EmailRedirectTo != "" && !govalidator.IsRequestURL(c.App.EmailRedirectTo) {
		errs = append(errs, fmt.Errorf("EMAIL_REDIRECT_TO %q is not a valid URL", c.App.EmailRedirectTo))
	}

	if c.CompensateOrphans && !c.UsesMemoryIdentity() && c.Identity.ServiceKey == "" {
		errs = append(errs, errors.New("COMPENSATE_ORPHANS needs IDENTITY_SERVICE_KEY"))
	}
	if c.SubmitTimeout < 0 {
		errs = append(errs, errors.New("SUBMIT_TIMEOUT must not be negative"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.Log.Format))
	}

	return errors.Join(errs...)
}

// validateKeys keeps the service key off the public signup path and makes
// sure the admin key can actually delete accounts.
func (c Config) validateKeys() []error {
	var errs []error
	if c.Identity.APIKey != "" {
		role, err := identity.InspectAPIKey(c.Identity.APIKey)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("IDENTITY_API_KEY: %w", err))
		case role == identity.RoleServiceRole:
			errs = append(errs, errors.New("IDENTITY_API_KEY must be the public key, not the service key"))
		}
	}
	if c.Identity.ServiceKey != "" {
		role, err := identity.InspectAPIKey(c.Identity.ServiceKey)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("IDENTITY_SERVICE_KEY: %w", err))
		case role != identity.RoleServiceRole && role != identity.RoleOpaque:
			errs = append(errs, fmt.Errorf("IDENTITY_SERVICE_KEY has role %q, want service_role", role))
		}
	}
	return errs
}

// envReader collects parse errors so FromEnv can report all of them at once.
type envReader struct {
	errs []error
}

func (r *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *envReader) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (r *envReader) list(key string) []string {
	return platformstrings.SplitList(os.Getenv(key), ",")
}
