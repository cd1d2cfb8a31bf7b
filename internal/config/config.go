package config

import (
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed samples.yaml
var samplesYAML []byte

type Config struct {
	Database   DatabaseConfig
	Search     SearchConfig
	Descriptor DescriptorConfig
	Storage    StorageConfig
	Auth       AuthConfig
	Web        WebConfig
	Legacy     LegacyConfig
	Samples    SamplesConfig
}

type DatabaseConfig struct {
	URL           string // PostgreSQL connection URL (empty selects the in-memory registry)
	MaxOpenConns  int    // Maximum open connections (default 25)
	MaxIdleConns  int    // Maximum idle connections (default 5)
	HNSWEnabled   bool   // Keep an in-memory HNSW graph next to pgvector
	HNSWIndexPath string // Path to persist the HNSW index (optional, if empty index is rebuilt on startup)
}

type SearchConfig struct {
	Threshold float64 // minimum similarity score, exclusive (default 0.3)
	Limit     int     // maximum number of face search results (default 50)
	// SynthesizeMissing scores records without a stored descriptor using an
	// identity-derived descriptor instead of skipping them.
	SynthesizeMissing bool
}

type DescriptorConfig struct {
	DetectorURL string        // face embedding server, e.g. http://localhost:8000 (optional)
	CacheTTL    time.Duration // lifetime of cached extraction results
}

type StorageConfig struct {
	Backend string // "local" or "minio"
	Dir     string // upload directory for the local backend
	MinIO   MinIOConfig
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type AuthConfig struct {
	Username string
	Password string // no default; serve refuses to start without one
}

// ErrAuthNotConfigured is returned by AuthConfig.Validate when no operator
// password is set.
var ErrAuthNotConfigured = errors.New("AUTH_PASSWORD environment variable is required")

// Validate checks that an operator account is configured.
func (a AuthConfig) Validate() error {
	if a.Username == "" || a.Password == "" {
		return ErrAuthNotConfigured
	}
	return nil
}

type WebConfig struct {
	AllowedOrigins []string // CORS origins allowed to call the API with credentials
	AllowLocalhost bool     // also allow any http(s)://localhost origin, for frontend development
	TrustProxy     bool     // take the client IP from X-Forwarded-For/X-Real-IP; only behind a reverse proxy
}

// LegacyConfig points at the MariaDB database of the previous registry,
// used by `missing-persons import legacy`.
type LegacyConfig struct {
	DatabaseURL string // e.g. registry:registry@tcp(mariadb:3306)/registry?parseTime=true
	Table       string
}

type SamplesConfig struct {
	People []SamplePerson `yaml:"people"`
}

// SamplePerson is one entry of the embedded sample dataset.
type SamplePerson struct {
	ID                     string  `yaml:"id"`
	Name                   string  `yaml:"name"`
	FatherName             string  `yaml:"father_name"`
	NationalID             string  `yaml:"national_id"`
	Gender                 string  `yaml:"gender"`
	Age                    int     `yaml:"age"`
	LostLocation           string  `yaml:"lost_location"`
	LostDate               string  `yaml:"lost_date"`
	LastSeenDate           string  `yaml:"last_seen_date"`
	Status                 string  `yaml:"status"`
	Height                 float64 `yaml:"height"`
	Weight                 float64 `yaml:"weight"`
	EyeColor               string  `yaml:"eye_color"`
	HairColor              string  `yaml:"hair_color"`
	DistinguishingFeatures string  `yaml:"distinguishing_features"`
	ContactPerson          string  `yaml:"contact_person"`
	ContactPhone           string  `yaml:"contact_phone"`
}

// SetDefaults registers default values on v. Keys match the environment
// variable names so AutomaticEnv resolves them without bindings.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database_max_open_conns", 25)
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("hnsw_enabled", true)
	v.SetDefault("search_match_threshold", constants.DefaultMatchThreshold)
	v.SetDefault("search_match_limit", constants.DefaultMatchLimit)
	v.SetDefault("search_synthesize_missing", false)
	v.SetDefault("descriptor_cache_ttl", constants.DescriptorCacheTTL)
	v.SetDefault("storage_backend", "local")
	v.SetDefault("storage_dir", "uploads")
	v.SetDefault("minio_bucket", "missing-persons")
	v.SetDefault("auth_username", "admin")
	v.SetDefault("web_allow_localhost", true)
	v.SetDefault("web_trust_proxy", false)
	v.SetDefault("legacy_table", "children")
}

// Load builds the configuration from the global viper instance.
func Load() *Config {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds the configuration from v: defaults, then the optional
// config file, then environment variables.
func LoadFrom(v *viper.Viper) *Config {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var samples SamplesConfig
	if err := yaml.Unmarshal(samplesYAML, &samples); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded samples.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:           v.GetString("database_url"),
			MaxOpenConns:  positiveInt(v, "database_max_open_conns", 25),
			MaxIdleConns:  positiveInt(v, "database_max_idle_conns", 5),
			HNSWEnabled:   v.GetBool("hnsw_enabled"),
			HNSWIndexPath: v.GetString("hnsw_index_path"),
		},
		Search: SearchConfig{
			Threshold:         clampThreshold(v.GetFloat64("search_match_threshold")),
			Limit:             positiveInt(v, "search_match_limit", constants.DefaultMatchLimit),
			SynthesizeMissing: v.GetBool("search_synthesize_missing"),
		},
		Descriptor: DescriptorConfig{
			DetectorURL: strings.TrimSuffix(v.GetString("face_detector_url"), "/"),
			CacheTTL:    v.GetDuration("descriptor_cache_ttl"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage_backend")),
			Dir:     v.GetString("storage_dir"),
			MinIO: MinIOConfig{
				Endpoint:  v.GetString("minio_endpoint"),
				AccessKey: v.GetString("minio_access_key"),
				SecretKey: v.GetString("minio_secret_key"),
				Bucket:    v.GetString("minio_bucket"),
				Prefix:    v.GetString("minio_prefix"),
				UseSSL:    v.GetBool("minio_use_ssl"),
			},
		},
		Auth: AuthConfig{
			Username: v.GetString("auth_username"),
			Password: v.GetString("auth_password"),
		},
		Web: WebConfig{
			AllowedOrigins: splitList(v.GetString("web_allowed_origins")),
			AllowLocalhost: v.GetBool("web_allow_localhost"),
			TrustProxy:     v.GetBool("web_trust_proxy"),
		},
		Legacy: LegacyConfig{
			DatabaseURL: v.GetString("legacy_database_url"),
			Table:       v.GetString("legacy_table"),
		},
		Samples: samples,
	}
}

// positiveInt reads key as a positive integer.
// Returns the default value if the key is unset or not positive.
func positiveInt(v *viper.Viper, key string, defaultVal int) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return defaultVal
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func clampThreshold(t float64) float64 {
	if t < 0 || t >= 1 {
		return constants.DefaultMatchThreshold
	}
	return t
}
