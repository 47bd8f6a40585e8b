package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	Path        string `mapstructure:"path"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
	Migrate     bool   `mapstructure:"migrate"`
	// SeedFile preloads the in-memory store with a JSON object of user ID to data
	SeedFile    string `mapstructure:"seed_file"`
}

// AuthConfig selects how bearer tokens are resolved: locally with the
// Supabase JWT secret when set, otherwise through the Supabase Auth API.
type AuthConfig struct {
	SupabaseURL string `mapstructure:"supabase_url"`
	AnonKey     string `mapstructure:"anon_key"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

type OpenAIConfig struct {
	APIKey                 string        `mapstructure:"api_key"`
	BaseURL                string        `mapstructure:"base_url"`
	ChatAssistantID        string        `mapstructure:"chat_assistant_id"`
	DescriptionAssistantID string        `mapstructure:"description_assistant_id"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	RunTimeout             time.Duration `mapstructure:"run_timeout"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		if _, err := fmt.Sscanf(u.Port(), "%d", &port); err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", u.Port())
		}
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads path when it exists and applies environment overrides on top
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.path", "/")
	v.SetDefault("server.environment", "production")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("database.migrate", false)
	v.SetDefault("openai.poll_interval", time.Second)
	v.SetDefault("openai.run_timeout", time.Duration(0))

	// Enable environment variable support
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		dbConfig.UseInMemory = config.Database.UseInMemory
		dbConfig.Migrate = config.Database.Migrate
		dbConfig.SeedFile = config.Database.SeedFile
		config.Database = dbConfig
	}

	// Get other environment variables
	overrides := map[string]*string{
		"OPENAI_API_KEY":                  &config.OpenAI.APIKey,
		"OPENAI_BASE_URL":                 &config.OpenAI.BaseURL,
		"OPENAI_CHAT_ASSISTANT_ID":        &config.OpenAI.ChatAssistantID,
		"OPENAI_DESCRIPTION_ASSISTANT_ID": &config.OpenAI.DescriptionAssistantID,
		"SUPABASE_URL":                    &config.Auth.SupabaseURL,
		"SUPABASE_ANON_KEY":               &config.Auth.AnonKey,
		"SUPABASE_JWT_SECRET":             &config.Auth.JWTSecret,
		"APP_ENV":                         &config.Server.Environment,
	}
	for key, target := range overrides {
		if value := v.GetString(key); value != "" {
			*target = value
		}
	}

	if port := v.GetInt("PORT"); port != 0 {
		config.Server.Port = port
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	var missing []string
	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key")
	}
	if c.OpenAI.ChatAssistantID == "" {
		missing = append(missing, "openai.chat_assistant_id")
	}
	if c.OpenAI.DescriptionAssistantID == "" {
		missing = append(missing, "openai.description_assistant_id")
	}
	if c.Auth.JWTSecret == "" && (c.Auth.SupabaseURL == "" || c.Auth.AnonKey == "") {
		missing = append(missing, "auth.jwt_secret or auth.supabase_url+auth.anon_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
