package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	RPCPort        string   `mapstructure:"RPC_PORT"`
	RecordsAddr    string   `mapstructure:"RECORDS_ADDR"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	SourceHospital string   `mapstructure:"SOURCE_HOSPITAL"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("RPC_PORT", "50051")
	v.SetDefault("SOURCE_HOSPITAL", "hospital-local")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("RPC_PORT")
	v.BindEnv("RECORDS_ADDR")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("SOURCE_HOSPITAL")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret is required so that bearer tokens are actually verified.
// The gateway can run without DATABASE_URL when RECORDS_ADDR points at a
// remote records service; everything else needs the store.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}

	if c.DatabaseURL == "" && c.RecordsAddr == "" {
		return fmt.Errorf("DATABASE_URL is required unless RECORDS_ADDR is set")
	}

	return nil
}

// EffectiveJWTSecret returns the configured secret, falling back to a fixed
// development-only value when ENV=development and no secret is set.
func (c *Config) EffectiveJWTSecret() []byte {
	if c.JWTSecret == "" && c.IsDev() {
		return []byte("dev-secret")
	}
	return []byte(c.JWTSecret)
}
