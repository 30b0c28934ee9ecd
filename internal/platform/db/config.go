package db

import (
	"errors"
	"fmt"
	"os"
)

// ErrMissingPassword is returned when required password environment variables are not set.
var ErrMissingPassword = errors.New("required password environment variable not set")

// Config holds connection settings for the node's two optional durable
// backends: Postgres for the audit trail, Mongo for the route cache.
// Neither is required for the forwarding engine itself to run.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MongoHost     string
	MongoPort     string
	MongoUser     string
	MongoPassword string
	MongoDB       string
}

// isDevelopmentMode returns true if ASGARD_ENV is set to "development".
func isDevelopmentMode() bool {
	return os.Getenv("ASGARD_ENV") == "development"
}

// LoadConfig loads database configuration from environment variables.
// In production mode, password environment variables are required and will
// cause an error if not set. In development mode, default values are used.
func LoadConfig() (*Config, error) {
	isDev := isDevelopmentMode()

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	mongoPassword := os.Getenv("MONGO_PASSWORD")

	if !isDev {
		var missing []string
		if postgresPassword == "" {
			missing = append(missing, "POSTGRES_PASSWORD")
		}
		if mongoPassword == "" {
			missing = append(missing, "MONGO_PASSWORD")
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %v (set ASGARD_ENV=development to use defaults)", ErrMissingPassword, missing)
		}
	} else {
		if postgresPassword == "" {
			postgresPassword = "dev_postgres_password"
			fmt.Println("[CONFIG] WARNING: Using default POSTGRES_PASSWORD for development")
		}
		if mongoPassword == "" {
			mongoPassword = "dev_mongo_password"
			fmt.Println("[CONFIG] WARNING: Using default MONGO_PASSWORD for development")
		}
	}

	cfg := &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "55432"),
		PostgresUser:     getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword: postgresPassword,
		PostgresDB:       getEnv("POSTGRES_DB", "cgrsat"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MongoHost:     getEnv("MONGO_HOST", "localhost"),
		MongoPort:     getEnv("MONGO_PORT", "27018"),
		MongoUser:     getEnv("MONGO_USER", "admin"),
		MongoPassword: mongoPassword,
		MongoDB:       getEnv("MONGO_DB", "cgrsat"),
	}

	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresSSLMode,
	)
}

func (c *Config) MongoURI() string {
	return fmt.Sprintf(
		"mongodb://%s:%s@%s:%s/%s?authSource=admin",
		c.MongoUser,
		c.MongoPassword,
		c.MongoHost,
		c.MongoPort,
		c.MongoDB,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
