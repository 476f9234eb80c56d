package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"rate-analysis-service/database"
	awspkg "rate-analysis-service/pkg/aws"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the rate analysis service.
type Config struct {
	Port        string
	Environment string
	JWTSecret   string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RateGatewayURL    string
	RateGatewayAPIKey string

	KafkaBrokers       []string
	KafkaAnalysisTopic string

	AnalysisSNSTopicARN string
	StatusQueueURL      string
	StatusQueueName     string
	ReportsBucket       string
}

// DatabaseConfig builds the Postgres settings from config values.
func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		Name:     c.PostgresDB,
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		SSLMode:  c.PostgresSSLMode,
		TimeZone: c.PostgresTimeZone,
	}
}

// LoadConfig reads configuration from environment variables with optional
// Secrets Manager override.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "UTC"),

		RateGatewayURL:    os.Getenv("RATE_GATEWAY_URL"),
		RateGatewayAPIKey: os.Getenv("RATE_GATEWAY_API_KEY"),

		KafkaBrokers:       splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaAnalysisTopic: getEnv("KAFKA_ANALYSIS_TOPIC", "analysis-events"),

		AnalysisSNSTopicARN: os.Getenv("ANALYSIS_SNS_TOPIC_ARN"),
		StatusQueueURL:      os.Getenv("ANALYSIS_STATUS_QUEUE_URL"),
		StatusQueueName:     os.Getenv("ANALYSIS_STATUS_QUEUE_NAME"),
		ReportsBucket:       os.Getenv("REPORTS_S3_BUCKET"),
	}

	// Override credentials from Secrets Manager when running on AWS
	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(context.Background()); err == nil {
			sm := awspkg.NewSecretsClient(awsCfg)
			if dbjson, err := sm.GetSecret(context.Background(), "rate-analysis/DB_CREDENTIALS"); err == nil && dbjson != "" {
				var m map[string]string
				if err := json.Unmarshal([]byte(dbjson), &m); err == nil {
					if v, ok := m["POSTGRES_USER"]; ok && v != "" {
						cfg.PostgresUser = v
					}
					if v, ok := m["POSTGRES_PASSWORD"]; ok && v != "" {
						cfg.PostgresPassword = v
					}
					if v, ok := m["POSTGRES_DB"]; ok && v != "" {
						cfg.PostgresDB = v
					}
					if v, ok := m["POSTGRES_HOST"]; ok && v != "" {
						cfg.PostgresHost = v
					}
					if v, ok := m["POSTGRES_PORT"]; ok && v != "" {
						cfg.PostgresPort = v
					}
				}
			}
			if v, err := sm.GetSecret(context.Background(), "rate-analysis/JWT_SECRET"); err == nil && v != "" {
				cfg.JWTSecret = v
			}
			if v, err := sm.GetSecret(context.Background(), "rate-analysis/RATE_GATEWAY_API_KEY"); err == nil && v != "" {
				cfg.RateGatewayAPIKey = v
			}
		}
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" || cfg.PostgresHost == "" {
		return nil, fmt.Errorf("database config incomplete")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
