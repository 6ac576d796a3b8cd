package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	godotenv "github.com/joho/godotenv"
)

// Config carries the pipeline's fixed parameters. Provisioning owns the
// values; consumers treat them as read-only.
type Config struct {
	RabbitMqURL    string
	ImageTableName string
	MailFrom       string
	MailTo         string
	AwsBucketName  string
	RedisAddr      string

	BatchSize       int
	BatchWindow     time.Duration
	MaxReceiveCount int
	PollInterval    time.Duration
}

func InitializeEnvs() (*Config, error) {
	switch os.Getenv("APP_ENV") {
	case "docker":
		if err := godotenv.Overload(".env.docker"); err == nil {
			log.Println("Loaded .env.docker")
		} else {
			log.Println(".env.docker not found, using existing environment")
		}
	default:
		if err := godotenv.Overload(".env"); err == nil {
			log.Println("Loaded .env")
		} else {
			log.Println("No .env found, using system environment variables")
		}
	}

	url := os.Getenv("RABBITMQ_URL")
	aws_region := os.Getenv("AWS_REGION")
	table := os.Getenv("IMAGE_TABLE_NAME")
	mail_from := os.Getenv("MAIL_FROM")
	mail_to := os.Getenv("MAIL_TO")

	if url == "" || aws_region == "" || table == "" || mail_from == "" || mail_to == "" {
		return nil, fmt.Errorf("RABBITMQ_URL or AWS_REGION or IMAGE_TABLE_NAME or MAIL_FROM or MAIL_TO is missing")
	}

	config := &Config{
		RabbitMqURL:     url,
		ImageTableName:  table,
		MailFrom:        mail_from,
		MailTo:          mail_to,
		AwsBucketName:   os.Getenv("AWS_BUCKET_NAME"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		BatchSize:       intEnv("BATCH_SIZE", 5),
		BatchWindow:     time.Duration(intEnv("BATCH_WINDOW_SECONDS", 10)) * time.Second,
		MaxReceiveCount: intEnv("MAX_RECEIVE_COUNT", 1),
		PollInterval:    time.Duration(intEnv("POLL_INTERVAL_SECONDS", 30)) * time.Second,
	}
	return config, nil
}

func intEnv(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("invalid %s=%q, using default %d", name, raw, fallback)
		return fallback
	}
	return value
}
