package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/imageops/eda-pipeline/config"
	internalAws "github.com/imageops/eda-pipeline/internal/aws"
	"github.com/imageops/eda-pipeline/internal/cache"
	"github.com/imageops/eda-pipeline/internal/mailer"
	"github.com/imageops/eda-pipeline/internal/queue"
	"github.com/imageops/eda-pipeline/internal/queue/handlers"
	"github.com/imageops/eda-pipeline/internal/utils"
)

type App struct {
	config            *config.Config
	rabbitMqConn      *amqp.Connection
	imageTable        *internalAws.ImageTable
	mailer            *mailer.Mailer
	ingestConsumer    *queue.Consumer
	rejectionConsumer *queue.Consumer
}

// NewApp creates and initializes a new App instance with all dependencies.
// Clients are built once here and passed by reference into the consumers.
func NewApp(ctx context.Context) (*App, error) {
	envConfig, err := config.InitializeEnvs()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize environment config: %w", err)
	}

	awsConfig, err := config.InitializeAws(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AWS config: %w", err)
	}

	imageTable := internalAws.NewImageTable(internalAws.NewDynamoDBClient(awsConfig), envConfig.ImageTableName)
	sesMailer := mailer.NewMailer(internalAws.NewSESClient(awsConfig), envConfig.MailFrom)

	// Seen-filter is optional: without Redis every upsert goes through,
	// which is correct, just less cheap on redelivery.
	var seen handlers.SeenFilter
	if envConfig.RedisAddr != "" {
		seenFilter := cache.NewSeenFilter(redis.NewClient(&redis.Options{Addr: envConfig.RedisAddr}))
		if err := seenFilter.Ping(ctx); err != nil {
			log.Printf("redis not reachable at %s, continuing without seen-filter: %v", envConfig.RedisAddr, err)
		} else {
			seen = seenFilter
		}
	}

	conn, err := utils.NewRabbitMQClient(envConfig.RabbitMqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := utils.NewChannel(conn)
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	if err := queue.DeclareTopology(ch); err != nil {
		return nil, err
	}

	ingestConsumer := queue.NewConsumer(envConfig.RabbitMqURL, queue.ConsumerConfig{
		QueueName:       queue.PrimaryQueue,
		BatchSize:       envConfig.BatchSize,
		BatchWindow:     envConfig.BatchWindow,
		MaxReceiveCount: envConfig.MaxReceiveCount,
		OnExhausted:     queue.DeadLetter,
	}, handlers.NewIngestHandler(imageTable, seen))

	rejectionConsumer := queue.NewConsumer(envConfig.RabbitMqURL, queue.ConsumerConfig{
		QueueName:       queue.DeadLetterQueue,
		BatchSize:       envConfig.BatchSize,
		BatchWindow:     envConfig.BatchWindow,
		MaxReceiveCount: envConfig.MaxReceiveCount,
		OnExhausted:     queue.Drop,
	}, handlers.NewRejectionHandler(sesMailer, envConfig.MailTo))

	return &App{
		config:            envConfig,
		rabbitMqConn:      conn,
		imageTable:        imageTable,
		mailer:            sesMailer,
		ingestConsumer:    ingestConsumer,
		rejectionConsumer: rejectionConsumer,
	}, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.rabbitMqConn.Close()

	log.Println("Application initialized successfully")

	go func() {
		if err := app.ingestConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("ingest consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := app.rejectionConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Printf("rejection consumer stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down all consumers gracefully...")
}
