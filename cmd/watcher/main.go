package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/imageops/eda-pipeline/config"
	internalAws "github.com/imageops/eda-pipeline/internal/aws"
	"github.com/imageops/eda-pipeline/internal/mailer"
	"github.com/imageops/eda-pipeline/internal/queue"
	"github.com/imageops/eda-pipeline/internal/topic"
	"github.com/imageops/eda-pipeline/internal/types"
	"github.com/imageops/eda-pipeline/internal/utils"
	"github.com/imageops/eda-pipeline/internal/watcher"
)

// The watcher process owns the publish side of the pipeline: it polls the
// bucket and runs the fan-out topic, including the direct success-mailer
// subscriber.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	envConfig, err := config.InitializeEnvs()
	if err != nil {
		log.Fatalf("failed to initialize environment config: %v", err)
	}
	if envConfig.AwsBucketName == "" {
		log.Fatal("AWS_BUCKET_NAME is missing")
	}

	awsConfig, err := config.InitializeAws(ctx)
	if err != nil {
		log.Fatalf("failed to initialize AWS config: %v", err)
	}

	s3Service := internalAws.NewS3Service(internalAws.NewS3Client(awsConfig), envConfig.AwsBucketName)
	sesMailer := mailer.NewMailer(internalAws.NewSESClient(awsConfig), envConfig.MailFrom)

	conn, err := utils.NewRabbitMQClient(envConfig.RabbitMqURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	ch, err := utils.NewChannel(conn)
	if err != nil {
		log.Fatal(err)
	}
	defer ch.Close()
	if err := queue.DeclareTopology(ch); err != nil {
		log.Fatal(err)
	}

	newImageTopic := topic.New(queue.TopicName, queue.NewPublisher(ch))
	newImageTopic.SubscribeQueue(queue.PrimaryQueue, topic.AllowList(types.ImageTypeAttribute, ".jpeg", ".png"))
	newImageTopic.SubscribeQueue(queue.DeadLetterQueue, topic.DenyList(types.ImageTypeAttribute, ".jpeg", ".png"))
	newImageTopic.SubscribeFunc(mailer.SuccessSubscriber(sesMailer, envConfig.MailTo))

	w := watcher.NewWatcher(s3Service, newImageTopic, envConfig.PollInterval)
	log.Printf("watching bucket %q every %s", envConfig.AwsBucketName, envConfig.PollInterval)
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("watcher stopped: %v", err)
	}
}
