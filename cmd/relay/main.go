package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/imrishuroy/go-ticketprint/internal/aws"
	"github.com/imrishuroy/go-ticketprint/internal/handlers"
	"github.com/imrishuroy/go-ticketprint/internal/logging"
)

func setupRouter(cfg handlers.RelayConfig, log zerolog.Logger) *gin.Engine {
	r := handlers.NewRouter(log)
	handlers.RegisterRelayRoutes(r, cfg)
	return r
}

// The relay runs in the cloud in front of the shop: the ordering platform
// posts to it and the shop's print server consumes the queue.
func main() {
	log := logging.New("print-relay", os.Getenv("LOG_LEVEL"), true)

	clients, err := aws.NewAWSClients(context.Background(), aws.Options{
		Region:   os.Getenv("AWS_REGION"),
		Endpoint: os.Getenv("AWS_ENDPOINT_OVERRIDE"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init aws clients")
	}

	queueURL := os.Getenv("PRINT_QUEUE_URL")
	if queueURL == "" {
		log.Fatal().Msg("PRINT_QUEUE_URL is required")
	}

	r := setupRouter(handlers.RelayConfig{
		Publisher: aws.NewPublisher(clients.SQS, queueURL),
		Secret:    os.Getenv("PRINT_SECRET"),
		Log:       log,
	}, log)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		log.Info().Str("addr", addr).Msg("running local server")
		if err := r.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("failed to run local server")
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
