package bootstrap

import (
	"log"

	"github.com/Darshan-360/service-checkout/internal/config"
	"github.com/Darshan-360/service-checkout/internal/handler"
	"github.com/Darshan-360/service-checkout/internal/platform/logger"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// RunFunction serves op as a serverless function. It blocks for the life of the runtime.
func RunFunction(op handler.Operation) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewNamed(cfg.AppEnv, string(op))
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	app, err := Build(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to build checkout service", zap.Error(err))
	}
	defer app.Close()

	lambda.Start(handler.NewLambdaHandler(app.CheckoutHandler, op, zapLogger).Handle)
}
