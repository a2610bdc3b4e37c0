// Command mailer drains the activation queue and delivers each message
// through SendGrid.  Run it next to the server when NOTIFIER=amqp.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/config"
	"github.com/iliyamo/signup-activation/internal/notifier"
	"github.com/iliyamo/signup-activation/internal/queue"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadMailConfig()

	logger := log.New("mailer")
	logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}"}`)
	logger.SetLevel(log.INFO)

	if cfg.SendGridAPIKey == "" {
		logger.Warn("SENDGRID_API_KEY not set; every delivery will be rejected")
	}
	sender := notifier.NewSendGrid(cfg.SendGridAPIKey, cfg.SendGridURL, cfg.FromEmail, cfg.FromName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("consuming %s", queue.ActivationQueueName)
	err := queue.NewConsumer(cfg.AMQPURL, sender, logger).Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal(err)
	}
}
