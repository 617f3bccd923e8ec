package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/config"
	"github.com/coursehub/enrollment-api/pkg/helpers"
	"github.com/coursehub/enrollment-api/pkg/mailer"
)

// Consumes email jobs (welcome, enrollment_confirmed) from RabbitMQ and
// delivers them through Mailgun.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-notify", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	var sender mailer.Sender = logSender{logger: logger}
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			log.Fatal("Mailgun not configured")
		}
		sender = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch between workers
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			err := handle(ctx, sender, msg.Body)
			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, errPermanent):
				logger.WithError(err).Warn("dropping email job")
				_ = msg.Nack(false, false)
			default:
				logger.WithError(err).Warn("email job failed, requeueing")
				_ = msg.Nack(false, true)
			}
		}
	}()

	logger.WithFields(logrus.Fields{"queue": cfg.RabbitMQEmailQueue, "send": cfg.MailSendEnabled}).Info("notify worker listening")
	<-stop
	logger.Info("shutting down...")
	cancel()
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
