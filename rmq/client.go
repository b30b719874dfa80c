package rmq

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/tagtrainer/logger"
)

const hostEnv = "TAGGER_RMQ_HOST"

type Config struct {
	Host     string `envconfig:"TAGGER_RMQ_HOST" required:"true"`
	Port     string `envconfig:"TAGGER_RMQ_PORT" default:"5672"`
	Username string `envconfig:"TAGGER_RMQ_USERNAME" default:"guest"`
	Password string `envconfig:"TAGGER_RMQ_PASSWORD" default:"guest"`
	Exchange string `envconfig:"TAGGER_RMQ_EXCHANGE" default:""`
	Queue    string `envconfig:"TAGGER_RMQ_REPORT_QUEUE" default:"tagger-reports"`
}

// Configured reports whether a broker host is set in the environment.
func Configured() bool {
	host, ok := os.LookupEnv(hostEnv)
	return ok && host != ""
}

// Publisher sends messages to the report queue.
type Publisher struct {
	config  Config
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zerolog.Logger
}

func NewPublisher() (*Publisher, error) {
	rmqLogger := logger.NewLogger("RMQ client")
	config, err := readEnvironment()
	if err != nil {
		rmqLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	conn, channel, err := setup(getURL(config))
	if err != nil {
		return nil, fmt.Errorf("failed connection: %w", err)
	}
	if _, err := channel.QueueDeclare(
		config.Queue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", config.Queue, err)
	}
	if config.Exchange != "" {
		if err := channel.QueueBind(config.Queue, config.Queue, config.Exchange, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("bind queue %s: %w", config.Queue, err)
		}
	}
	return &Publisher{
		config:  config,
		conn:    conn,
		channel: channel,
		logger:  &rmqLogger,
	}, nil
}

// Publish sends body as a persistent JSON message. The amqp library does not
// take a context; an already cancelled ctx is reported without publishing.
func (p *Publisher) Publish(ctx context.Context, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.channel.Publish(
		p.config.Exchange,
		p.config.Queue,
		false,
		false,
		reportMessage(body, time.Now()))
	if err != nil {
		p.logger.Error().Err(err).Str("queue", p.config.Queue).Msg("Failed to publish message")
	}
	return err
}

func (p *Publisher) Close() {
	_ = p.channel.Close()
	_ = p.conn.Close()
}

func reportMessage(body []byte, now time.Time) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Body:         body,
	}
}

func readEnvironment() (Config, error) {
	var config Config
	err := envconfig.Process("", &config)
	return config, err
}

func getURL(config Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

func setup(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
