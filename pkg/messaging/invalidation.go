package messaging

import (
	"context"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type RabbitConfig struct {
	Url    string
	Prefix string
	Origin string
}

// CategoryInvalidation keeps category caches of all instances in step: it
// drops the local cache when any instance announces a taxonomy change.
type CategoryInvalidation struct {
	RabbitConfig
	Target Invalidator
	conn   *amqp.Connection
}

func (c *CategoryInvalidation) Connect() error {
	conn, err := amqp.DialConfig(c.Url, amqp.Config{
		Properties: amqp.NewConnectionProperties(),
	})
	if err != nil {
		return err
	}
	c.conn = conn
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	if err = DefineTopic(ch, c.Prefix, CategoriesChanged); err != nil {
		return err
	}
	err = ListenToTopic(ch, c.Prefix, CategoriesChanged, c.handle)
	if err != nil {
		return err
	}
	log.Printf("listening for %s", getName(c.Prefix, CategoriesChanged))
	return nil
}

func (c *CategoryInvalidation) handle(msg CategoriesChangedMessage) error {
	log.Printf("filter categories changed by %s: %s", msg.Origin, msg.Reason)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Target.Invalidate(ctx)
}

// Publish announces a taxonomy change to every listening instance,
// including this one.
func (c *CategoryInvalidation) Publish(ctx context.Context, reason string) error {
	return SendChange(ctx, c.conn, c.Prefix, CategoriesChanged, CategoriesChangedMessage{
		Origin: c.Origin,
		Reason: reason,
		At:     time.Now(),
	})
}

func (c *CategoryInvalidation) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
