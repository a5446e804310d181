package messaging

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := getName(prefix, topic)
	q, err := ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, err
	}
	err = ch.QueueBind(q.Name, name, name, false, nil)
	if err != nil {
		return nil, err
	}
	return ch.Consume(
		q.Name,
		"",
		false,
		true,
		false,
		false,
		nil,
	)
}

// ListenToTopic decodes every delivery on topic into V and hands it to fn.
// Messages that do not decode are dropped, failures from fn are requeued once.
func ListenToTopic[V any](ch *amqp.Channel, prefix string, topic ChangeTopic, fn func(V) error) error {
	msgs, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func() {
		defer ch.Close()
		for d := range msgs {
			err := handleDelivery(d.Body, fn)
			switch {
			case err == nil:
				_ = d.Ack(false)
			case isDecodeError(err):
				log.Printf("dropping malformed %s message: %v", topic, err)
				_ = d.Nack(false, false)
			default:
				log.Printf("error processing %s message: %v", topic, err)
				_ = d.Nack(false, !d.Redelivered)
			}
		}
	}()
	return nil
}

type decodeError struct {
	err error
}

func (e decodeError) Error() string {
	return e.err.Error()
}

func (e decodeError) Unwrap() error {
	return e.err
}

func isDecodeError(err error) bool {
	_, ok := err.(decodeError)
	return ok
}

func handleDelivery[V any](body []byte, fn func(V) error) error {
	var msg V
	if err := json.Unmarshal(body, &msg); err != nil {
		return decodeError{err: err}
	}
	return fn(msg)
}
