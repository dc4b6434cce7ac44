package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"lawrag/internal/model"
)

// TaskPublisher enqueues parse tasks for the ingestion worker. A task
// is considered accepted as soon as the broker confirms the publish.
type TaskPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewTaskPublisher(conn *amqp.Connection, queueName string) *TaskPublisher {
	return &TaskPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *TaskPublisher) Publish(ctx context.Context, task model.ParseTask) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal parse task failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish parse task failed: %w", err)
	}
	return nil
}
