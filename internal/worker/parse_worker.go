package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"lawrag/internal/ingest"
	"lawrag/internal/model"
)

// ParseWorker consumes parse tasks from the queue and runs the
// ingestion pipeline for each one. Pipeline failures are terminal for
// the document (its row is marked FAILED), so the delivery is acked
// either way; only undecodable payloads are rejected.
type ParseWorker struct {
	conn      *amqp.Connection
	pipeline  *ingest.Pipeline
	queueName string
	logger    *zap.SugaredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewParseWorker(conn *amqp.Connection, pipeline *ingest.Pipeline, queueName string, logger *zap.SugaredLogger) *ParseWorker {
	return &ParseWorker{
		conn:      conn,
		pipeline:  pipeline,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *ParseWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var task model.ParseTask
				if err := json.Unmarshal(d.Body, &task); err != nil {
					w.logger.Errorw("worker decode parse task failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.pipeline.Process(workerCtx, task); err != nil {
					w.logger.Errorw("worker parse task failed",
						"document_id", task.DocumentID, "error", err)
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *ParseWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
