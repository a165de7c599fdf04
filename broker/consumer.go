package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/caasmo/votecore/config"
)

// DeliveryHandler processes one decoded delivery body and reports how
// the consumer should settle it. Implemented by materialize.Handler;
// kept as an interface here the same way the teacher's
// queue/executor.JobHandler decouples dispatch from job-type logic.
type DeliveryHandler interface {
	Handle(ctx context.Context, body []byte) Outcome
}

// Outcome tells the consumer how to settle a delivery.
type Outcome int

const (
	// OutcomeAck acknowledges the delivery: it was processed
	// successfully or was a detected duplicate (spec.md invariant I5).
	OutcomeAck Outcome = iota
	// OutcomeRejectNoRequeue rejects the delivery straight to the DLQ
	// via the dead-letter exchange. materialize.Handler returns it for
	// malformed payloads and for every database error, including
	// transient ones that outlasted the store's own retries.
	OutcomeRejectNoRequeue
	// OutcomeRequeue nacks the delivery with requeue=true so the broker
	// redelivers it. The consumer places no bound on redeliveries;
	// materialize.Handler never returns this outcome.
	OutcomeRequeue
)

// Consumer runs the AMQP consume loop and offloads each delivery to a
// bounded worker pool sized to PrefetchCount, resolving spec.md
// section 9's "blocking I/O inside an event loop" design note via
// option (b): the event loop itself never blocks on a database or
// cache call, only on handing work to the pool.
type Consumer struct {
	cfg      config.Rabbitmq
	topology Topology
	handler  DeliveryHandler
	logger   *slog.Logger

	conn   *amqp.Connection
	ch     *amqp.Channel
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer builds a Consumer. Connection is established in Start,
// following the teacher's server.Daemon convention of deferring I/O
// to Start/Stop rather than the constructor (contrast with
// Publisher, whose constructor dials eagerly — the asymmetry mirrors
// the teacher's own queue.Scheduler vs network-client constructors).
func NewConsumer(cfg config.Rabbitmq, handler DeliveryHandler, logger *slog.Logger) *Consumer {
	return &Consumer{cfg: cfg, topology: topologyFromConfig(cfg), handler: handler, logger: logger}
}

// Name implements server.Daemon.
func (c *Consumer) Name() string { return "broker.consumer" }

// Start dials the broker, declares the topology, and begins consuming
// in a background goroutine. It does not retry the initial connect —
// server.Server surfaces a Start failure to its caller immediately —
// but the consume loop itself reconnects on connection-closed events
// after config.Rabbitmq.ReconnectDelay, mirroring
// original_source/workers/message_consumer.py's ioloop.call_later
// reconnect scheduling.
func (c *Consumer) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	if err := c.connect(); err != nil {
		cancel()
		return err
	}

	go c.run(ctx)
	return nil
}

// Stop implements server.Daemon.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("broker: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("broker: open channel: %w", err)
	}
	if err := declare(ch, c.topology); err != nil {
		ch.Close()
		conn.Close()
		return err
	}
	if err := ch.Qos(c.topology.PrefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("broker: set qos: %w", err)
	}
	c.conn, c.ch = conn, ch
	return nil
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	for {
		if err := c.consumeUntilClosed(ctx); err != nil {
			c.logger.Error("broker: consume loop ended", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ReconnectDelay):
		}

		if ctx.Err() != nil {
			return
		}
		c.logger.Info("broker: reconnecting")
		if err := c.connect(); err != nil {
			c.logger.Error("broker: reconnect failed", "err", err)
		}
	}
}

// consumeUntilClosed runs the worker-pool-backed consume loop until
// the channel closes (connection drop) or ctx is canceled.
func (c *Consumer) consumeUntilClosed(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.topology.QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("broker: consume: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.topology.PrefetchCount)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return g.Wait()
			}
			delivery := d
			g.Go(func() error {
				c.handle(gctx, delivery)
				return nil
			})
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	outcome := c.handler.Handle(ctx, d.Body)
	switch outcome {
	case OutcomeAck:
		if err := d.Ack(false); err != nil {
			c.logger.Error("broker: ack failed", "err", err)
		}
	case OutcomeRejectNoRequeue:
		if err := d.Reject(false); err != nil {
			c.logger.Error("broker: reject failed", "err", err)
		}
	case OutcomeRequeue:
		if err := d.Nack(false, true); err != nil {
			c.logger.Error("broker: nack failed", "err", err)
		}
	}
}
