package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
)

const (
	DefaultExchange          = "account.events"
	DefaultVerifyRoutingKey  = "account.verify_email.requested"
	defaultPublishTimeout    = 2 * time.Second
	defaultReturnGracePeriod = 25 * time.Millisecond
)

// amqpChannel is the subset of *amqp.Channel the publisher drives.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Options struct {
	Exchange         string
	VerifyRoutingKey string
}

// Publisher sends account events to a topic exchange with publisher confirms
// and mandatory routing, so an unroutable or nacked message is reported as an error.
type Publisher struct {
	url        string
	exchange   string
	verifyKey  string
	returnWait time.Duration

	mu sync.Mutex

	conn *amqp.Connection
	ch   amqpChannel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return

	// dial is replaced in tests
	dial func() error
}

func NewPublisher(url string, opts Options) (*Publisher, error) {
	p := newPublisher(url, opts)
	p.dial = p.connect
	if err := p.dial(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(url string, opts Options) *Publisher {
	if opts.Exchange == "" {
		opts.Exchange = DefaultExchange
	}
	if opts.VerifyRoutingKey == "" {
		opts.VerifyRoutingKey = DefaultVerifyRoutingKey
	}
	return &Publisher{
		url:        url,
		exchange:   opts.Exchange,
		verifyKey:  opts.VerifyRoutingKey,
		returnWait: defaultReturnGracePeriod,
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// ---- account.EventPublisher ----

func (p *Publisher) PublishVerifyEmail(ctx context.Context, evt account.VerifyEmailEvent) error {
	return p.publishJSON(ctx, p.verifyKey, evt)
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Declare topic exchange (idempotent).
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.ch != nil && (p.conn == nil || !p.conn.IsClosed()) {
		return nil
	}
	return p.dial()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// Drain stale confirms / returns so results are not mixed across publishes.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		p.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	select {
	case ret := <-p.returnCh:
		return unroutable(routingKey, ret)

	case conf, ok := <-p.confirmCh:
		if !ok {
			p.resetConn()
			return fmt.Errorf("rabbitmq channel closed awaiting confirm: key=%s", routingKey)
		}
		// The broker sends basic.return before basic.ack, but the client
		// delivers them on separate channels.
		select {
		case ret := <-p.returnCh:
			return unroutable(routingKey, ret)
		case <-time.After(p.returnWait):
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err())
	}
}

func unroutable(routingKey string, ret amqp.Return) error {
	return fmt.Errorf(
		"rabbitmq unroutable: key=%s code=%d text=%s",
		routingKey, ret.ReplyCode, ret.ReplyText,
	)
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
