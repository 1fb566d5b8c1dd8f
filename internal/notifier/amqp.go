package notifier

import (
	"carbid/utils"
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// bidExchange is the fanout exchange bid events are mirrored to. Any
// interested consumer binds its own queue to it.
const bidExchange = "auction.bids"

const publishTimeout = 5 * time.Second

// AMQPPublisher mirrors bid events to a RabbitMQ fanout exchange so
// out-of-process consumers (chat/notification services, analytics) can
// observe auctions without hitting the store. Publish failures are logged
// and swallowed: durability already succeeded by the time an event is
// broadcast, so a broken broker must never fail a bid.
type AMQPPublisher struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher creates a publisher for the given broker URL. No
// connection is made until the first broadcast.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{url: url}
}

// BroadcastBid implements Notifier.
func (p *AMQPPublisher) BroadcastBid(event BidEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		utils.Error("amqp: failed to marshal bid event", map[string]any{
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		utils.Warn("amqp: broker unavailable, bid event dropped", map[string]any{
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx,
		bidExchange, // exchange
		"",          // routing key ignored by fanout
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.CreatedAt,
			Body:         body,
		},
	)
	if err != nil {
		utils.Warn("amqp: publish failed, bid event dropped", map[string]any{
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
		p.reset()
	}
}

// Close tears down the broker connection.
func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// channel returns the open channel, dialing and declaring the exchange on
// first use or after a reset. Caller holds p.mu.
func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		bidExchange,
		"fanout",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p.conn = conn
	p.ch = ch
	return ch, nil
}

// reset drops the cached connection so the next broadcast redials. Caller
// holds p.mu.
func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
