package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ComplaintRouted is emitted once a complaint has been accepted and routed.
type ComplaintRouted struct {
	TicketID    string    `json:"ticketId"`
	Category    string    `json:"category"`
	Directorate string    `json:"directorate"`
	Priority    string    `json:"priority,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type Publisher interface {
	PublishComplaintRouted(ctx context.Context, evt ComplaintRouted) error
}

type NopPublisher struct{}

func (NopPublisher) PublishComplaintRouted(ctx context.Context, evt ComplaintRouted) error {
	return nil
}

// amqpChannel is the subset of *amqp.Channel used for publishing.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	conn  *amqp.Connection
	ch    amqpChannel
	queue string
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *RabbitPublisher) PublishComplaintRouted(ctx context.Context, evt ComplaintRouted) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    evt.TicketID,
			Type:         "complaint.routed",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}
