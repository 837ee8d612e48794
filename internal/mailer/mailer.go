package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"
)

const (
	TemplateOrderConfirmation = "order_confirmation"
	TemplateCheckoutError     = "checkout_error"
	TemplateOperatorAlert     = "operator_alert"
)

// Message is a mail dispatch request: a template name plus the structured
// data the renderer needs. Delivery is asynchronous and best effort; the
// checkout flow never blocks on an actual SMTP conversation.
type Message struct {
	Template string                 `json:"template"`
	To       string                 `json:"to"`
	Data     map[string]interface{} `json:"data"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaMailer publishes mail requests to a topic consumed by the mail
// worker. There is no retry queue: a failed publish is logged and dropped.
type KafkaMailer struct {
	writer messageWriter
}

func NewKafkaMailer(topic string, brokers ...string) *KafkaMailer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaMailer{writer: w}
}

func (m *KafkaMailer) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail message: %w", err)
	}

	err = m.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(msg.Template)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish mail message: %w", err)
	}
	return nil
}

func (m *KafkaMailer) Close() {
	if closer, ok := m.writer.(*kafka.Writer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("error closing mail writer: %v", err)
		}
	}
}
