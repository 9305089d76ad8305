package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// KafkaNotifier publishes notices to Kafka topics keyed by recipient id. The
// actual push to a device or socket is a downstream consumer's job.
type KafkaNotifier struct {
	producer      sarama.SyncProducer
	courierTopic  string
	customerTopic string
}

// NewKafkaNotifier creates a Kafka-backed notifier. Returns nil (no error)
// when brokers are not configured.
func NewKafkaNotifier(brokers []string, courierTopic, customerTopic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 || courierTopic == "" || customerTopic == "" {
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("notify: new producer: %w", err)
	}

	return &KafkaNotifier{
		producer:      producer,
		courierTopic:  courierTopic,
		customerTopic: customerTopic,
	}, nil
}

type envelope struct {
	RecipientID uuid.UUID `json:"recipient_id"`
	Kind        string    `json:"kind"`
	Payload     any       `json:"payload"`
}

// CourierAssignment publishes an assignment notice for one courier.
func (k *KafkaNotifier) CourierAssignment(_ context.Context, courierID uuid.UUID, n AssignmentNotice) error {
	return k.publish(k.courierTopic, courierID, "assignment_broadcast", n)
}

// CustomerOTP publishes a delivery code notice for the customer.
func (k *KafkaNotifier) CustomerOTP(_ context.Context, userID uuid.UUID, n OTPNotice) error {
	return k.publish(k.customerTopic, userID, "delivery_otp", n)
}

func (k *KafkaNotifier) publish(topic string, recipient uuid.UUID, kind string, payload any) error {
	if k == nil {
		return nil
	}
	value, err := json.Marshal(envelope{RecipientID: recipient, Kind: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", kind, err)
	}
	_, _, err = k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(recipient.String()),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (k *KafkaNotifier) Close() error {
	if k == nil {
		return nil
	}
	return k.producer.Close()
}
