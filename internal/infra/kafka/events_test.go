package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T) (*fakeAsyncProducer, *EventPublisher, *Producer) {
	t.Helper()
	asyncProducer := newFakeAsyncProducer()
	producer := newProducer(asyncProducer, config.KafkaSettings{TopicPrefix: "menu"}, zaptest.NewLogger(t))
	publisher := NewEventPublisher(producer, config.AppSettings{
		Name: "menu-accounts",
		Env:  "test",
	}, zaptest.NewLogger(t))
	return asyncProducer, publisher, producer
}

func receive(t *testing.T, producer *fakeAsyncProducer) (*sarama.ProducerMessage, map[string]any) {
	t.Helper()
	select {
	case msg := <-producer.input:
		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}
		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return msg, envelope
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
	return nil, nil
}

func TestPublishAccountActivated(t *testing.T) {
	asyncProducer, publisher, producer := newTestPublisher(t)
	defer producer.Close()

	activatedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	customer := "cus_123"
	event := domain.AccountActivatedEvent{
		EventID:           "evt-1",
		AccountID:         "acc-1",
		TenantID:          "tenant-1",
		Plan:              "silver",
		BillingCustomerID: &customer,
		ActivatedAt:       activatedAt,
	}

	if err := publisher.PublishAccountActivated(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountActivated returned error: %v", err)
	}

	msg, envelope := receive(t, asyncProducer)
	if msg.Topic != "menu.account.activated" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	key, _ := msg.Key.Encode()
	if string(key) != "acc-1" {
		t.Fatalf("expected message keyed by account, got %s", key)
	}
	if envelope["event_type"] != "account.activated" || envelope["aggregate_id"] != "acc-1" {
		t.Fatalf("unexpected envelope: %v", envelope)
	}
	if envelope["timestamp"] != activatedAt.Format(time.RFC3339Nano) {
		t.Fatalf("unexpected timestamp: %v", envelope["timestamp"])
	}

	payload, ok := envelope["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload not a map: %T", envelope["payload"])
	}
	if payload["tenant_id"] != "tenant-1" || payload["billing_customer_id"] != "cus_123" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, present := payload["billing_subscription_id"]; present {
		t.Fatalf("expected nil subscription to be omitted: %v", payload)
	}

	metadata, ok := envelope["metadata"].(map[string]any)
	if !ok || metadata["service"] != "menu-accounts" || metadata["environment"] != "test" {
		t.Fatalf("unexpected metadata: %v", envelope["metadata"])
	}
}

func TestPublishAccountCreated(t *testing.T) {
	asyncProducer, publisher, producer := newTestPublisher(t)
	defer producer.Close()

	event := domain.AccountCreatedEvent{
		AccountID: "acc-2",
		Email:     "a@b.com",
		Plan:      "gold",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := publisher.PublishAccountCreated(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountCreated returned error: %v", err)
	}

	msg, envelope := receive(t, asyncProducer)
	if msg.Topic != "menu.account.created" {
		t.Fatalf("unexpected topic: %s", msg.Topic)
	}
	if id, _ := envelope["event_id"].(string); id == "" {
		t.Fatal("expected generated event id")
	}
}

func TestPublishHonoursContextCancellation(t *testing.T) {
	asyncProducer, publisher, producer := newTestPublisher(t)
	defer producer.Close()

	asyncProducer.input <- &sarama.ProducerMessage{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := publisher.PublishAccountCreated(ctx, domain.AccountCreatedEvent{AccountID: "acc-3"}); err == nil {
		t.Fatal("expected cancelled context to abort publishing")
	}
}

func TestTopicName(t *testing.T) {
	producer := &Producer{cfg: config.KafkaSettings{TopicPrefix: "menu"}}
	if got := producer.TopicName("account.created"); got != "menu.account.created" {
		t.Fatalf("unexpected topic: %s", got)
	}
	if got := producer.TopicName("menu.account.created"); got != "menu.account.created" {
		t.Fatalf("expected prefix not to be doubled: %s", got)
	}
}
