package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"log/slog"

	"github.com/IBM/sarama"
	"github.com/admin/tg-bots/shop-bot/internal/domain"
)

const (
	eventTypePurchase = "purchase"
	eventTypeTopUp    = "topup"
)

// Producer публикует события магазина в аналитический топик
type Producer struct {
	producer sarama.SyncProducer
	cfg      *Config
	log      *slog.Logger
}

// NewProducer создаёт новый Kafka producer
func NewProducer(cfg *Config, log *slog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	// Настройка безопасности (если указано)
	if cfg.SecurityProtocol == "SASL_SSL" || cfg.SecurityProtocol == "SASL_PLAINTEXT" {
		config.Net.SASL.Enable = true
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		if cfg.SASLMechanism == "SCRAM-SHA-256" {
			config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
		}
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword
		// TLS только для SASL_SSL
		if cfg.SecurityProtocol == "SASL_SSL" {
			config.Net.TLS.Enable = true
		}
	}

	producer, err := sarama.NewSyncProducer(cfg.GetBrokers(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
	)

	return &Producer{
		producer: producer,
		cfg:      cfg,
		log:      log,
	}, nil
}

// purchaseEvent событие продажи для аналитики
type purchaseEvent struct {
	PurchaseID string `json:"purchase_id"`
	BuyerID    int64  `json:"buyer_id"`
	ItemName   string `json:"item_name"`
	Price      string `json:"price"`
	BoughtAt   string `json:"bought_at"`
}

// PublishPurchase публикует событие состоявшейся продажи
func (p *Producer) PublishPurchase(ctx context.Context, purchase *domain.Purchase) error {
	event := purchaseEvent{
		PurchaseID: purchase.ID.String(),
		BuyerID:    purchase.BuyerID,
		ItemName:   purchase.ItemName,
		Price:      purchase.Price.StringFixed(2),
		BoughtAt:   purchase.BoughtAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	return p.send(purchase.ID.String(), eventTypePurchase, event)
}

// topUpEvent событие завершённого пополнения для аналитики
type topUpEvent struct {
	OperationID string `json:"operation_id"`
	UserID      int64  `json:"user_id"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	CreatedAt   string `json:"created_at"`
}

// PublishTopUp публикует событие завершённого пополнения
func (p *Producer) PublishTopUp(ctx context.Context, op *domain.Operation) error {
	event := topUpEvent{
		OperationID: op.ID,
		UserID:      op.UserID,
		Amount:      op.Amount.StringFixed(2),
		Kind:        string(op.Kind),
		CreatedAt:   op.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	return p.send(op.ID, eventTypeTopUp, event)
}

// send отправляет событие с типом в header
func (p *Producer) send(key, eventType string, event interface{}) error {
	valueBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.cfg.Topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(eventType),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.log.Debug("kafka send failed",
			"error", err,
			"topic", p.cfg.Topic,
			"key", key,
		)
		return fmt.Errorf("kafka send failed [topic=%s, key=%s]: %w",
			p.cfg.Topic, key, err)
	}

	p.log.Debug("event sent to kafka",
		"topic", p.cfg.Topic,
		"partition", partition,
		"offset", offset,
		"key", key,
		"event_type", eventType,
	)

	return nil
}

// Close закрывает producer
func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed")
	return nil
}
