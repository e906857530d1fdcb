package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// eventItem mirrors the outbox payload item shape published by the
// checkout poller (checkout.SnapshotItem json tags).
type eventItem struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type checkoutCompletedEvent struct {
	CheckoutID  string      `json:"checkout_id"`
	Principal   string      `json:"principal"`
	Items       []eventItem `json:"items"`
	TotalAmount string      `json:"total_amount"`
	Currency    string      `json:"currency"`
}

// Consumer archives completed checkouts from the order-events topic.
type Consumer struct {
	repo   OrderRepository
	reader *kafka.Reader
}

func NewConsumer(repo OrderRepository, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-events",
		GroupID:  "order-archive",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{repo: repo, reader: reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	order, err := orderFromMessage(m.Value)
	if err != nil {
		log.Printf("dropping malformed order event: %v", err)
		return
	}

	if err := c.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateCheckout) {
			log.Printf("order for checkout %s already exists, skipping", order.CheckoutID)
			return
		}
		log.Printf("failed to create order for checkout %s: %v", order.CheckoutID, err)
		return
	}

	log.Printf("order %s archived for checkout %s", order.ID, order.CheckoutID)
}

func orderFromMessage(value []byte) (*Order, error) {
	var event checkoutCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(event.CheckoutID); err != nil {
		return nil, errors.New("invalid checkout_id " + event.CheckoutID)
	}

	currency := event.Currency
	if currency == "" {
		currency = "USD"
	}

	items := make([]OrderItem, len(event.Items))
	for i, item := range event.Items {
		items[i] = OrderItem{
			ItemID:    item.ItemID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	return &Order{
		ID:          uuid.New().String(),
		CheckoutID:  event.CheckoutID,
		Principal:   event.Principal,
		TotalAmount: event.TotalAmount,
		Currency:    currency,
		Status:      StatusConfirmed,
		Items:       items,
	}, nil
}
