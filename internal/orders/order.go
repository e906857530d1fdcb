package orders

import "time"

type Status string

const (
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
)

type OrderItem struct {
	ItemID    int64  `bson:"item_id" json:"item_id"`
	Name      string `bson:"name" json:"name"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	UnitPrice string `bson:"unit_price" json:"unit_price"`
}

// Order is the archived record of one completed checkout.
type Order struct {
	ID          string      `bson:"_id" json:"id"`
	CheckoutID  string      `bson:"checkout_id" json:"checkout_id"`
	Principal   string      `bson:"principal" json:"principal"`
	TotalAmount string      `bson:"total_amount" json:"total_amount"`
	Currency    string      `bson:"currency" json:"currency"`
	Status      Status      `bson:"status" json:"status"`
	Items       []OrderItem `bson:"items" json:"items"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `bson:"updated_at" json:"updated_at"`
}
