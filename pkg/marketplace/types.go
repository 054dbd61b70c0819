package marketplace

import (
	"fmt"

	"github.com/markethub/storefront-gateway/pkg/enums"
	"github.com/shopspring/decimal"
)

// Party is the compact user reference embedded in orders and cart items.
type Party struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

type Hub struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Address  string `json:"address,omitempty"`
	IsActive bool   `json:"is_active"`
}

// ProductRef is the product snapshot attached to line items and cart items.
type ProductRef struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	ImageURL      string          `json:"image_url,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	Merchant      *Party          `json:"merchant,omitempty"`
}

// LineItem is immutable once the order exists; PriceAtPurchase never follows catalog changes.
type LineItem struct {
	ID              int64           `json:"id"`
	Product         *ProductRef     `json:"product"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

type Suborder struct {
	ID              int64                `json:"id"`
	OrderID         int64                `json:"master_order_id"`
	Status          enums.SuborderStatus `json:"status"`
	SubtotalAmount  decimal.Decimal      `json:"subtotal_amount"`
	Merchant        *Party               `json:"merchant,omitempty"`
	Hub             *Hub                 `json:"hub,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	Items           []LineItem           `json:"items"`
	CreatedAt       string               `json:"created_at,omitempty"`
	UpdatedAt       string               `json:"updated_at,omitempty"`
}

func (s *Suborder) normalize() error {
	if s.ID <= 0 {
		return fmt.Errorf("suborder id missing")
	}
	s.Status = enums.NormalizeSuborderStatus(string(s.Status))
	if s.Status == "" {
		return fmt.Errorf("suborder %d status missing", s.ID)
	}
	return nil
}

type Order struct {
	ID                 int64                    `json:"id"`
	Customer           *Party                   `json:"customer,omitempty"`
	TotalAmount        decimal.Decimal          `json:"total_amount"`
	PaymentMethod      enums.PaymentMethod      `json:"payment_method"`
	PaymentStatus      enums.OrderPaymentStatus `json:"payment_status"`
	MpesaPhoneNumber   *string                  `json:"mpesa_phone_number,omitempty"`
	MpesaTransactionID *string                  `json:"mpesa_transaction_id,omitempty"`
	SelectedHub        *Hub                     `json:"selected_hub,omitempty"`
	IsCancelled        bool                     `json:"is_cancelled"`
	CancellationReason *string                  `json:"cancellation_reason,omitempty"`
	Suborders          []Suborder               `json:"suborders"`
	CreatedAt          string                   `json:"created_at,omitempty"`
	UpdatedAt          string                   `json:"updated_at,omitempty"`
}

func (o *Order) normalize() error {
	if o.ID <= 0 {
		return fmt.Errorf("order id missing")
	}
	if o.TotalAmount.IsNegative() {
		return fmt.Errorf("order %d has negative total", o.ID)
	}
	if !o.PaymentMethod.IsValid() {
		return fmt.Errorf("order %d has unknown payment method %q", o.ID, o.PaymentMethod)
	}
	for i := range o.Suborders {
		if err := o.Suborders[i].normalize(); err != nil {
			return err
		}
	}
	return nil
}

type CartItem struct {
	ID       int64           `json:"id"`
	Product  *ProductRef     `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// IsEmpty reports whether the cart has no purchasable lines.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func (c *Cart) normalize() error {
	for _, item := range c.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("cart item %d has invalid quantity %d", item.ID, item.Quantity)
		}
	}
	return nil
}

// Profile is the caller's marketplace identity; the role only comes from here.
type Profile struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Role  enums.UserRole `json:"role"`
	HubID *int64         `json:"hub_id,omitempty"`
	Hub   *Hub           `json:"hub,omitempty"`
}

func (p *Profile) normalize() error {
	if p.ID <= 0 {
		return fmt.Errorf("profile id missing")
	}
	role, err := enums.ParseUserRole(string(p.Role))
	if err != nil {
		return err
	}
	p.Role = role
	if p.HubID == nil && p.Hub != nil && p.Hub.ID > 0 {
		id := p.Hub.ID
		p.HubID = &id
	}
	return nil
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	MpesaPhoneNumber string              `json:"mpesa_phone_number,omitempty"`
	DeliveryAddress  string              `json:"delivery_address,omitempty"`
	DeliveryCity     string              `json:"delivery_city,omitempty"`
	HubID            int64               `json:"hub_id,omitempty"`
}

// CreateOrderResult carries the created order and, when the server started a push itself, its request id.
type CreateOrderResult struct {
	Order             *Order
	CheckoutRequestID string
	Message           string
}

// STKPushResult is the accepted response of POST /payments/mpesa/stk-push.
type STKPushResult struct {
	CheckoutRequestID string
	Message           string
}

// PaymentStatusResult is the narrowed response of GET /payments/status/{id}.
type PaymentStatusResult struct {
	Status enums.GatewayPaymentStatus
	Raw    string
}
