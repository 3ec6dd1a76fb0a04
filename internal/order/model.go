package order

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/tokobaju-api/internal/money"
	"github.com/noah-isme/tokobaju-api/internal/store"
)

// ItemInput is a cart line submitted at checkout. Price is the unit price snapshot.
type ItemInput struct {
	ProductID   string       `json:"productId" validate:"required,max=64"`
	ProductName string       `json:"productName" validate:"required,max=200"`
	Price       money.Amount `json:"price" validate:"gte=0"`
	Quantity    int          `json:"quantity" validate:"gte=1"`
	Size        string       `json:"size" validate:"max=16"`
	ImageURL    string       `json:"imageUrl" validate:"omitempty,max=2048"`
}

// CreateInput is the checkout request. Totals are always recomputed.
type CreateInput struct {
	UserID          string      `json:"userId" validate:"omitempty,uuid"`
	CustomerName    string      `json:"customerName" validate:"required,max=200"`
	ShippingAddress string      `json:"shippingAddress" validate:"required,max=1000"`
	PhoneNumber     string      `json:"phoneNumber" validate:"required,max=32"`
	PromoCode       string      `json:"promoCode" validate:"max=64"`
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// Item is an order line as returned by the API.
type Item struct {
	ProductID   string       `json:"productId"`
	ProductName string       `json:"productName"`
	Price       money.Amount `json:"price"`
	Quantity    int          `json:"quantity"`
	Size        *string      `json:"size,omitempty"`
	ImageURL    *string      `json:"imageUrl,omitempty"`
}

// Order is the API view of a placed order.
type Order struct {
	ID              string       `json:"id"`
	UserID          *string      `json:"userId"`
	Items           []Item       `json:"items"`
	CustomerName    string       `json:"customerName"`
	ShippingAddress string       `json:"shippingAddress"`
	PhoneNumber     string       `json:"phoneNumber"`
	Subtotal        money.Amount `json:"subtotal"`
	ShippingCost    money.Amount `json:"shippingCost"`
	Tax             money.Amount `json:"tax"`
	PromoCode       *string      `json:"promoCode"`
	DiscountAmount  money.Amount `json:"discountAmount"`
	TotalAmount     money.Amount `json:"totalAmount"`
	Status          string       `json:"status"`
	CreatedAt       time.Time    `json:"createdAt"`
}

func fromRow(row store.Order, items []store.OrderItem) Order {
	o := Order{
		ID:              row.ID.String(),
		Items:           make([]Item, 0, len(items)),
		CustomerName:    row.CustomerName,
		ShippingAddress: row.ShippingAddress,
		PhoneNumber:     row.PhoneNumber,
		Subtotal:        row.Subtotal,
		ShippingCost:    row.ShippingCost,
		Tax:             row.Tax,
		PromoCode:       row.PromoCode,
		DiscountAmount:  row.DiscountAmount,
		TotalAmount:     row.TotalAmount,
		Status:          row.Status,
		CreatedAt:       row.CreatedAt,
	}
	if row.UserID != nil {
		id := row.UserID.String()
		o.UserID = &id
	}
	for _, it := range items {
		o.Items = append(o.Items, Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.UnitPrice,
			Quantity:    it.Quantity,
			Size:        it.Size,
			ImageURL:    it.ImageURL,
		})
	}
	return o
}

func toItemRows(orderID uuid.UUID, in []ItemInput) []store.OrderItem {
	rows := make([]store.OrderItem, 0, len(in))
	for _, it := range in {
		rows = append(rows, store.OrderItem{
			OrderID:     orderID,
			ProductID:   strings.TrimSpace(it.ProductID),
			ProductName: strings.TrimSpace(it.ProductName),
			UnitPrice:   it.Price,
			Quantity:    it.Quantity,
			Size:        optional(it.Size),
			ImageURL:    optional(it.ImageURL),
		})
	}
	return rows
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
