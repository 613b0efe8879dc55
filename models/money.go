package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Amounts leave the API with exactly two fraction digits ("24.00"). Each
// model below shadows its decimal fields with their fixed-point rendering.

func fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func (s TableSession) MarshalJSON() ([]byte, error) {
	type alias TableSession
	return json.Marshal(struct {
		alias
		TotalAmount string `json:"totalAmount"`
		PaidAmount  string `json:"paidAmount"`
	}{alias(s), fixed(s.TotalAmount), fixed(s.PaidAmount)})
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		Total string `json:"total"`
	}{alias(o), fixed(o.Total)})
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type alias OrderItem
	return json.Marshal(struct {
		alias
		UnitPrice string `json:"unitPrice"`
		Subtotal  string `json:"subtotal"`
	}{alias(i), fixed(i.UnitPrice), fixed(i.Subtotal)})
}

func (b Bill) MarshalJSON() ([]byte, error) {
	type alias Bill
	return json.Marshal(struct {
		alias
		Total string `json:"total"`
	}{alias(b), fixed(b.Total)})
}

func (m MenuItem) MarshalJSON() ([]byte, error) {
	type alias MenuItem
	return json.Marshal(struct {
		alias
		Price string `json:"price"`
	}{alias(m), fixed(m.Price)})
}
