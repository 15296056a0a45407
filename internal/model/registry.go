package model

import "time"

// Payee ("destinatario") is a counterparty registered by name.
type Payee struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// PaymentMethod ("metodo de pago") is a payment channel registered by name.
type PaymentMethod struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
