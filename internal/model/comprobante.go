package model

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a comprobante as money in or money out.
type MovementType string

const (
	MovementIncome  MovementType = "income"
	MovementExpense MovementType = "expense"
)

// Comprobante is the committed transaction record.
type Comprobante struct {
	ID              string       `json:"id"`
	Sender          string       `json:"sender"`
	PayeeID         string       `json:"destinatario_id"`
	Amount          float64      `json:"amount"`
	Date            string       `json:"date,omitempty"`
	Time            string       `json:"time,omitempty"`
	MovementType    MovementType `json:"movement_type,omitempty"`
	PaymentMethodID string       `json:"metodo_pago_id"`
	Reference       string       `json:"reference,omitempty"`
	OperationNumber string       `json:"operation_number,omitempty"`
	Note            string       `json:"note,omitempty"`
	RawText         string       `json:"raw_text,omitempty"`
	MatchScore      float64      `json:"match_score"`
	MatchMethod     string       `json:"match_method,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// GenerateID assigns a fresh UUID unless one is already set.
func (c *Comprobante) GenerateID() {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
}
