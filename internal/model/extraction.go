package model

// Extraction is the first-pass structured guess produced by the language
// model from the raw message or OCR text. Every field may be empty when the
// source text does not mention it.
type Extraction struct {
	PayeeName       string       `json:"payee_name"`
	Amount          float64      `json:"amount"`
	Date            string       `json:"date"`
	Time            string       `json:"time"`
	MovementType    MovementType `json:"movement_type"`
	PaymentMethod   string       `json:"payment_method"`
	Reference       string       `json:"reference"`
	OperationNumber string       `json:"operation_number"`
	Note            string       `json:"note"`
}
