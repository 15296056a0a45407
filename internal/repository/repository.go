package repository

import (
	"context"
	"time"

	"github.com/ndavila/comprobantes-bot/internal/model"
)

// Repository is the persistence boundary for the payee and payment-method
// registries and the committed comprobantes.
type Repository interface {
	// Destinatarios
	ListPayees(ctx context.Context) ([]model.Payee, error)
	CreatePayee(ctx context.Context, name string) (*model.Payee, error)
	FindPayeeByName(ctx context.Context, name string) (*model.Payee, error)

	// Metodos de pago
	ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, name string) (*model.PaymentMethod, error)

	// Comprobantes
	CreateComprobante(ctx context.Context, comprobante *model.Comprobante) error
	ListComprobantes(ctx context.Context, sender string, filter ComprobanteFilter) ([]model.Comprobante, error)
}

type ComprobanteFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
}
