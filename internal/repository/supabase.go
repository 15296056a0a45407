package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/ndavila/comprobantes-bot/internal/model"
)

type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{
		client: client,
	}, nil
}

func (r *SupabaseRepository) ListPayees(ctx context.Context) ([]model.Payee, error) {
	data, _, err := r.client.From("destinatarios").
		Select("*", "", false).
		Order("name", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list payees: %w", err)
	}

	var payees []model.Payee
	if err := json.Unmarshal(data, &payees); err != nil {
		return nil, fmt.Errorf("failed to parse payees: %w", err)
	}
	return payees, nil
}

func (r *SupabaseRepository) CreatePayee(ctx context.Context, name string) (*model.Payee, error) {
	payee := model.Payee{Name: name}
	data, _, err := r.client.From("destinatarios").Insert(payee, false, "", "", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to create payee: %w", err)
	}

	// The insert response carries the generated row, id included.
	var created []model.Payee
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to parse created payee: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create payee returned no rows")
	}
	return &created[0], nil
}

func (r *SupabaseRepository) FindPayeeByName(ctx context.Context, name string) (*model.Payee, error) {
	data, _, err := r.client.From("destinatarios").
		Select("*", "", false).
		Eq("name", name).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to find payee: %w", err)
	}

	var payees []model.Payee
	if err := json.Unmarshal(data, &payees); err != nil {
		return nil, fmt.Errorf("failed to parse payee: %w", err)
	}
	if len(payees) == 0 {
		return nil, fmt.Errorf("payee %q not found", name)
	}
	return &payees[0], nil
}

func (r *SupabaseRepository) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	data, _, err := r.client.From("metodos_pago").
		Select("*", "", false).
		Order("name", nil).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}

	var methods []model.PaymentMethod
	if err := json.Unmarshal(data, &methods); err != nil {
		return nil, fmt.Errorf("failed to parse payment methods: %w", err)
	}
	return methods, nil
}

func (r *SupabaseRepository) CreatePaymentMethod(ctx context.Context, name string) (*model.PaymentMethod, error) {
	method := model.PaymentMethod{Name: name}
	data, _, err := r.client.From("metodos_pago").Insert(method, false, "", "", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}

	var created []model.PaymentMethod
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("failed to parse created payment method: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create payment method returned no rows")
	}
	return &created[0], nil
}

func (r *SupabaseRepository) CreateComprobante(ctx context.Context, comprobante *model.Comprobante) error {
	data, _, err := r.client.From("comprobantes").Insert(comprobante, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to create comprobante: %w", err)
	}

	var created []model.Comprobante
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("failed to parse created comprobante: %w", err)
	}
	if len(created) > 0 {
		comprobante.ID = created[0].ID
		comprobante.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (r *SupabaseRepository) ListComprobantes(ctx context.Context, sender string, filter ComprobanteFilter) ([]model.Comprobante, error) {
	query := r.client.From("comprobantes").
		Select("*", "", false).
		Eq("sender", sender)

	if filter.StartDate != nil {
		query = query.Gte("created_at", filter.StartDate.Format(time.RFC3339))
	}
	if filter.EndDate != nil {
		query = query.Lte("created_at", filter.EndDate.Format(time.RFC3339))
	}
	query = query.Order("created_at.desc", nil)

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list comprobantes: %w", err)
	}

	var comprobantes []model.Comprobante
	if err := json.Unmarshal(data, &comprobantes); err != nil {
		return nil, fmt.Errorf("failed to parse comprobantes: %w", err)
	}
	return comprobantes, nil
}
