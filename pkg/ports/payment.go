package ports

import (
	"context"

	"github.com/aretw0/drip/pkg/domain"
)

// PaymentClient talks to a payment provider.
type PaymentClient interface {
	CreatePayment(ctx context.Context, amount float64) (domain.PaymentRequest, error)
	CheckPaymentStatus(ctx context.Context, paymentID string) (domain.PaymentStatus, error)
}
