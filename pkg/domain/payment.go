package domain

// PaymentData is the persisted record of the last generated payment.
type PaymentData struct {
	QRImage string  `json:"qr_image"`
	QRText  string  `json:"qr_text"`
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
}

// PaymentRequest is what a payment provider returns for a new charge.
type PaymentRequest struct {
	QRImage string
	QRText  string
	ID      string
}

// PaymentStatus is a provider-reported settlement status.
type PaymentStatus struct {
	Status string
}

// PaymentPaid is the provider status for a settled payment.
const PaymentPaid = "paid"

// Paid reports whether the payment has settled.
func (p PaymentStatus) Paid() bool {
	return p.Status == PaymentPaid
}
