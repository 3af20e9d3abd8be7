package domain

import "time"

// Originator identifies who authored a message.
type Originator string

const (
	FromLead Originator = "lead"
	FromBot  Originator = "bot"
)

// DeliveryStatus tracks the checkmarks of a message.
// For lead messages it only moves forward: Sending, Sent, Delivered, Read.
type DeliveryStatus string

const (
	StatusSending   DeliveryStatus = "sending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

var deliveryRank = map[DeliveryStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Advances reports whether moving from s to next is a forward transition.
func (s DeliveryStatus) Advances(next DeliveryStatus) bool {
	cur, ok := deliveryRank[s]
	if !ok {
		return true
	}
	n, ok := deliveryRank[next]
	return ok && n > cur
}

// PixAttachment is the payment display data attached to a payment message.
type PixAttachment struct {
	QRImage string `json:"qr_image"`
	QRText  string `json:"qr_text"`
}

// Message is one transcript entry.
type Message struct {
	ID             string         `json:"id"`
	Originator     Originator     `json:"originator"`
	Kind           ContentKind    `json:"kind"`
	Content        string         `json:"content,omitempty"`
	MediaRef       string         `json:"media_ref,omitempty"`
	Duration       time.Duration  `json:"duration,omitempty"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	CreatedAt      time.Time      `json:"created_at"`
	Pix            *PixAttachment `json:"pix,omitempty"`

	// IdempotencyKey deduplicates emissions of the same script step.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// FromLead reports whether the lead authored the message.
func (m Message) FromLead() bool {
	return m.Originator == FromLead
}

// Outbound is a bot message handed to the MessageSink.
type Outbound struct {
	Kind           ContentKind
	Content        string
	MediaRef       string
	Duration       time.Duration
	Pix            *PixAttachment
	IdempotencyKey string
}

// Inbound is a lead message received by the host.
type Inbound struct {
	Kind     ContentKind   `json:"kind"`
	Content  string        `json:"content,omitempty"`
	MediaRef string        `json:"media_ref,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}
