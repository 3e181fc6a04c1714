package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
)

// Input is a parsed purchase or sale request. CounterpartyID is the seller of
// a purchase or the buyer of a sale; the actor is the other side.
type Input struct {
	GoodID         *uuid.UUID
	Type           string
	Brand          string
	Model          string
	Description    *string
	Price          *decimal.Decimal
	Quantity       int
	Amount         *decimal.Decimal
	PaymentMethod  enums.PaymentMethod
	CounterpartyID uuid.UUID
	Identifiers    []string
	Photos         []string
	// Override accepts an existing good with the same identity. Nil means true.
	Override *bool
}

func (in Input) allowExisting() bool {
	return in.Override == nil || *in.Override
}

// TransactionDTO is the API representation of a recorded transfer.
type TransactionDTO struct {
	ID             uuid.UUID  `json:"id"`
	Kind           string     `json:"tipo_operacion"`
	GoodID         *uuid.UUID `json:"bien_id"`
	GoodCreated    *bool      `json:"bien_creado,omitempty"`
	SellerID       uuid.UUID  `json:"vendedor_id"`
	BuyerID        uuid.UUID  `json:"comprador_id"`
	RegisteredByID uuid.UUID  `json:"registrado_por_id"`
	PaymentMethod  string     `json:"metodo_pago"`
	Quantity       int        `json:"cantidad"`
	UnitPrice      string     `json:"precio_unitario"`
	Amount         string     `json:"monto"`
	Photos         []string   `json:"fotos"`
	Identifiers    []string   `json:"identificadores"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewTransactionDTO maps a transaction with its items.
func NewTransactionDTO(t *models.Transaction) *TransactionDTO {
	photos := t.Photos
	if photos == nil {
		photos = []string{}
	}
	identifiers := make([]string, 0, len(t.Items))
	for _, item := range t.Items {
		identifiers = append(identifiers, item.Identifier)
	}
	return &TransactionDTO{
		ID:             t.ID,
		Kind:           t.Kind.String(),
		GoodID:         t.GoodID,
		SellerID:       t.SellerID,
		BuyerID:        t.BuyerID,
		RegisteredByID: t.RegisteredByID,
		PaymentMethod:  t.PaymentMethod.String(),
		Quantity:       t.Quantity,
		UnitPrice:      t.UnitPrice.StringFixed(2),
		Amount:         t.Amount.StringFixed(2),
		Photos:         photos,
		Identifiers:    identifiers,
		CreatedAt:      t.CreatedAt,
	}
}
