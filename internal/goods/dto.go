package goods

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
)

// Key identifies a catalog entry for find-or-create.
type Key struct {
	Type    string
	Brand   string
	Model   string
	OwnerID uuid.UUID
}

// Attrs are the non-identity fields written when a good is first created.
type Attrs struct {
	Description    *string
	Price          decimal.Decimal
	Photos         []string
	RegisteredByID uuid.UUID
}

// CreateInput is the validated payload for registering a good.
type CreateInput struct {
	Key         Key
	Attrs       Attrs
	Quantity    int
	Identifiers []string
	Override    bool
}

// UpdateInput carries optional changes to a good.
type UpdateInput struct {
	Type        *string
	Brand       *string
	Model       *string
	Description *string
	Price       *decimal.Decimal
	// KeepPhotos lists the current photos to retain; nil keeps all of them.
	KeepPhotos *[]string
	NewPhotos  []string
}

// GoodDTO is the API representation of a good.
type GoodDTO struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"tipo"`
	Brand       string    `json:"marca"`
	Model       string    `json:"modelo"`
	Description *string   `json:"descripcion,omitempty"`
	Price       string    `json:"precio"`
	Photos      []string  `json:"fotos"`
	OwnerID     uuid.UUID `json:"propietario_id"`
	Stock       *int      `json:"stock,omitempty"`
	Created     *bool     `json:"creado,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGoodDTO maps a model into its API shape.
func NewGoodDTO(g *models.Good) *GoodDTO {
	photos := g.Photos
	if photos == nil {
		photos = []string{}
	}
	return &GoodDTO{
		ID:          g.ID,
		Type:        g.Type,
		Brand:       g.Brand,
		Model:       g.Model,
		Description: g.Description,
		Price:       g.Price.StringFixed(2),
		Photos:      photos,
		OwnerID:     g.OwnerID,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// UniqueItemDTO is the API representation of a unique item.
type UniqueItemDTO struct {
	ID         uuid.UUID `json:"id"`
	Identifier string    `json:"identificador"`
	Status     string    `json:"estado"`
	Synthetic  bool      `json:"sintetico"`
	Photo      *string   `json:"foto,omitempty"`
	Price      *string   `json:"precio,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewUniqueItemDTO maps a model into its API shape.
func NewUniqueItemDTO(item models.UniqueItem) UniqueItemDTO {
	dto := UniqueItemDTO{
		ID:         item.ID,
		Identifier: item.Identifier,
		Status:     item.Status.String(),
		Synthetic:  item.Synthetic,
		Photo:      item.Photo,
		CreatedAt:  item.CreatedAt,
	}
	if item.Price.Valid {
		p := item.Price.Decimal.StringFixed(2)
		dto.Price = &p
	}
	return dto
}

// ListResult is a page of goods.
type ListResult struct {
	Items      []GoodDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// mergePhotos keeps the requested subset of current photos, in the order the
// caller listed them, then appends new uploads. Duplicates are dropped.
func mergePhotos(current []string, keep *[]string, added []string) []string {
	kept := current
	if keep != nil {
		inCurrent := make(map[string]struct{}, len(current))
		for _, p := range current {
			inCurrent[p] = struct{}{}
		}
		kept = make([]string, 0, len(*keep))
		for _, p := range *keep {
			if _, ok := inCurrent[p]; ok {
				kept = append(kept, p)
			}
		}
	}

	out := make([]string, 0, len(kept)+len(added))
	seen := make(map[string]struct{}, len(kept)+len(added))
	for _, group := range [][]string{kept, added} {
		for _, p := range group {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
