package uniqueitems

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
)

const maxIdentifierLen = 64

// NormalizeIdentifiers trims each identifier and rejects blanks and
// duplicates within the same request.
func NormalizeIdentifiers(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, value := range raw {
		id := strings.TrimSpace(value)
		if id == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier cannot be empty").
				WithDetails(map[string]any{"field": "imeis", "index": i})
		}
		if len(id) > maxIdentifierLen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier too long").
				WithDetails(map[string]any{"field": "imeis", "index": i})
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate identifier in request").
				WithDetails(map[string]any{"field": "imeis", "identifier": id})
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// GenerateSynthetic builds n identifiers for goods without serial numbers.
// Each is the good id followed by a short random suffix.
func GenerateSynthetic(goodID uuid.UUID, n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		out = append(out, goodID.String()+"-"+suffix)
	}
	return out
}
