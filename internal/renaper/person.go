package renaper

import (
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
)

// Sex codes partition the upstream index.
const (
	SexMale   = "M"
	SexFemale = "F"
)

// PersonRecord is the identity returned by a lookup.
type PersonRecord struct {
	DocumentNumber string `json:"dni"`
	FirstName      string `json:"nombres"`
	LastName       string `json:"apellido"`
	BirthDate      string `json:"fecha_nacimiento,omitempty"`
	CUIL           string `json:"cuil,omitempty"`
	Address        string `json:"domicilio,omitempty"`
	Sex            string `json:"sexo"`
}

// upstreamPerson mirrors the gateway payload.
type upstreamPerson struct {
	DocumentNumber string `json:"numeroDocumento"`
	FirstName      string `json:"nombres"`
	LastName       string `json:"apellido"`
	BirthDate      string `json:"fechaNacimiento"`
	CUIL           string `json:"cuil"`
	Address        string `json:"domicilio"`
}

func (p upstreamPerson) hasData() bool {
	return strings.TrimSpace(p.DocumentNumber) != "" ||
		strings.TrimSpace(p.FirstName) != "" ||
		strings.TrimSpace(p.LastName) != ""
}

func (p upstreamPerson) record(sex string) *PersonRecord {
	return &PersonRecord{
		DocumentNumber: strings.TrimSpace(p.DocumentNumber),
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		BirthDate:      strings.TrimSpace(p.BirthDate),
		CUIL:           strings.TrimSpace(p.CUIL),
		Address:        strings.TrimSpace(p.Address),
		Sex:            sex,
	}
}

// NormalizeDocument strips dots and spaces and requires 7 or 8 digits.
func NormalizeDocument(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r == '.' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	doc := b.String()
	valid := len(doc) >= 7 && len(doc) <= 8
	for _, r := range doc {
		if r < '0' || r > '9' {
			valid = false
			break
		}
	}
	if !valid {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "document number must have 7 or 8 digits").
			WithDetails(map[string]any{"field": "nroDoc"})
	}
	return doc, nil
}
