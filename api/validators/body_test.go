package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/types"
)

type sampleBody struct {
	Type     string             `json:"tipo" validate:"required,max=64"`
	Price    *types.FlexDecimal `json:"precio" validate:"required"`
	Photos   []string           `json:"fotos" validate:"omitempty,dive,url"`
	Quantity *types.FlexInt     `json:"cantidad"`
}

func TestDecodeJSONBodyReportsFieldNames(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"precio":"10"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)

	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["tipo"] != "is required" {
		t.Fatalf("expected tipo detail, got %v", typed.Details())
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndBadNumbers(t *testing.T) {
	cases := []string{
		`{"tipo":"phone","precio":"10","extra":1}`,
		`{"tipo":"phone","precio":"diez"}`,
		`{"tipo":"phone","precio":"10","fotos":"[\"https://x\"]"}`,
		``,
	}
	for _, raw := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		var body sampleBody
		if err := DecodeJSONBody(req, &body); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("body %q: expected validation error, got %v", raw, err)
		}
	}
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"tipo":"phone","precio":1500,"cantidad":"2","fotos":["https://cdn.example/a.jpg"]}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.Quantity.Int() != 2 || body.Price.String() != "1500" {
		t.Fatalf("unexpected decode %+v", body)
	}
}

func TestParseUUIDParam(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	if _, err := ParseUUIDParam(req, "id"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "0b8f3f1e-7d55-4d0c-9a53-5b0f5a0f2d11")
	id, err := ParseUUIDParam(req, "id")
	if err != nil || id.String() != "0b8f3f1e-7d55-4d0c-9a53-5b0f5a0f2d11" {
		t.Fatalf("unexpected parse result %s %v", id, err)
	}
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	if v, err := ParseQueryInt(req, "limit", 20, 1, 100); err != nil || v != 20 {
		t.Fatalf("expected default 20, got %d %v", v, err)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  Samsung  ", 4, "Sams"},
		{"Galaxy   S21\tUltra", 0, "Galaxy S21 Ultra"},
		{"Teléfono", 4, "Telé"},
		{"ab cd", 3, "ab"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestSanitizeList(t *testing.T) {
	if SanitizeList(nil) != nil {
		t.Fatal("nil list should stay nil")
	}
	got := SanitizeList([]string{" 111 ", "", "  ", "222"})
	if len(got) != 2 || got[0] != "111" || got[1] != "222" {
		t.Fatalf("unexpected list %v", got)
	}
}

func TestParseQueryUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/bienes?owner_id=nope", nil)
	if _, err := ParseQueryUUID(req, "owner_id"); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
	req = httptest.NewRequest(http.MethodGet, "/bienes", nil)
	if id, err := ParseQueryUUID(req, "owner_id"); err != nil || id != nil {
		t.Fatalf("missing param should be nil, got %v %v", id, err)
	}
}
