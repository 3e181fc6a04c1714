package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/registro-bienes-backend/internal/goods"
	"github.com/angelmondragon/registro-bienes-backend/internal/renaper"
	"github.com/angelmondragon/registro-bienes-backend/internal/stock"
	"github.com/angelmondragon/registro-bienes-backend/internal/traceability"
	"github.com/angelmondragon/registro-bienes-backend/internal/transactions"
	"github.com/angelmondragon/registro-bienes-backend/internal/uniqueitems"
	"github.com/angelmondragon/registro-bienes-backend/internal/users"
	pkgAuth "github.com/angelmondragon/registro-bienes-backend/pkg/auth"
	"github.com/angelmondragon/registro-bienes-backend/pkg/config"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/dbtest"
	"github.com/angelmondragon/registro-bienes-backend/pkg/db/models"
	"github.com/angelmondragon/registro-bienes-backend/pkg/enums"
	"github.com/angelmondragon/registro-bienes-backend/pkg/metrics"
)

type stubGateway struct{}

func (stubGateway) LookupPerson(_ context.Context, doc string) (*renaper.PersonRecord, error) {
	return &renaper.PersonRecord{DocumentNumber: doc, FirstName: "Ana", LastName: "Diaz", Sex: renaper.SexFemale}, nil
}

type testServer struct {
	cfg     *config.Config
	handler http.Handler
	u1      models.User
	u2      models.User
	u3      models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	client := dbtest.Open(t)

	ledger, err := stock.NewLedger(stock.NewRepository(client.DB()))
	require.NoError(t, err)
	registry, err := uniqueitems.NewRegistry(uniqueitems.NewRepository(client.DB()), []string{"phone"})
	require.NoError(t, err)
	userRepo := users.NewRepository(client.DB())
	catalog, err := goods.NewService(goods.NewRepository(client.DB()), client, userRepo, ledger, registry)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	recorder, err := transactions.NewService(transactions.NewRepository(client.DB()), client, userRepo, catalog, ledger, registry,
		metrics.NewTransferMetrics(reg), nil)
	require.NoError(t, err)
	history, err := traceability.NewService(traceability.NewRepository(client.DB()))
	require.NoError(t, err)

	cfg := &config.Config{
		App:     config.AppConfig{Env: "test"},
		JWT:     config.JWTConfig{Secret: "secret", Issuer: "registro-bienes", ExpirationMinutes: 60},
		Renaper: config.RenaperConfig{RateLimitWindow: time.Minute, RateLimit: 10},
		HTTP:    config.HTTPConfig{AllowedOrigins: []string{"*"}, IdempotencyTTL: time.Hour},
	}

	handler := NewRouter(cfg, nil, Deps{
		DB:           client,
		Goods:        catalog,
		Transactions: recorder,
		Traceability: history,
		Gateway:      stubGateway{},
		Gatherer:     reg,
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
	})

	return &testServer{
		cfg:     cfg,
		handler: handler,
		u1:      dbtest.SeedUser(t, client, "u1@example.com"),
		u2:      dbtest.SeedUser(t, client, "u2@example.com"),
		u3:      dbtest.SeedUser(t, client, "u3@example.com"),
	}
}

func (s *testServer) token(t *testing.T, userID uuid.UUID, role enums.SystemRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(s.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/health/live", "", "")
	require.Equal(t, http.StatusOK, code)
	require.True(t, body.Success)

	code, body = s.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, code)
	require.JSONEq(t, `{"status":"ready","checks":{"db":"up","redis":"disabled"}}`, string(body.Data))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bienes_http_request_duration_seconds")
}

func TestProtectedRoutesRequireJWT(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/bienes", "/bienes/" + uuid.NewString(), "/transacciones/" + uuid.NewString(), "/renaper/12345678"} {
		code, body := s.do(t, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusUnauthorized, code, path)
		require.Equal(t, "UNAUTHORIZED", body.Error.Code)
	}
}

func TestRegisterSellAndTrace(t *testing.T) {
	s := newTestServer(t)
	u1 := s.token(t, s.u1.ID, enums.SystemRoleUser)
	u2 := s.token(t, s.u2.ID, enums.SystemRoleUser)
	u3 := s.token(t, s.u3.ID, enums.SystemRoleUser)

	code, body := s.do(t, http.MethodPost, "/bienes", u1,
		`{"tipo":"phone","marca":"Acme","modelo":"X1","precio":"100","cantidad":2,"imeis":["111","222"]}`)
	require.Equal(t, http.StatusCreated, code, string(body.Data))
	var good struct {
		ID    uuid.UUID `json:"id"`
		Stock int       `json:"stock"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &good))
	require.Equal(t, 2, good.Stock)

	sale := `{"bien_id":"` + good.ID.String() + `","cantidad":"1","metodo_pago":"efectivo","comprador_id":"` + s.u2.ID.String() + `","imeis":["111"]}`
	code, body = s.do(t, http.MethodPost, "/transacciones/vender", u1, sale)
	require.Equal(t, http.StatusCreated, code, string(body.Data))
	var txn struct {
		ID       uuid.UUID `json:"id"`
		SellerID uuid.UUID `json:"vendedor_id"`
		BuyerID  uuid.UUID `json:"comprador_id"`
		Quantity int       `json:"cantidad"`
		Amount   string    `json:"monto"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &txn))
	require.Equal(t, s.u1.ID, txn.SellerID)
	require.Equal(t, s.u2.ID, txn.BuyerID)
	require.Equal(t, 1, txn.Quantity)
	require.Equal(t, "100.00", txn.Amount)

	code, body = s.do(t, http.MethodGet, "/bienes/"+good.ID.String()+"/stock", u1, "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body.Data), `"cantidad":1`)

	code, body = s.do(t, http.MethodGet, "/bienes/trazabilidad/identificador/111", u3, "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body.Data), `"estado":"sold"`)

	code, body = s.do(t, http.MethodGet, "/bienes/trazabilidad/"+good.ID.String(), u3, "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body.Data), txn.ID.String())

	code, _ = s.do(t, http.MethodGet, "/transacciones/"+txn.ID.String(), u2, "")
	require.Equal(t, http.StatusOK, code)
	code, body = s.do(t, http.MethodGet, "/transacciones/"+txn.ID.String(), u3, "")
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "FORBIDDEN", body.Error.Code)

	oversell := `{"bien_id":"` + good.ID.String() + `","cantidad":3,"metodo_pago":"cash","comprador_id":"` + s.u2.ID.String() + `","imeis":["222","x","y"]}`
	code, body = s.do(t, http.MethodPost, "/transacciones/vender", u1, oversell)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "INSUFFICIENT_STOCK", body.Error.Code)
}

func TestDeleteGoodRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, s.u1.ID, enums.SystemRoleUser)
	admin := s.token(t, uuid.New(), enums.SystemRoleAdmin)

	code, body := s.do(t, http.MethodPost, "/bienes", owner, `{"tipo":"mesa","marca":"Roble","modelo":"M1","cantidad":1}`)
	require.Equal(t, http.StatusCreated, code)
	var good struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &good))

	code, body = s.do(t, http.MethodDelete, "/bienes/"+good.ID.String(), owner, "")
	require.Equal(t, http.StatusForbidden, code)
	require.Equal(t, "FORBIDDEN", body.Error.Code)

	code, _ = s.do(t, http.MethodDelete, "/bienes/"+good.ID.String(), admin, "")
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/bienes/"+good.ID.String(), owner, "")
	require.Equal(t, http.StatusNotFound, code)
	require.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestRenaperLookupRoute(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/renaper/12345678", s.token(t, s.u1.ID, enums.SystemRoleUser), "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(body.Data), `"dni":"12345678"`)
}
