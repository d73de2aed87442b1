package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/mewayz/workspacebilling/internal/authorization"
	historyrepository "github.com/mewayz/workspacebilling/internal/billinghistory/repository"
	historyservice "github.com/mewayz/workspacebilling/internal/billinghistory/service"
	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	"github.com/mewayz/workspacebilling/internal/bundle/pricing"
	"github.com/mewayz/workspacebilling/internal/clock"
	"github.com/mewayz/workspacebilling/internal/config"
	featureaccessservice "github.com/mewayz/workspacebilling/internal/featureaccess/service"
	"github.com/mewayz/workspacebilling/internal/migration"
	"github.com/mewayz/workspacebilling/internal/observability"
	subscriptionrepository "github.com/mewayz/workspacebilling/internal/subscription/repository"
	subscriptionservice "github.com/mewayz/workspacebilling/internal/subscription/service"
	usagerepository "github.com/mewayz/workspacebilling/internal/usage/repository"
	usageservice "github.com/mewayz/workspacebilling/internal/usage/service"
	warningrepository "github.com/mewayz/workspacebilling/internal/usagewarning/repository"
	warningservice "github.com/mewayz/workspacebilling/internal/usagewarning/service"
	"github.com/mewayz/workspacebilling/pkg/db"
	"github.com/mewayz/workspacebilling/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *errorPayload   `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.Open(t, migration.Models()...)
	now := time.Now().UTC()
	members := []authorization.WorkspaceMember{
		{WorkspaceID: "ws-1", UserID: "alice", Role: authorization.RoleOwner, CreatedAt: now},
		{WorkspaceID: "ws-1", UserID: "bob", Role: authorization.RoleAdmin, CreatedAt: now},
		{WorkspaceID: "ws-1", UserID: "carol", Role: authorization.RoleMember, CreatedAt: now},
	}
	require.NoError(t, conn.Create(&members).Error)

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC))
	guard := db.NewGuard(5*time.Second, nil)
	log := zap.NewNop()
	cat := catalog.MustDefault()
	calc := pricing.NewCalculator(cat, config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()))

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{DB: conn, Log: log, Enforcer: enforcer, Guard: guard})

	history := historyservice.NewService(historyservice.ServiceParam{
		DB: conn, Log: log, GenID: node, Clock: fake, Guard: guard, Repo: historyrepository.Provide(),
	})
	subscriptions := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB:         conn,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Guard:      guard,
		Repo:       subscriptionrepository.Provide(),
		Catalog:    cat,
		Calculator: calc,
		HistorySvc: history,
	})
	warnings := warningservice.NewService(warningservice.ServiceParam{
		DB: conn, Log: log, GenID: node, Clock: fake, Guard: guard, Repo: warningrepository.Provide(),
	})
	usage := usageservice.NewService(usageservice.ServiceParam{
		DB:              conn,
		Log:             log,
		GenID:           node,
		Clock:           fake,
		Guard:           guard,
		Repo:            usagerepository.Provide(),
		Catalog:         cat,
		SubscriptionSvc: subscriptions,
		WarningSvc:      warnings,
	})
	features := featureaccessservice.NewService(featureaccessservice.ServiceParam{
		Log: log, Catalog: cat, SubscriptionSvc: subscriptions,
	})

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:             engine,
		Log:             log,
		Catalog:         cat,
		Calculator:      calc,
		AuthzSvc:        authz,
		SubscriptionSvc: subscriptions,
		UsageSvc:        usage,
		WarningSvc:      warnings,
		HistorySvc:      history,
		FeatureSvc:      features,
	})

	return &testServer{t: t, engine: engine}
}

func (ts *testServer) do(method, path, actor, body string, headers ...string) (*httptest.ResponseRecorder, apiResponse) {
	ts.t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(HeaderActorID, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var resp apiResponse
	if rec.Header().Get("Content-Type") != xlsxContentType && rec.Body.Len() > 0 {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealthIsUnauthenticated(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingActorIsUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec, resp := ts.do(http.MethodGet, "/workspaces/ws-1/subscription", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unauthorized", resp.Error.Type)

	rec, _ = ts.do(http.MethodGet, "/bundles/available", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec, resp := ts.do(http.MethodPost, "/workspaces/ws-1/subscription", "alice", `{"bundles":["creator"],"billing_cycle":"monthly"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, resp.Data)
	assert.Equal(t, "active", created["status"])
	assert.Equal(t, 19.0, created["pricing"].(map[string]any)["total_amount"])

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/subscription", "bob", `{"bundles":["ecommerce"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_subscribed", resp.Error.Type)

	rec, resp = ts.do(http.MethodPut, "/workspaces/ws-1/subscription/bundle", "bob", `{"action":"add","bundles":["ecommerce"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	modified := decode[map[string]any](t, resp.Data)
	assert.Equal(t, true, modified["changed"])
	assert.Equal(t, 34.4, modified["subscription"].(map[string]any)["pricing"].(map[string]any)["total_amount"])

	rec, resp = ts.do(http.MethodGet, "/workspaces/ws-1/subscription", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	overview := decode[subscriptionOverview](t, resp.Data)
	assert.Len(t, overview.Subscription.Bundles, 2)
	assert.Equal(t, "ws-1", overview.Usage.WorkspaceID)
	assert.Len(t, overview.Catalog, 6)

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/subscription/downgrade", "alice", `{"bundles":["creator","ecommerce"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot_remove_last_bundle", resp.Error.Type)

	rec, _ = ts.do(http.MethodPost, "/workspaces/ws-1/subscription/cancel", "bob", `{"reason":"too expensive"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/subscription/cancel", "alice", `{"reason":"too expensive"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decode[map[string]any](t, resp.Data)
	assert.Equal(t, "cancelled", cancelled["status"])
	assert.Equal(t, false, cancelled["auto_renew"])

	rec, _ = ts.do(http.MethodPost, "/workspaces/ws-1/subscription/cancel", "alice", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp = ts.do(http.MethodGet, "/workspaces/ws-1/billing-history?limit=10", "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[map[string]any](t, resp.Data)
	assert.Equal(t, 3.0, page["total_count"])
}

func TestSubscriptionRoleGates(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		actor  string
		status int
	}{
		{"member cannot view subscription", http.MethodGet, "/workspaces/ws-1/subscription", "carol", http.StatusForbidden},
		{"member cannot read history", http.MethodGet, "/workspaces/ws-1/billing-history", "carol", http.StatusForbidden},
		{"outsider cannot read limits", http.MethodGet, "/workspaces/ws-1/usage-limits", "mallory", http.StatusForbidden},
		{"member reads limits", http.MethodGet, "/workspaces/ws-1/usage-limits", "carol", http.StatusOK},
		{"member checks feature", http.MethodGet, "/workspaces/ws-1/feature-access?feature=basic_forms", "carol", http.StatusOK},
		{"admin gets missing subscription", http.MethodGet, "/workspaces/ws-1/subscription", "bob", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := ts.do(tc.method, tc.path, tc.actor, "")
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.status == http.StatusForbidden {
				require.NotNil(t, resp.Error)
				assert.Equal(t, "permission_denied", resp.Error.Type)
			}
		})
	}
}

func TestCreateSubscriptionValidation(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		body string
		kind string
	}{
		{"missing bundles", `{"billing_cycle":"monthly"}`, "validation_error"},
		{"malformed body", `{"bundles":`, "validation_error"},
		{"empty bundles", `{"bundles":[]}`, "empty_bundle_set"},
		{"unknown bundle", `{"bundles":["gaming"]}`, "invalid_bundle"},
		{"bad cycle", `{"bundles":["creator"],"billing_cycle":"weekly"}`, "invalid_billing_cycle"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, resp := ts.do(http.MethodPost, "/workspaces/ws-1/subscription", "alice", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.kind, resp.Error.Type)
		})
	}

	_, resp := ts.do(http.MethodPost, "/workspaces/ws-1/subscription", "alice", `{}`)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "bundles", resp.Error.Errors[0].Field)
	assert.Equal(t, "required", resp.Error.Errors[0].Code)

	_, resp = ts.do(http.MethodPut, "/workspaces/ws-1/subscription/bundle", "alice", `{"action":"swap","bundles":["creator"]}`)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Errors, 1)
	assert.Equal(t, "action", resp.Error.Errors[0].Field)
	assert.Equal(t, "oneof", resp.Error.Errors[0].Code)
}

func TestTrackUsageEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(http.MethodPost, "/workspaces/ws-1/subscription", "alice", `{"bundles":["social_media"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := ts.do(http.MethodPost, "/workspaces/ws-1/usage", "carol", `{"feature":"instagram_searches","amount":600}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[map[string]any](t, resp.Data)
	assert.Equal(t, 600.0, first["current_usage"])
	assert.Nil(t, first["warning"])

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/usage", "carol", `{"feature":"instagram_searches","amount":350}`, HeaderIdempotencyKey, "batch-7")
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[map[string]any](t, resp.Data)
	assert.Equal(t, 950.0, second["current_usage"])
	assert.Equal(t, "critical", second["warning"].(map[string]any)["severity"])

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/usage", "carol", `{"feature":"instagram_searches","amount":350}`, HeaderIdempotencyKey, "batch-7")
	require.Equal(t, http.StatusOK, rec.Code)
	replay := decode[map[string]any](t, resp.Data)
	assert.Equal(t, true, replay["replayed"])
	assert.Equal(t, 950.0, replay["current_usage"])

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/usage", "carol", `{"feature":"instagram_searches","amount":100}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "limit_exceeded", resp.Error.Type)
	assert.Equal(t, 950.0, resp.Error.Details["current"])
	assert.Equal(t, 1000.0, resp.Error.Details["limit"])
	assert.Equal(t, 50.0, resp.Error.Details["remaining"])
	assert.Equal(t, 100.0, resp.Error.Details["requested"])

	rec, resp = ts.do(http.MethodGet, "/workspaces/ws-1/usage/check?feature=instagram_searches&amount=50", "carol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	check := decode[map[string]any](t, resp.Data)
	assert.Equal(t, true, check["allowed"])
	assert.Equal(t, 1000.0, check["would_be_total"])

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/usage", "carol", `{"feature":"teleport","amount":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_feature", resp.Error.Type)

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/usage", "carol", `{"feature":"instagram_searches","amount":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", resp.Error.Type)
	assert.Equal(t, "invalid_amount", resp.Error.Errors[0].Code)

	rec, resp = ts.do(http.MethodGet, "/workspaces/ws-1/usage-warnings", "carol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	warnings := decode[[]map[string]any](t, resp.Data)
	require.Len(t, warnings, 1)
	warningID := warnings[0]["id"].(string)

	rec, _ = ts.do(http.MethodPost, "/workspaces/ws-1/usage-warnings/"+warningID+"/resolve", "carol", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = ts.do(http.MethodPost, "/workspaces/ws-1/usage-warnings/"+warningID+"/resolve", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decode[map[string]any](t, resp.Data)
	assert.Equal(t, true, resolved["resolved"])

	rec, resp = ts.do(http.MethodGet, "/workspaces/ws-1/usage-warnings", "carol", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]map[string]any](t, resp.Data))

	rec, _ = ts.do(http.MethodPost, "/workspaces/ws-1/usage-warnings/404/resolve", "bob", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeatureAccessFreeTier(t *testing.T) {
	ts := newTestServer(t)

	_, resp := ts.do(http.MethodGet, "/workspaces/ws-1/feature-access?feature=basic_bio_links", "carol", "")
	allowed := decode[map[string]any](t, resp.Data)
	assert.Equal(t, true, allowed["has_access"])
	assert.Equal(t, "free_tier", allowed["source"])

	_, resp = ts.do(http.MethodGet, "/workspaces/ws-1/feature-access?feature=crm", "carol", "")
	denied := decode[map[string]any](t, resp.Data)
	assert.Equal(t, false, denied["has_access"])
	assert.Equal(t, "requires paid subscription", denied["reason"])

	rec, resp := ts.do(http.MethodGet, "/workspaces/ws-1/feature-access", "carol", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "feature", resp.Error.Errors[0].Field)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec, resp := ts.do(http.MethodGet, "/bundles/available", "anyone", "")
	require.Equal(t, http.StatusOK, rec.Code)
	available := decode[availableBundlesResponse](t, resp.Data)
	assert.Len(t, available.Bundles, 6)
	assert.Equal(t, 0.4, available.Discounts[6])
	assert.Equal(t, 0.2, available.Discounts[2])

	rec, resp = ts.do(http.MethodGet, "/pricing/calculate?bundles=creator,ecommerce,social_media,education", "anyone", "")
	require.Equal(t, http.StatusOK, rec.Code)
	priced := decode[map[string]any](t, resp.Data)
	assert.Equal(t, 49.2, priced["total_amount"])
	assert.Equal(t, 0.4, priced["discount_rate"])

	rec, resp = ts.do(http.MethodGet, "/pricing/calculate", "anyone", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_bundle_set", resp.Error.Type)

	rec, resp = ts.do(http.MethodGet, "/pricing/calculate?bundles=creator&billing_cycle=weekly", "anyone", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_billing_cycle", resp.Error.Type)
}

func TestExportBillingHistory(t *testing.T) {
	ts := newTestServer(t)

	rec, _ := ts.do(http.MethodPost, "/workspaces/ws-1/subscription", "alice", `{"bundles":["creator"]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = ts.do(http.MethodGet, "/workspaces/ws-1/billing-history/export", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "billing-history-ws-1.xlsx")
	// XLSX is a zip container.
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec, resp := ts.do(http.MethodGet, "/workspaces/ws-1/billing-history?limit=500", "bob", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_limit", resp.Error.Errors[0].Code)
}
