package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"familytasks/internal/handler"
	"familytasks/internal/model"
	"familytasks/internal/repository/memstore"
	"familytasks/internal/service"
	"familytasks/pkg/rbac"
	"familytasks/pkg/trace"
	"familytasks/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testJWTSecret = "jwt-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, cronRequired bool, cronSecret string, ready ...ReadinessCheck) *gin.Engine {
	t.Helper()
	store := memstore.New()
	if err := store.Families().Upsert(context.Background(), &model.Family{ID: "F1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	log := zap.NewNop()
	m := service.NewMaterializer(store.Templates(), store.Instances(), log)
	batch := service.NewBatchOrchestrator(store.Families(), m, log)
	seeder := service.NewTemplateService(store.Templates(), log)

	r := NewRouter(Options{
		Cron:             handler.NewCronHandler(batch, m, log),
		Templates:        handler.NewTemplateHandler(store.Templates(), seeder, log),
		Instances:        handler.NewInstanceHandler(store.Instances(), store.Templates(), m, log),
		Families:         handler.NewFamilyHandler(service.NewFamilyService(store.Families(), seeder, log), log),
		JWTSecret:        testJWTSecret,
		CronAuthRequired: cronRequired,
		CronSecret:       cronSecret,
		Readiness:        ready,
		Logger:           log,
	})
	return r.Engine
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, familyID, role string) map[string]string {
	t.Helper()
	token, err := util.GenerateJWT(familyID, "u1", role, testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, false, "")
	if w := serve(r, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	if w := serve(r, http.MethodHead, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("HEAD status = %d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	ok := ReadinessCheck{Name: "db", Check: func(context.Context) error { return nil }}
	down := ReadinessCheck{Name: "mq", Check: func(context.Context) error { return errors.New("not connected") }}

	if w := serve(newTestRouter(t, false, "", ok), http.MethodGet, "/readyz", nil); w.Code != http.StatusOK {
		t.Fatalf("ready status = %d", w.Code)
	}
	w := serve(newTestRouter(t, false, "", ok, down), http.MethodGet, "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable || !strings.Contains(w.Body.String(), "mq_not_ready") {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
}

func TestCronAuth(t *testing.T) {
	cases := []struct {
		name     string
		required bool
		secret   string
		header   string
		want     int
	}{
		{"development open", false, "", "", http.StatusOK},
		{"production without header", true, "s3cret", "", http.StatusUnauthorized},
		{"production wrong token", true, "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"production correct token", true, "s3cret", "Bearer s3cret", http.StatusOK},
		{"production without secret", true, "", "Bearer ", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, tc.required, tc.secret)
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			if w := serve(r, http.MethodPost, "/cron/daily-tasks", headers); w.Code != tc.want {
				t.Fatalf("status = %d, want %d body=%s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestCronHealthIsPublic(t *testing.T) {
	r := newTestRouter(t, true, "s3cret")
	if w := serve(r, http.MethodGet, "/cron/daily-tasks", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/cron/daily-tasks/families/F1", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("inspect status = %d, want 401", w.Code)
	}
}

func TestAPIAuthAndPermissions(t *testing.T) {
	r := newTestRouter(t, false, "")

	if w := serve(r, http.MethodGet, "/api/templates", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/templates", map[string]string{"Authorization": "Bearer garbage"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/templates", bearer(t, "F1", rbac.RoleChild)); w.Code != http.StatusOK {
		t.Fatalf("child read status = %d", w.Code)
	}
	if w := serve(r, http.MethodPost, "/api/templates/defaults", bearer(t, "F1", rbac.RoleChild)); w.Code != http.StatusForbidden {
		t.Fatalf("child seed status = %d, want 403", w.Code)
	}
	if w := serve(r, http.MethodPost, "/api/templates/defaults", bearer(t, "F1", rbac.RoleParent)); w.Code != http.StatusOK {
		t.Fatalf("parent seed status = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/api/today", bearer(t, "F1", rbac.RoleChild)); w.Code != http.StatusOK {
		t.Fatalf("child today status = %d", w.Code)
	}
}

func TestTraceHeader(t *testing.T) {
	r := newTestRouter(t, false, "")

	w := serve(r, http.MethodGet, "/healthz", map[string]string{trace.HeaderName: "abc123"})
	if got := w.Header().Get(trace.HeaderName); got != "abc123" {
		t.Fatalf("echoed trace = %q", got)
	}
	w = serve(r, http.MethodGet, "/healthz", nil)
	if w.Header().Get(trace.HeaderName) == "" {
		t.Fatalf("expected a generated trace id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t, false, "")
	serve(r, http.MethodGet, "/healthz", nil)
	w := serve(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_request_duration_seconds") {
		t.Fatalf("metrics status = %d", w.Code)
	}
}
