package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stockwatch/config"
	"stockwatch/internal/inventory"
	"stockwatch/internal/monitor"
	"stockwatch/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newProductEngine() *gin.Engine {
	h := NewProductHandler(nil, nil, nil, zap.NewNop())
	r := gin.New()
	r.POST("/product", h.Upsert)
	r.GET("/product/barcode", h.GetByBarcode)
	r.GET("/product/id", h.GetByID)
	r.GET("/product/variants", h.Variants)
	r.PUT("/product/:code/min", h.UpdateMinStock)
	r.PUT("/product/:code/notifications", h.ToggleNotifications)
	return r
}

func TestUpsertValidation(t *testing.T) {
	r := newProductEngine()

	cases := []struct {
		name string
		body string
	}{
		{"missing barcode", `{"min": 5}`},
		{"missing min", `{"barcode": "123"}`},
		{"negative min", `{"barcode": "123", "min": -1}`},
		{"malformed json", `{"barcode":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := perform(r, http.MethodPost, "/product", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetByBarcodeRequiresBarcode(t *testing.T) {
	r := newProductEngine()
	w := perform(r, http.MethodGet, "/product/barcode", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetByIDRejectsNonNumeric(t *testing.T) {
	r := newProductEngine()
	w := perform(r, http.MethodGet, "/product/id?id=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestVariantsRequiresCode(t *testing.T) {
	r := newProductEngine()
	w := perform(r, http.MethodGet, "/product/variants", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUpdateMinStockValidation(t *testing.T) {
	r := newProductEngine()
	for _, body := range []string{`{}`, `{"min": -3}`, `not json`} {
		w := perform(r, http.MethodPut, "/product/123/min", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, w.Code)
		}
	}
}

func TestToggleNotificationsValidation(t *testing.T) {
	r := newProductEngine()

	w := perform(r, http.MethodPut, "/product/abc/notifications", `{"enabled": true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: status = %d, want 400", w.Code)
	}

	w = perform(r, http.MethodPut, "/product/1/notifications", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing enabled: status = %d, want 400", w.Code)
	}
}

func TestMessagingUnavailableWithoutFCM(t *testing.T) {
	h := NewMessagingHandler(nil, zap.NewNop())
	r := gin.New()
	r.POST("/messaging/subscribe", h.Subscribe)
	r.POST("/messaging/test", h.TestTopic)
	r.POST("/messaging/test-token", h.TestToken)

	for _, path := range []string{"/messaging/subscribe", "/messaging/test", "/messaging/test-token"} {
		w := perform(r, http.MethodPost, path, `{"fcmToken": "t", "topic": "x", "topics": ["x"]}`)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status = %d, want 503", path, w.Code)
		}
	}
}

func TestTestNotificationValidation(t *testing.T) {
	h := NewMonitorHandler(nil, nil, nil, nil, zap.NewNop())
	r := gin.New()
	r.POST("/stock-monitor/test", h.TestNotification)

	w := perform(r, http.MethodPost, "/stock-monitor/test", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing productId: status = %d, want 400", w.Code)
	}

	w = perform(r, http.MethodPost, "/stock-monitor/test", `{"productId": 1}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no fcm: status = %d, want 503", w.Code)
	}
}

type stubLookup struct{}

func (stubLookup) Lookup(ctx context.Context, barcode string, variantID *string) (*inventory.StockInfo, error) {
	return nil, inventory.ErrNotFound
}

func (stubLookup) Configured() bool { return true }

func TestCheckUnavailableWithoutFCM(t *testing.T) {
	// A nil FCM service is what the entry point builds when no Firebase
	// credentials are configured; the pass must refuse rather than record
	// sends that never happened.
	m := monitor.New(nil, nil, stubLookup{}, (*service.FCMService)(nil), nil, monitor.Options{})
	h := NewMonitorHandler(m, nil, nil, nil, zap.NewNop())
	r := gin.New()
	r.POST("/stock-monitor/check", h.Check)

	w := perform(r, http.MethodPost, "/stock-monitor/check", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHistoryRejectsBadProductID(t *testing.T) {
	h := NewMonitorHandler(nil, nil, nil, nil, zap.NewNop())
	r := gin.New()
	r.GET("/stock-monitor/history", h.History)

	w := perform(r, http.MethodGet, "/stock-monitor/history?product_id=xyz", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.AuthConfig{
		Enabled:           true,
		Secret:            "test-secret",
		Issuer:            "stockwatch",
		Expiry:            time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	}
	h := NewAuthHandler(cfg, zap.NewNop())
	r := gin.New()
	r.POST("/auth/login", h.Login)

	w := perform(r, http.MethodPost, "/auth/login", `{"username": "admin", "password": "s3cret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("valid login: status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "token") {
		t.Fatalf("response missing token: %s", w.Body.String())
	}

	w = perform(r, http.MethodPost, "/auth/login", `{"username": "admin", "password": "wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d, want 401", w.Code)
	}

	w = perform(r, http.MethodPost, "/auth/login", `{"username": "admin"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status = %d, want 400", w.Code)
	}
}
