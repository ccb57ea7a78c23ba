package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SignalEngine/internal/domain/models"
	domsvc "SignalEngine/internal/domain/service"
	"SignalEngine/internal/usecase"
	xhttp "SignalEngine/pkg/http"

	"github.com/labstack/echo/v4"
)

type stubService struct {
	lastSymbol string
	lastFamily string
	lastReq    models.HistoryRequest
	err        error
}

func (s *stubService) Evaluate(_ context.Context, symbol, family string, _ models.RawSnapshot) (*models.SignalResult, error) {
	s.lastSymbol, s.lastFamily = symbol, family
	if s.err != nil {
		return nil, s.err
	}
	return &models.SignalResult{Symbol: symbol, Family: family, Signal: models.SignalBuy, Confidence: 70}, nil
}

func (s *stubService) EvaluateBatch(_ context.Context, family string, items []models.BatchItem) ([]models.BatchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.BatchResult, len(items))
	for i, it := range items {
		out[i] = models.BatchResult{Symbol: it.Symbol, Result: &models.SignalResult{Symbol: it.Symbol, Family: family}}
	}
	return out, nil
}

func (s *stubService) History(_ context.Context, req models.HistoryRequest) ([]*models.SignalResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return []*models.SignalResult{{Symbol: req.Symbol}}, nil
}

func (s *stubService) Families() []models.FamilyConfig {
	return []models.FamilyConfig{{Name: "camarilla"}, {Name: "pivot"}}
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func newTestServer(svc SignalService, limiter interface{ Allow(string) bool }) *xhttp.Server {
	return xhttp.NewServer([]xhttp.Handler{NewSignalsEchoHandler(nil, svc, limiter)})
}

func call(s *xhttp.Server, method, path, body string) (int, xhttp.APIResponse, []byte) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var resp xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec.Code, resp, rec.Body.Bytes()
}

func TestEvaluateEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "ok",
			body:       `{"symbol":"NIFTY","family":"pivot","snapshot":{"price":24500}}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing snapshot",
			body:       `{"symbol":"NIFTY"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_REQUIRED",
		},
		{
			name:       "malformed json",
			body:       `{"symbol":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_BIND",
		},
		{
			name:       "unknown family",
			body:       `{"family":"astrology","snapshot":{"price":1}}`,
			err:        fmt.Errorf("%w: %q", domsvc.ErrUnknownFamily, "astrology"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_UNKNOWN_FAMILY",
		},
		{
			name:       "unexpected failure",
			body:       `{"snapshot":{"price":1}}`,
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			status, _, body := call(newTestServer(svc, nil), http.MethodPost, "/api/signals/evaluate", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", status, tt.wantStatus, body)
			}
			if tt.wantCode != "" && !strings.Contains(string(body), tt.wantCode) {
				t.Errorf("expected code %s in %s", tt.wantCode, body)
			}
		})
	}
}

func TestEvaluateEndpointPassesFields(t *testing.T) {
	svc := &stubService{}
	status, resp, _ := call(newTestServer(svc, nil), http.MethodPost, "/api/signals/evaluate",
		`{"symbol":"BANKNIFTY","family":"options","snapshot":{"price":51000}}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if svc.lastSymbol != "BANKNIFTY" || svc.lastFamily != "options" {
		t.Errorf("got symbol %q family %q", svc.lastSymbol, svc.lastFamily)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["signal"] != string(models.SignalBuy) {
		t.Errorf("unexpected data %v", resp.Data)
	}
}

func TestBatchEndpoint(t *testing.T) {
	s := newTestServer(&stubService{}, nil)

	status, resp, body := call(s, http.MethodPost, "/api/signals/batch",
		`{"family":"pivot","items":[{"symbol":"A","snapshot":{"price":1}},{"symbol":"B","snapshot":{"price":2}}]}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, body)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["total"] != float64(2) {
		t.Errorf("expected total 2, got %v", data["total"])
	}

	status, _, _ = call(s, http.MethodPost, "/api/signals/batch", `{"items":[]}`)
	if status != http.StatusBadRequest {
		t.Errorf("empty batch: status = %d, want 400", status)
	}
	status, _, _ = call(s, http.MethodPost, "/api/signals/batch", `{"items":[{"snapshot":{"price":1}}]}`)
	if status != http.StatusBadRequest {
		t.Errorf("item without symbol: status = %d, want 400", status)
	}
}

func TestFamiliesEndpoint(t *testing.T) {
	status, resp, _ := call(newTestServer(&stubService{}, nil), http.MethodGet, "/api/signals/families", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	data, _ := resp.Data.(map[string]interface{})
	if data["total"] != float64(2) {
		t.Errorf("expected 2 families, got %v", data["total"])
	}
}

func TestHistoryEndpoint(t *testing.T) {
	t.Run("defaults limit", func(t *testing.T) {
		svc := &stubService{}
		status, _, body := call(newTestServer(svc, nil), http.MethodGet, "/api/signals/history?symbol=NIFTY&from=2025-01-02", "")
		if status != http.StatusOK {
			t.Fatalf("status = %d: %s", status, body)
		}
		if svc.lastReq.Limit != 100 || svc.lastReq.From != "2025-01-02" {
			t.Errorf("unexpected request %+v", svc.lastReq)
		}
	})

	t.Run("symbol required", func(t *testing.T) {
		status, _, _ := call(newTestServer(&stubService{}, nil), http.MethodGet, "/api/signals/history", "")
		if status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("limit bounded", func(t *testing.T) {
		status, _, _ := call(newTestServer(&stubService{}, nil), http.MethodGet, "/api/signals/history?symbol=X&limit=5000", "")
		if status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("store disabled", func(t *testing.T) {
		svc := &stubService{err: usecase.ErrHistoryUnavailable}
		status, _, _ := call(newTestServer(svc, nil), http.MethodGet, "/api/signals/history?symbol=X", "")
		if status != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", status)
		}
	})
}

func TestRateLimitedGroup(t *testing.T) {
	status, _, _ := call(newTestServer(&stubService{}, denyAll{}), http.MethodGet, "/api/signals/families", "")
	if status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", status)
	}
}
