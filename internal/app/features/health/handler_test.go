package health_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/features/health"
	"github.com/dalemusser/volunteerhub/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Message  string `json:"message"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var r response
	if err := json.Unmarshal(rec.Body.Bytes(), &r); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return r
}

func TestServe_DatabaseConnected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := health.NewHandler(db.Client(), nil, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	resp := decode(t, rec)
	if resp.Status != "ok" || resp.Database != "connected" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Redis != "" {
		t.Errorf("redis should be omitted when not configured, got %q", resp.Redis)
	}
}

func TestServe_DatabaseDisconnected(t *testing.T) {
	// A client pointed at a closed port never becomes reachable.
	client, err := mongo.Connect(context.Background(), options.Client().
		ApplyURI("mongodb://127.0.0.1:1").
		SetServerSelectionTimeout(200*time.Millisecond))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	handler := health.NewHandler(client, nil, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Status != "error" || resp.Database != "disconnected" || resp.Message != "Database unavailable" {
		t.Errorf("response = %+v", resp)
	}
}

func TestServe_RedisDownIsDegraded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	handler := health.NewHandler(db.Client(), rdb, zap.NewNop())
	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	resp := decode(t, rec)
	if resp.Status != "degraded" || resp.Redis != "disconnected" {
		t.Errorf("response = %+v", resp)
	}
}
