package storagenode

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestHandlePutStoresValue(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	body := `{"key":"user:1","value":{"name":"Alice"}}`
	req := httptest.NewRequest(http.MethodPost, "/put", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if len(n.Keys()) != 1 {
		t.Error("expected one key stored")
	}
}

func TestHandlePutMissingKeyRejected(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodPost, "/put", bytes.NewBufferString(`{"value":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleGetPathFound(t *testing.T) {
	n := newTestNode()
	_ = n.Put("user:1", []byte(`"Alice"`))
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodGet, "/get/user:1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Value != "Alice" {
		t.Errorf("value = %q, want Alice", resp.Value)
	}
}

func TestHandleGetPathNotFound(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodGet, "/get/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleGetBodyFallback(t *testing.T) {
	n := newTestNode()
	_ = n.Put("key/with/slashes", []byte(`"v"`))
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodPost, "/get", bytes.NewBufferString(`{"key":"key/with/slashes"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestHandleDeletePathRemovesKey(t *testing.T) {
	n := newTestNode()
	_ = n.Put("k", []byte("1"))
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodDelete, "/delete/k", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(n.Keys()) != 0 {
		t.Error("expected key to be removed")
	}
}

func TestHandleDeleteNotFound(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodDelete, "/delete/missing", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleDeleteBodyFallback(t *testing.T) {
	n := newTestNode()
	_ = n.Put("special key", []byte("1"))
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodPost, "/delete", bytes.NewBufferString(`{"key":"special key"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleKeysReturnsCountAndNodeID(t *testing.T) {
	n := newTestNode()
	_ = n.Put("a", []byte("1"))
	_ = n.Put("b", []byte("2"))
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodGet, "/keys", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp struct {
		Keys   []string `json:"keys"`
		Count  int      `json:"count"`
		NodeID string   `json:"node_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.NodeID != "node-test" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleHealthy(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestHandleHealthStoppingAfterShutdown(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodPost, "/admin/shutdown", nil)
	mux.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleStats(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var stats StatsView
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.NodeID != "node-test" {
		t.Errorf("NodeID = %q, want node-test", stats.NodeID)
	}
}

func TestHandleSpecialCharacterKeysPathForm(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	for _, key := range []string{"key with spaces", "key/with/slashes", "🔑_emoji_key"} {
		putBody, _ := json.Marshal(map[string]any{"key": key, "value": "v"})
		putReq := httptest.NewRequest(http.MethodPost, "/put", bytes.NewReader(putBody))
		putRec := httptest.NewRecorder()
		mux.ServeHTTP(putRec, putReq)
		if putRec.Code != http.StatusOK {
			t.Fatalf("put %q: status = %d", key, putRec.Code)
		}

		getReq := httptest.NewRequest(http.MethodGet, "/get/"+url.PathEscape(key), nil)
		getRec := httptest.NewRecorder()
		mux.ServeHTTP(getRec, getReq)
		if getRec.Code != http.StatusOK {
			t.Errorf("get %q via path form: status = %d", key, getRec.Code)
		}
	}
}

func TestHandleWrongMethodRejected(t *testing.T) {
	n := newTestNode()
	mux := NewMux(n)

	req := httptest.NewRequest(http.MethodGet, "/put", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
