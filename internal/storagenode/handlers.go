package storagenode

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreamware/kvring/internal/storage"
)

// NewMux builds a storage node's HTTP surface: the endpoints, verbs, and
// JSON shapes of the data-plane contract.
func NewMux(n *Node) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/put", n.handlePut)
	mux.HandleFunc("/get/", n.handleGetPath)
	mux.HandleFunc("/get", n.handleGetBody)
	mux.HandleFunc("/delete/", n.handleDeletePath)
	mux.HandleFunc("/delete", n.handleDeleteBody)
	mux.HandleFunc("/keys", n.handleKeys)
	mux.HandleFunc("/health", n.handleHealth)
	mux.HandleFunc("/stats", n.handleStats)
	mux.HandleFunc("/admin/shutdown", n.handleAdminShutdown)
	mux.Handle("/metrics", promhttp.HandlerFor(n.metrics.Registry, promhttp.HandlerOpts{}))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type putRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (n *Node) handlePut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req putRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}

	if err := n.Put(req.Key, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "stored", "key": req.Key, "node_id": n.cfg.NodeID,
	})
}

func (n *Node) handleGetPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/get/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}
	n.respondGet(w, key)
}

func (n *Node) handleGetBody(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}
	n.respondGet(w, req.Key)
}

func (n *Node) respondGet(w http.ResponseWriter, key string) {
	value, err := n.Get(key)
	if err == storage.ErrKeyNotFound {
		writeError(w, http.StatusNotFound, "Key not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"key": key, "value": json.RawMessage(value), "node_id": n.cfg.NodeID,
	})
}

func (n *Node) handleDeletePath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := strings.TrimPrefix(r.URL.Path, "/delete/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}
	n.respondDelete(w, key)
}

func (n *Node) handleDeleteBody(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}
	n.respondDelete(w, req.Key)
}

func (n *Node) respondDelete(w http.ResponseWriter, key string) {
	err := n.Delete(key)
	if err == storage.ErrKeyNotFound {
		writeError(w, http.StatusNotFound, "Key not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "deleted", "key": key, "node_id": n.cfg.NodeID,
	})
}

func (n *Node) handleKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	keys := n.Keys()
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": keys, "count": len(keys), "node_id": n.cfg.NodeID,
	})
}

func (n *Node) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health := n.Health()
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (n *Node) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, n.Stats())
}

func (n *Node) handleAdminShutdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	n.Stop()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "shutting_down", "node_id": n.cfg.NodeID,
	})
}
