package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dreamware/kvring/internal/gossip"
)

// NewMux builds the gateway's HTTP surface, exactly the endpoints, verbs,
// and JSON shapes described by the design's external-interfaces section.
func NewMux(s *Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/nodes", s.handleNodes)
	mux.HandleFunc("/nodes/", s.handleOwnerOf)
	mux.HandleFunc("/ring/status", s.handleRingStatus)
	mux.HandleFunc("/gossip", s.handleGossip)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/admin/clear_nodes", s.handleAdminClearNodes)
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

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

type heartbeatRequest struct {
	NodeID  string `json:"node_id"`
	Address string `json:"address"`
	Port    int    `json:"port"`
}

func (s *Service) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.NodeID == "" || req.Address == "" || req.Port == 0 {
		writeError(w, http.StatusBadRequest, "missing node_id, address, or port")
		return
	}

	s.Heartbeat(req.NodeID, req.Address, req.Port)
	writeJSON(w, http.StatusOK, map[string]string{"status": "heartbeat_received"})
}

func (s *Service) handleNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": s.ListNodes()})
}

func (s *Service) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/nodes/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}

	node, ok := s.OwnerOf(key)
	if !ok {
		writeError(w, http.StatusNotFound, "ring is empty")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"key": key, "node": node})
}

func (s *Service) handleRingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.RingStatus())
}

func (s *Service) handleGossip(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var msg gossip.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.Gossip(msg)
	writeJSON(w, http.StatusOK, map[string]string{"status": "gossip_received"})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.Health())
}

func (s *Service) handleAdminClearNodes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cleared := s.AdminClearNodes()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"cleared_nodes": cleared,
		"gateway_id":    s.cfg.GatewayID,
	})
}
