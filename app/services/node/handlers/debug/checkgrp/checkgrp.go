// Package checkgrp implements the debug-only readiness and liveness
// endpoints ops tooling polls against.
package checkgrp

import (
	"encoding/json"
	"net/http"
	"os"

	"go.uber.org/zap"
)

// Handlers groups the collaborators the debug check endpoints need.
type Handlers struct {
	Build string
	Log   *zap.SugaredLogger
}

// Readiness reports whether this node is ready to accept traffic. There
// is no external dependency to probe (no database connection pool, no
// remote service), so readiness here is just "the process is up".
func (h Handlers) Readiness(w http.ResponseWriter, r *http.Request) {
	status := struct {
		Status string `json:"status"`
		Build  string `json:"build"`
	}{
		Status: "OK",
		Build:  h.Build,
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.Log.Errorw("readiness", "ERROR", err)
	}
}

// Liveness reports this node is still running, along with basic process
// identity useful for correlating with orchestrator logs.
func (h Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	host, err := os.Hostname()
	if err != nil {
		host = "unavailable"
	}

	info := struct {
		Status    string `json:"status"`
		Build     string `json:"build"`
		Host      string `json:"host"`
		Pod       string `json:"pod,omitempty"`
		PodIP     string `json:"podIP,omitempty"`
		Node      string `json:"node,omitempty"`
		Namespace string `json:"namespace,omitempty"`
	}{
		Status:    "up",
		Build:     h.Build,
		Host:      host,
		Pod:       os.Getenv("KUBERNETES_PODNAME"),
		PodIP:     os.Getenv("KUBERNETES_NAMESPACE_POD_IP"),
		Node:      os.Getenv("KUBERNETES_NODENAME"),
		Namespace: os.Getenv("KUBERNETES_NAMESPACE"),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.Log.Errorw("liveness", "ERROR", err)
	}
}
