package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/status"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Handler is the HTTP handler for all /api/v1/* endpoints. It reads the
// last cycle outcome from the status holder and returns JSON responses.
type Handler struct {
	latest *status.Latest
	mux    *http.ServeMux
}

// New creates a Handler wired to the given status holder and registers
// all routes.
func New(latest *status.Latest) http.Handler {
	h := &Handler{latest: latest, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/vms", h.listVMs)
	h.mux.HandleFunc("/api/v1/vms/", h.getVM) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/report", h.report)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — the fleet roll-up of the last cycle.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	o, ok := h.latest.Get()
	if !ok {
		jsonResp(w, http.StatusOK, HealthResponse{State: "unknown"})
		return
	}

	jsonResp(w, http.StatusOK, HealthResponse{
		State:       string(o.Bundle.Severity),
		Total:       o.Summary.Total,
		Online:      o.Summary.Online,
		Offline:     o.Summary.Offline,
		OnlinePct:   o.Summary.OnlinePct,
		AvgCPU:      o.Summary.AvgCPU,
		AvgMemory:   o.Summary.AvgMemory,
		AvgDisk:     o.Summary.AvgDisk,
		GeneratedAt: o.Bundle.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// listVMs returns GET /api/v1/vms — every VM in the last collected batch.
func (h *Handler) listVMs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	o, ok := h.latest.Get()
	if !ok {
		jsonResp(w, http.StatusOK, []VMResponse{})
		return
	}

	out := make([]VMResponse, 0, len(o.Snapshots))
	for _, s := range o.Snapshots {
		out = append(out, toVMResponse(s))
	}
	jsonResp(w, http.StatusOK, out)
}

// getVM returns GET /api/v1/vms/{id} — a single VM from the last batch.
func (h *Handler) getVM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/vms/")
	if id == "" {
		h.listVMs(w, r)
		return
	}

	o, ok := h.latest.Get()
	if ok {
		for _, s := range o.Snapshots {
			if s.ID == id {
				jsonResp(w, http.StatusOK, toVMResponse(s))
				return
			}
		}
	}
	jsonErr(w, http.StatusNotFound, "vm not found")
}

// report returns GET /api/v1/report — the last cycle's full outcome.
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	o, ok := h.latest.Get()
	if !ok {
		jsonErr(w, http.StatusNotFound, "no cycle completed yet")
		return
	}
	jsonResp(w, http.StatusOK, BuildReport(o))
}

// BuildReport maps a cycle outcome to its JSON representation. Shared with
// the WebSocket hub so both surfaces emit the same shape.
func BuildReport(o *status.Outcome) ReportResponse {
	return ReportResponse{
		CycleID:     o.CycleID,
		GeneratedAt: o.Bundle.GeneratedAt.UTC().Format(time.RFC3339),
		Summary:     o.Summary,
		Bundle:      o.Bundle,
		Delivered:   o.Delivered,
		Channels:    o.Results,
	}
}

// --- helpers ----------------------------------------------------------------

func toVMResponse(s types.Snapshot) VMResponse {
	return VMResponse{
		ID:            s.ID,
		Name:          s.Name,
		Hostname:      s.Hostname,
		Address:       s.Address,
		Online:        s.Online,
		CPUPercent:    s.CPUPercent,
		MemoryPercent: s.MemoryPercent,
		DiskPercent:   s.DiskPercent,
		ObservedAt:    s.ObservedAt.UTC().Format(time.RFC3339),
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
