package httpapi

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mikey/llm-dm-relay/internal/core"
	"go.uber.org/zap"
)

// Relay is the part of core.RelayService served over HTTP
type Relay interface {
	Register(ctx context.Context, req core.RegisterRequest) (*core.Registration, error)
	Resolve(ctx context.Context, tenantID string) (*core.Tenant, error)
	Ingest(ctx context.Context, msg core.InboundMessage) error
	Drain(ctx context.Context, tenantID string) (*core.DrainResult, error)
}

// Handler serves the relay API
type Handler struct {
	relay  Relay
	logger *zap.Logger
}

// NewHandler creates a new relay API handler
func NewHandler(relay Relay, logger *zap.Logger) *Handler {
	return &Handler{relay: relay, logger: logger}
}

// RegisterRoutes mounts the relay API on r
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/clients", h.register).Methods(http.MethodPost)
	r.HandleFunc("/clients/{tenant_id}", h.resolve).Methods(http.MethodGet)
	r.HandleFunc("/messages/{tenant_id}", h.ingest).Methods(http.MethodPost)
	r.HandleFunc("/drain/{tenant_id}", h.drain).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	reg, err := h.relay.Register(r.Context(), core.RegisterRequest{
		TenantID:     req.TenantID,
		ClientName:   req.ClientName,
		BusinessName: req.BusinessName,
		PublicKey:    req.PublicKey,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Message:    "Success",
		PublicKey:  reg.Tenant.PublicKey,
		PrivateKey: reg.PrivateKey,
	})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.relay.Resolve(r.Context(), mux.Vars(r)["tenant_id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tenantResponse{
		TenantID:     tenant.ID,
		ClientName:   tenant.ClientName,
		BusinessName: tenant.BusinessName,
		PublicKey:    tenant.PublicKey,
		CreatedAt:    core.FormatTimestamp(tenant.CreatedAt),
	})
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	err := h.relay.Ingest(r.Context(), core.InboundMessage{
		TenantID: mux.Vars(r)["tenant_id"],
		SenderID: req.SenderID,
		Message:  req.Message,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Message: "Success"})
}

func (h *Handler) drain(w http.ResponseWriter, r *http.Request) {
	result, err := h.relay.Drain(r.Context(), mux.Vars(r)["tenant_id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := drainResponse{DBDetails: make([]drainRecord, 0, len(result.Records))}
	for _, rec := range result.Records {
		resp.DBDetails = append(resp.DBDetails, drainRecord{
			SenderID:  rec.SenderID,
			Message:   rec.Message,
			Intent:    rec.Intent,
			Timestamp: core.FormatTimestamp(rec.EnqueuedAt),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
