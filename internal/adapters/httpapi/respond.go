package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mikey/llm-dm-relay/internal/core"
	"go.uber.org/zap"
)

const msgClientNotFound = "Client Does not Exist"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a single JSON object, rejecting unknown fields and trailing data
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", core.ErrInvalidRequest)
	}
	return nil
}

// statusFor maps an error onto its HTTP status. AlreadyExists and
// DrainInProgress are reported as 500 and told apart by code.
func statusFor(err error) int {
	switch core.ErrorCode(err) {
	case core.CodeInvalidRequest:
		return http.StatusBadRequest
	case core.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// failedMessage is the human readable reason. Internal detail stays in the log.
func failedMessage(err error) string {
	switch core.ErrorCode(err) {
	case core.CodeNotFound:
		return msgClientNotFound
	case core.CodeAlreadyExists:
		return "Client already exists"
	case core.CodeInvalidRequest:
		return err.Error()
	case core.CodeDrainInProgress:
		return "Drain already in progress"
	case core.CodeEncryptionFailure:
		return "Encryption failed"
	case core.CodeStoreFailure:
		return "Store unavailable"
	default:
		return "Internal error"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := core.ErrorCode(err)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", code),
		zap.Int("status", status),
		zap.String("request_id", requestID(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Info("Request rejected", fields...)
	}

	writeJSON(w, status, errorResponse{Failed: failedMessage(err), Code: code})
}
