package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snerberd/snerberd/internal/auth"
	"github.com/snerberd/snerberd/internal/handler/dto"
	"github.com/snerberd/snerberd/internal/model"
	"github.com/snerberd/snerberd/internal/service"
)

const (
	codeRecordNotFound    = "RECORD_NOT_FOUND"
	codeOwnershipRequired = "OWNERSHIP_REQUIRED"
	codePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
)

// RecordService is the business logic behind the record endpoints.
type RecordService interface {
	List(ctx context.Context, kind model.Kind) ([]*model.Record, error)
	Get(ctx context.Context, kind model.Kind, id string) (*model.Record, error)
	Create(ctx context.Context, kind model.Kind, requester string, input service.CreateRecordInput) (*model.Record, error)
	Update(ctx context.Context, kind model.Kind, requester, id string, next service.PatchFunc) error
	Delete(ctx context.Context, kind model.Kind, requester, id string) error
}

// RecordHandler serves the CRUD endpoints of one resource kind.
type RecordHandler struct {
	kind    model.Kind
	service RecordService
	logger  *slog.Logger
}

// NewRecordHandler creates a RecordHandler for kind.
func NewRecordHandler(kind model.Kind, svc RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{
		kind:    kind,
		service: svc,
		logger:  logger,
	}
}

// Kind returns the resource kind served by h.
func (h *RecordHandler) Kind() model.Kind {
	return h.kind
}

// List handles GET /{plural}
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context(), h.kind)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		h.kind.Plural: dto.ToRecordResponses(records),
	})
}

// Get handles GET /{plural}/{id}
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), h.kind, chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		h.kind.Singular: dto.ToRecordResponse(rec),
	})
}

// Create handles POST /{plural}
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	body, err := decodeRecordBody(r, h.kind.Singular)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	requester := auth.UserIDFromContext(r.Context())
	input := service.CreateRecordInput{
		Name:            body.Name,
		Length:          body.Length,
		ChannelBindings: body.ChannelBindings,
	}

	rec, err := h.service.Create(r.Context(), h.kind, requester, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("record_created",
		"kind", h.kind.Singular,
		"record_id", rec.ID,
		"owner", rec.Owner,
	)

	writeJSON(w, http.StatusCreated, map[string]any{
		h.kind.Singular: dto.ToRecordResponse(rec),
	})
}

// Update handles PATCH /{plural}/{id}. The body is decoded only after the
// record is found and owned by the requester.
func (h *RecordHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	requester := auth.UserIDFromContext(r.Context())

	decode := func() (model.RecordPatch, error) {
		body, err := decodeRecordBody(r, h.kind.Singular)
		if err != nil {
			return model.RecordPatch{}, err
		}
		return body.Patch(), nil
	}

	if err := h.service.Update(r.Context(), h.kind, requester, id, decode); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("record_updated",
		"kind", h.kind.Singular,
		"record_id", id,
		"user_id", requester,
	)

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /{plural}/{id}
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	requester := auth.UserIDFromContext(r.Context())

	if err := h.service.Delete(r.Context(), h.kind, requester, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("record_deleted",
		"kind", h.kind.Singular,
		"record_id", id,
		"user_id", requester,
	)

	w.WriteHeader(http.StatusNoContent)
}

var errTrailingData = errors.New("trailing data after JSON value")

// requestError is a client error found while decoding a request.
type requestError struct {
	status  int
	code    string
	message string
	fields  []string
}

func (e *requestError) Error() string {
	return e.message
}

// decodeRecordBody reads {"<singular>": {...}} from the request body.
func decodeRecordBody(r *http.Request, singular string) (*dto.RecordBody, error) {
	var envelope map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&envelope)
	if err == nil {
		// The envelope must be the only value in the body.
		if _, err = dec.Token(); errors.Is(err, io.EOF) {
			err = nil
		} else if err == nil {
			err = errTrailingData
		}
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return nil, &requestError{
				status:  http.StatusRequestEntityTooLarge,
				code:    codePayloadTooLarge,
				message: "request body too large",
			}
		case errors.As(err, &typeErr):
			return nil, missingEnvelope(singular)
		default:
			return nil, &requestError{
				status:  http.StatusBadRequest,
				code:    codeInvalidJSON,
				message: "request body is not valid JSON",
			}
		}
	}

	raw, ok := envelope[singular]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, missingEnvelope(singular)
	}

	var body dto.RecordBody
	if err := json.Unmarshal(raw, &body); err != nil {
		field := singular
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field = typeErr.Field
		}
		return nil, &requestError{
			status:  http.StatusUnprocessableEntity,
			code:    codeValidation,
			message: "invalid value for " + field,
			fields:  []string{field},
		}
	}
	return &body, nil
}

func missingEnvelope(singular string) *requestError {
	return &requestError{
		status:  http.StatusUnprocessableEntity,
		code:    codeValidation,
		message: "request body must contain a " + singular + " object",
		fields:  []string{singular},
	}
}

// handleServiceError maps errors to HTTP responses.
func (h *RecordHandler) handleServiceError(w http.ResponseWriter, err error) {
	var reqErr *requestError
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &reqErr):
		writeJSON(w, reqErr.status, dto.ErrorResponse{
			Error:  reqErr.message,
			Code:   reqErr.code,
			Fields: reqErr.fields,
		})
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:  validationErr.Error(),
			Code:   codeValidation,
			Fields: validationErr.Fields,
		})
	case errors.Is(err, service.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, codeRecordNotFound, h.kind.Singular+" not found")
	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusUnauthorized, codeOwnershipRequired, "you must own this "+h.kind.Singular)
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	default:
		h.logger.Error("internal_error", "kind", h.kind.Singular, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "an internal error occurred")
	}
}
