package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/wren/internal/application"
	"github.com/sp3dr4/wren/internal/domain"
	"github.com/sp3dr4/wren/internal/pkg/metrics"
)

type Handlers struct {
	service *application.LinkService
	store   domain.LinkStore
	metrics metrics.Registry
}

func NewHandlers(service *application.LinkService, store domain.LinkStore, registry metrics.Registry) *Handlers {
	return &Handlers{
		service: service,
		store:   store,
		metrics: registry,
	}
}

// HandleHealth handles the health check endpoint.
//
//	@Summary		Health check endpoint
//	@Description	Check if the service is running
//	@Tags			health
//	@Produce		plain
//	@Success		200	{string}	string	"OK"
//	@Router			/health [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// HandleReady handles the readiness check endpoint.
//
//	@Summary		Readiness check endpoint
//	@Description	Check if the service is ready to serve requests (includes database connectivity)
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	object{status=string,timestamp=string}	"Service is ready"
//	@Failure		503	{object}	ErrorResponse							"Service is not ready"
//	@Router			/ready [get]
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		slog.Error("Readiness check failed", "error", err)
		respondWithError(w, http.StatusServiceUnavailable, "Service not ready: database unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleShorten handles the link shortening endpoint.
//
//	@Summary		Create a short link
//	@Description	Allocate a short identifier for a URL, reusing any existing mapping
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		application.ShortenURLRequest	true	"URL to shorten"
//	@Success		201		{object}	application.ShortenURLResponse	"Short link for the URL"
//	@Failure		400		{object}	ValidationErrorResponse			"Invalid request or validation error"
//	@Router			/api/shorten [post]
func (h *Handlers) HandleShorten(w http.ResponseWriter, r *http.Request) {
	var req application.ShortenURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	response, err := h.service.ShortenURL(r.Context(), req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			handleValidationError(w, validationErrors)
			return
		}

		if errors.Is(err, domain.ErrAllocationExhausted) {
			slog.Error("Short ID allocation exhausted", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to allocate short ID")
			return
		}

		slog.Error("Failed to shorten URL", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to shorten URL")
		return
	}

	h.metrics.IncLinksCreated()
	slog.Info("Shortened URL", "short_id", response.ShortID, "original_url", response.OriginalURL)
	respondWithJSON(w, http.StatusCreated, response)
}

// HandleRewrite handles the HTML link rewriting endpoint.
//
//	@Summary		Rewrite links in an HTML document
//	@Description	Replace every absolute http/https link in the document with a short link
//	@Tags			links
//	@Accept			html
//	@Produce		html
//	@Param			document	body		string	true	"HTML document to rewrite"
//	@Success		200			{string}	string	"Rewritten document"
//	@Failure		400			{object}	ErrorResponse	"Empty or oversized document"
//	@Router			/api/rewrite [post]
func (h *Handlers) HandleRewrite(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rewritten, err := h.service.RewriteDocument(r.Context(), doc)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDocument) {
			respondWithError(w, http.StatusBadRequest, "Invalid document: "+err.Error())
			return
		}
		slog.Error("Failed to rewrite document", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to rewrite document")
		return
	}

	h.metrics.IncDocumentsRewritten()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rewritten); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// HandleRedirect handles the redirect endpoint.
//
//	@Summary		Redirect to original URL
//	@Description	Redirect to the original URL for a short identifier
//	@Tags			links
//	@Param			shortID	path	string	true	"Short identifier"
//	@Success		302		"Redirect to original URL"
//	@Failure		404		{object}	ErrorResponse	"Short link not found"
//	@Router			/r/{shortID} [get]
func (h *Handlers) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortID")

	originalURL, err := h.service.Resolve(r.Context(), shortID)
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			respondWithError(w, http.StatusNotFound, "Short link not found")
			return
		}
		slog.Error("Failed to resolve short ID", "error", err, "short_id", shortID)
		respondWithError(w, http.StatusInternalServerError, "Failed to resolve short link")
		return
	}

	h.metrics.IncRedirects()
	slog.Info("Redirecting", "short_id", shortID, "original_url", originalURL)
	http.Redirect(w, r, originalURL, http.StatusFound)
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     map[string]string `json:"error"`
	Timestamp string            `json:"timestamp" example:"2024-01-31T12:00:00Z"`
}

// ValidationErrorResponse represents a validation error response.
type ValidationErrorResponse struct {
	Details map[string]string `json:"details"`
	Error   string            `json:"error" example:"Validation failed"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"error": map[string]string{
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func handleValidationError(w http.ResponseWriter, validationErrors validator.ValidationErrors) {
	errorMessages := make(map[string]string)
	for _, e := range validationErrors {
		field := getJSONFieldName(e)
		switch e.Tag() {
		case "required":
			errorMessages[field] = fmt.Sprintf("%s is required", field)
		case "url":
			errorMessages[field] = fmt.Sprintf("%s must be a valid URL", field)
		case "min":
			errorMessages[field] = fmt.Sprintf("%s must be at least %s characters long", field, e.Param())
		case "max":
			errorMessages[field] = fmt.Sprintf("%s must be at most %s characters long", field, e.Param())
		default:
			errorMessages[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	respondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "Validation failed",
		"details": errorMessages,
	})
}

// getJSONFieldName extracts the JSON tag name from a validation error
func getJSONFieldName(e validator.FieldError) string {
	structType := getStructTypeFromError(e)
	if structType == nil {
		return e.Field()
	}

	field, found := structType.FieldByName(e.StructField())
	if !found {
		return e.Field()
	}

	jsonTag := field.Tag.Get("json")
	if jsonTag == "" {
		return e.Field()
	}

	if commaIndex := strings.Index(jsonTag, ","); commaIndex != -1 {
		jsonTag = jsonTag[:commaIndex]
	}

	return jsonTag
}

// getStructTypeFromError extracts the struct type from a validation error
func getStructTypeFromError(e validator.FieldError) reflect.Type {
	// The StructNamespace gives us something like "ShortenURLRequest.URL"
	namespace := e.StructNamespace()

	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return nil
	}

	return getTypeFromStructName(parts[0])
}

// getTypeFromStructName returns the reflect.Type for a given struct name
// This acts as a registry for known request types
func getTypeFromStructName(structName string) reflect.Type {
	switch structName {
	case "ShortenURLRequest":
		return reflect.TypeOf(application.ShortenURLRequest{})
	default:
		return nil
	}
}
