package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"coipond/internal/config"
	"coipond/internal/domain"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		// Retries are exhausted by now; the client decides whether to try again
		slog.Warn("update gave up after repeated conflicts", "error", err)
		httputil.RespondError(w, http.StatusConflict, "could not update blueprint, please try again")
	case errors.As(err, &conflictErr):
		httputil.RespondError(w, http.StatusConflict, conflictErr.Error())
	case errors.Is(err, domain.ErrRateLimited):
		httputil.RespondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrExternalService):
		slog.Error("external service failed", "error", err)
		httputil.RespondError(w, http.StatusBadGateway, "upstream service unavailable")
	default:
		slog.Error("unexpected error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleCreateConflict handles conflicts during creation by returning the existing resource with 409
// If the error is a ConflictError, it calls fetchFn to retrieve the existing resource
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func(id string) (*T, error)) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		existing, fetchErr := fetchFn(conflictErr.ResourceID)
		if fetchErr != nil {
			handleError(w, fetchErr)
			return
		}

		httputil.RespondJSON(w, http.StatusConflict, existing)
		return
	}

	handleError(w, err)
}

// readUpload reads an optional image part of a parsed multipart form.
// Returns nil when the field is absent.
func readUpload(r *http.Request, field string) (*bpSvc.ScreenshotUpload, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s upload: %v", domain.ErrValidation, field, err)
	}
	defer file.Close()

	// One extra byte so oversize images reach the size check instead of being truncated
	data, err := io.ReadAll(io.LimitReader(file, config.MaxScreenshotSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: could not read %s: %v", domain.ErrValidation, field, err)
	}

	return &bpSvc.ScreenshotUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// maxMultipartBody bounds a submission: blueprint text, description, one screenshot and form overhead
const maxMultipartBody = config.MaxBlueprintTextLength + config.MaxDescriptionLength + config.MaxScreenshotSize + 1<<20

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(config.MaxScreenshotSize + 1<<20); err != nil {
		return fmt.Errorf("%w: invalid form: %v", domain.ErrValidation, err)
	}
	return nil
}
