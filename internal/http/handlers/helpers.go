package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"placementcell/internal/common"
	"placementcell/internal/domain/user"
	"placementcell/internal/http/middleware"
	"placementcell/internal/http/response"
)

const multipartMemory = 8 << 20

func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return common.NewValidationError("request body is required", nil)
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return common.NewValidationError("request body too large", nil)
		case errors.Is(err, io.EOF):
			return common.NewValidationError("request body is required", nil)
		default:
			return common.NewValidationError("invalid request body", map[string]string{"body": err.Error()})
		}
	}
	if decoder.More() {
		return common.NewValidationError("invalid request body", map[string]string{"body": "unexpected trailing data"})
	}
	return nil
}

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "authentication required", nil)
}

// actorFrom writes 401 and returns false when the request carries no caller.
func actorFrom(w http.ResponseWriter, r *http.Request) (user.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Error(w, errUnauthorized())
		return user.Actor{}, false
	}
	return actor, true
}

func pathID(w http.ResponseWriter, r *http.Request) (common.UUID, bool) {
	id, err := common.ParseUUID(r.PathValue("id"))
	if err != nil {
		response.Error(w, common.NewValidationError("invalid id", map[string]string{"id": "must be a uuid"}))
		return "", false
	}
	return id, true
}

func queryUUID(r *http.Request, key string) (common.UUID, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return "", nil
	}
	id, err := common.ParseUUID(value)
	if err != nil {
		return "", common.NewValidationError("invalid query", map[string]string{key: "must be a uuid"})
	}
	return id, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, common.NewValidationError("invalid query", map[string]string{key: "must be an integer"})
	}
	return parsed, nil
}

func queryTime(r *http.Request, key string) (*time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}
	return nil, common.NewValidationError("invalid query", map[string]string{key: "must be RFC3339 or YYYY-MM-DD"})
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func writePage[T any](w http.ResponseWriter, items []T, total int, page common.Page) {
	if items == nil {
		items = []T{}
	}
	response.Paginated(w, items, common.NewPagination(page, total))
}

// formFile reads one multipart part; the caller closes the returned file.
func formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, common.NewValidationError("file too large", map[string]string{field: "file exceeds the upload limit"})
		}
		return nil, nil, common.NewValidationError("invalid multipart form", map[string]string{field: "multipart form expected"})
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, common.NewValidationError("file is required", map[string]string{field: "file is required"})
	}
	return file, header, nil
}

func streamFile(w http.ResponseWriter, rc io.ReadCloser, contentType, filename string, inline bool) {
	defer rc.Close()
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	// Uploaded files (svg logos included) must never run script on the API origin.
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func csvHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
