package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as a bare 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrStoreIDMismatch):
		resp := errorResponse{Error: domain.ErrStoreIDMismatch.Error()}
		if errors.As(err, &ve) {
			resp.Fields = ve.Fields
		}
		writeJSON(w, http.StatusBadRequest, resp)
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "store not found"})
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

// decodeJSON reads one JSON object from the request body. Malformed input is
// reported as a ValidationError naming the offending field when known.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return domain.NewValidationError(typeErr.Field, "must not be a JSON "+typeErr.Value)
		case errors.Is(err, io.EOF):
			return domain.NewValidationError("body", "is required")
		default:
			return domain.NewValidationError("body", "must be a valid JSON object: "+err.Error())
		}
	}
	return nil
}

// queryParser collects every bad query parameter before reporting.
type queryParser struct {
	values url.Values
	fields []domain.FieldError
}

func newQueryParser(r *http.Request) *queryParser {
	return &queryParser{values: r.URL.Query()}
}

func (p *queryParser) fail(key, message string) {
	p.fields = append(p.fields, domain.FieldError{Field: key, Message: message})
}

func (p *queryParser) requiredFloat(key string) float64 {
	if p.values.Get(key) == "" {
		p.fail(key, "is required")
		return 0
	}
	return p.float(key, 0)
}

func (p *queryParser) float(key string, def float64) float64 {
	raw := p.values.Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, "must be a number")
		return def
	}
	return v
}

func (p *queryParser) int(key string, def int) int {
	raw := p.values.Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, "must be an integer")
		return def
	}
	return v
}

func (p *queryParser) page() domain.Page {
	return domain.Page{
		Skip:  p.int("skip", 0),
		Limit: p.int("limit", domain.DefaultLimit),
	}
}

func (p *queryParser) err() error {
	if len(p.fields) == 0 {
		return nil
	}
	return &domain.ValidationError{Fields: p.fields}
}
