package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/Clark-Hu/movie-diary/internal/apierror"
	"github.com/Clark-Hu/movie-diary/internal/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgInvalidToken     = "Given token not valid for any token type"
	msgNotFound         = "Not found."
	msgThrottled        = "Request was throttled. Please try again later."
	msgServerError      = "A server error occurred."
)

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeBody(w, r, dst, true)
}

// decodeLenientBody ignores unknown fields, so a client may send a full record where only some fields are writable.
func decodeLenientBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeBody(w, r, dst, false)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.WithError(err).Error("failed to encode response")
		}
	}
}

func (s *Server) respondPayload(w http.ResponseWriter, status int, payload *apierror.Payload) {
	s.respondJSON(w, status, payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	s.respondPayload(w, status, apierror.New(format, args...))
}

func (s *Server) respondDetail(w http.ResponseWriter, status int, msg string) {
	s.respondPayload(w, status, apierror.NewDetail(msg))
}

func (s *Server) respondFields(w http.ResponseWriter, errs []domain.FieldError) {
	payload := &apierror.Payload{}
	for _, fe := range errs {
		payload.AddField(fe.Field, fe.Message)
	}
	s.respondPayload(w, http.StatusBadRequest, payload)
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondDetail(w, http.StatusBadRequest, fmt.Sprintf("JSON parse error - malformed payload at offset %d", syntaxError.Offset))
	case errors.As(err, &typeError):
		s.respondPayload(w, http.StatusBadRequest, (&apierror.Payload{}).AddField(typeError.Field, typeMessage(typeError)))
	case errors.As(err, &maxBytesError):
		s.respondDetail(w, http.StatusRequestEntityTooLarge, "Request body too large.")
	case errors.Is(err, io.EOF):
		s.respondDetail(w, http.StatusBadRequest, "Request body cannot be empty.")
	default:
		s.respondDetail(w, http.StatusBadRequest, fmt.Sprintf("JSON parse error - %v", err))
	}
}

func typeMessage(err *json.UnmarshalTypeError) string {
	if err.Type == nil {
		return "Incorrect type."
	}
	switch err.Type.Kind() {
	case reflect.Float32, reflect.Float64:
		return "A valid number is required."
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	default:
		return "Incorrect type."
	}
}
