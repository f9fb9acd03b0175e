package server

import (
	"encoding/json"
	"io"
	"net/http"

	pkgerrors "github.com/matzehuels/mindmap/pkg/errors"
)

// maxBodySize bounds request bodies; images are sent inline as base64.
const maxBodySize = 40 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code pkgerrors.Code) int {
	switch code {
	case pkgerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case pkgerrors.ErrCodeCycleDetected,
		pkgerrors.ErrCodeCannotRemoveRoot,
		pkgerrors.ErrCodeCannotReparentRoot,
		pkgerrors.ErrCodeAlreadyInitialized:
		return http.StatusConflict
	case pkgerrors.ErrCodeInvalidInput,
		pkgerrors.ErrCodeInvalidFormat,
		pkgerrors.ErrCodeInvalidPath,
		pkgerrors.ErrCodeParseFailure:
		return http.StatusBadRequest
	case pkgerrors.ErrCodeInvalidDocument:
		return http.StatusUnprocessableEntity
	case pkgerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := pkgerrors.GetCode(err)
	if code == "" {
		code = pkgerrors.ErrCodeInternal
	}
	status := statusFor(code)
	msg := pkgerrors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("internal error", "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

// decode reads a JSON body into v and validates its struct tags.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return pkgerrors.ValidateStruct(v)
}
