package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/fabworks/jobshop/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError to adhere to the ≤3 params guideline.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// errorBody is the structured JSON body for rejected and failed requests.
type errorBody struct {
	Error            string   `json:"error"`
	Message          string   `json:"message"`
	MismatchedFields []string `json:"mismatched_fields,omitempty"`
	ExpectedChecksum string   `json:"expected_checksum,omitempty"`
}

// WriteAppError maps the internal error taxonomy onto HTTP statuses and
// renders a structured body. Rejections (412/409) carry the mismatch
// detail clients need to refetch and rebuild their delta.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeValidation:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeConflict, apperrors.ErrCodeUndoConflict:
		status = http.StatusConflict
	case apperrors.ErrCodePrecondition,
		apperrors.ErrCodeChecksumMismatch,
		apperrors.ErrCodeFieldMismatch:
		status = http.StatusPreconditionFailed
	case apperrors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	}

	body := errorBody{
		Error:            string(code),
		Message:          err.Error(),
		MismatchedFields: apperrors.GetMismatchedFields(err),
	}
	if body.Error == "" {
		body.Error = string(apperrors.ErrCodeInternal)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.ExpectedChecksum = appErr.ExpectedChecksum
		// Never leak wrapped internals to clients.
		if appErr.Code == apperrors.ErrCodeInternal {
			body.Message = "internal error"
		}
	}

	WriteJSON(w, status, body)
}
