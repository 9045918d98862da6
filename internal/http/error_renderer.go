package httpx

import (
	"net/http"

	"github.com/brightline/console-auth/internal/apperrors"
)

// statusForError maps the auth error taxonomy onto HTTP status codes.
// Anything unrecognized is a 500 so misclassified failures surface loudly.
func statusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeDecode:
		return http.StatusBadRequest
	case apperrors.ErrCodeInvalidCredentials, apperrors.ErrCodeExpired, apperrors.ErrCodeInteractionRequired:
		return http.StatusUnauthorized
	case apperrors.ErrCodeNotRegistered:
		return http.StatusNotFound
	case apperrors.ErrCodeProviderUnavailable:
		return http.StatusBadGateway
	case apperrors.ErrCodeNetwork, apperrors.ErrCodeProfileFetch:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RenderError writes the JSON error envelope for an auth failure, carrying
// the taxonomy code so the console shell can branch without string matching.
func RenderError(w http.ResponseWriter, err error) {
	WriteError(w, ErrorParams{
		Code:    statusForError(err),
		ErrCode: string(apperrors.GetCode(err)),
		Err:     err,
	})
}
