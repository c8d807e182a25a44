package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorMalformedRequest = "INTERACTIONS_MALFORMED_REQUEST"
	ErrorUnauthorized     = "INTERACTIONS_UNAUTHORIZED"
	ErrorParse            = "INTERACTIONS_PARSE_ERROR"
	ErrorUnsupported      = "INTERACTIONS_UNSUPPORTED"
	ErrorDoubleResponse   = "INTERACTIONS_DOUBLE_RESPONSE"
	ErrorTimedOut         = "INTERACTIONS_TIMED_OUT"
	ErrorCancelled        = "INTERACTIONS_CANCELLED"
	ErrorNotFound         = "INTERACTIONS_NOT_FOUND"
	ErrorBadInput         = "INTERACTIONS_BAD_INPUT"
	ErrorInternal         = "INTERACTIONS_INTERNAL_ERROR"
)

// MapInteractionError coerces any error into the module's envelope shape,
// filling in category-appropriate status and text codes when missing.
func MapInteractionError(err error) *goerrors.Error {
	return interactionErrorMapper(err)
}

func interactionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"), strings.Contains(msg, "unauthorized"):
		return newInteractionError(err.Error(), goerrors.CategoryAuth, ErrorUnauthorized)
	case strings.Contains(msg, "already finalized"), strings.Contains(msg, "double response"):
		return newInteractionError(err.Error(), goerrors.CategoryConflict, ErrorDoubleResponse)
	case strings.Contains(msg, "not found"):
		return newInteractionError(err.Error(), goerrors.CategoryNotFound, ErrorNotFound)
	case strings.Contains(msg, "decode"), strings.Contains(msg, "parse"):
		return newInteractionError(err.Error(), goerrors.CategoryBadInput, ErrorParse)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newInteractionError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newInteractionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = interactionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorDoubleResponse
	case goerrors.CategoryOperation:
		return ErrorTimedOut
	default:
		return ErrorInternal
	}
}

func interactionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func parseError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorParse)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapParseError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, message).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorParse)
}
