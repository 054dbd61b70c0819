package marketplace

import (
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

// UpstreamError is a non-success response from the marketplace API.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
	Path    string
}

func newUpstreamError(status int, path string, env envelope) *UpstreamError {
	upErr := &UpstreamError{Status: status, Path: path, Message: strings.TrimSpace(env.Message)}
	if env.Error != nil {
		upErr.Code = env.Error.Code
		if msg := strings.TrimSpace(env.Error.Message); msg != "" {
			upErr.Message = msg
		}
	}
	if upErr.Message == "" {
		upErr.Message = http.StatusText(status)
	}
	if upErr.Message == "" {
		upErr.Message = "request rejected"
	}
	return upErr
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("marketplace %s: status %d %s: %s", e.Path, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("marketplace %s: status %d: %s", e.Path, e.Status, e.Message)
}

func (e *UpstreamError) UpstreamStatus() int     { return e.Status }
func (e *UpstreamError) UpstreamCode() string    { return e.Code }
func (e *UpstreamError) UpstreamMessage() string { return e.Message }
func (e *UpstreamError) UpstreamPath() string    { return e.Path }

// classify maps the upstream status onto gateway error codes. The server message is kept verbatim.
func classify(upErr *UpstreamError) error {
	var code pkgerrors.Code
	switch {
	case upErr.Status == http.StatusUnauthorized:
		code = pkgerrors.CodeUnauthorized
	case upErr.Status == http.StatusForbidden:
		code = pkgerrors.CodeForbidden
	case upErr.Status == http.StatusNotFound:
		code = pkgerrors.CodeNotFound
	case upErr.Status >= 500:
		code = pkgerrors.CodeDependency
	default:
		code = pkgerrors.CodeUpstreamRejected
	}
	wrapped := pkgerrors.Wrap(code, upErr, upErr.Message)
	if upErr.Code != "" {
		wrapped = wrapped.WithDetails(map[string]any{"upstream_code": upErr.Code})
	}
	return wrapped
}
