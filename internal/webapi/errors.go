// Package webapi implements the JSON/XML web API envelope: response
// rendering with format negotiation, the error code table, login and
// permission guards, and request field validation.
package webapi

import (
	"fmt"
	"net/http"
)

// APIError is a stable numeric error code with a default message and
// HTTP status. Errors render inside the response envelope as
// {"stat":"fail","err":{"code":N,"msg":"..."}}.
type APIError struct {
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
	HTTPStatus int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Msg)
}

// WithMessage returns a copy of the error carrying a custom message.
// Code and HTTP status are preserved.
func (e *APIError) WithMessage(msg string) *APIError {
	return &APIError{Code: e.Code, Msg: msg, HTTPStatus: e.HTTPStatus}
}

// The error code table. Codes are part of the wire contract and must
// never be renumbered; clients switch on them.
var (
	NoError                 = &APIError{Code: 0, Msg: "If you see this, yell at the developers", HTTPStatus: http.StatusOK}
	ErrServiceNotConfigured = &APIError{Code: 1, Msg: "The web service has not yet been configured", HTTPStatus: http.StatusServiceUnavailable}

	ErrDoesNotExist     = &APIError{Code: 100, Msg: "Object does not exist", HTTPStatus: http.StatusNotFound}
	ErrPermissionDenied = &APIError{Code: 101, Msg: "You don't have permission for this", HTTPStatus: http.StatusForbidden}
	ErrInvalidAttribute = &APIError{Code: 102, Msg: "Invalid attribute", HTTPStatus: http.StatusBadRequest}
	ErrNotLoggedIn      = &APIError{Code: 103, Msg: "You are not logged in", HTTPStatus: http.StatusUnauthorized}
	ErrLoginFailed      = &APIError{Code: 104, Msg: "The username or password was not correct", HTTPStatus: http.StatusUnauthorized}
	ErrInvalidFormData  = &APIError{Code: 105, Msg: "One or more fields had errors", HTTPStatus: http.StatusBadRequest}
)
