package chat

import (
	"fmt"
	"net/http"
)

// ErrorCode classifies a failed chat turn.
type ErrorCode string

const (
	CodeMissingCredential     ErrorCode = "missing_credential"
	CodeMissingConfiguration  ErrorCode = "missing_configuration"
	CodeInvalidInput          ErrorCode = "invalid_input"
	CodeProviderRequestFailed ErrorCode = "provider_request_failed"
	CodeBackendRequestFailed  ErrorCode = "backend_request_failed"
)

// TurnError is the typed failure of a chat turn. Status is the HTTP status
// the handler should answer with; nothing in this taxonomy is fatal to the
// process.
type TurnError struct {
	Code   ErrorCode
	Status int
	Detail string
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func missingCredential(provider string) *TurnError {
	return &TurnError{
		Code:   CodeMissingCredential,
		Status: http.StatusBadRequest,
		Detail: fmt.Sprintf("no API key configured for provider %q", provider),
	}
}

func missingConfiguration(detail string) *TurnError {
	return &TurnError{Code: CodeMissingConfiguration, Status: http.StatusBadRequest, Detail: detail}
}

func invalidInput(detail string) *TurnError {
	return &TurnError{Code: CodeInvalidInput, Status: http.StatusBadRequest, Detail: detail}
}

func providerRequestFailed(detail string) *TurnError {
	return &TurnError{Code: CodeProviderRequestFailed, Status: http.StatusBadGateway, Detail: detail}
}

func backendRequestFailed(detail string) *TurnError {
	return &TurnError{Code: CodeBackendRequestFailed, Status: http.StatusBadGateway, Detail: detail}
}
