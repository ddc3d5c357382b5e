package usecase

import "errors"

const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeNotFound    = "NOT_FOUND"
	CodeForbidden   = "FORBIDDEN"
	CodeConflict    = "CONFLICT"
	CodeInvalidCPF  = "INVALID_CPF"
	CodeRateLimited = "RATE_LIMITED"
	CodeInvalidStep = "INVALID_TRANSITION"
	CodeDatabase    = "DATABASE_ERROR"
	CodeGateway     = "GATEWAY_ERROR"
)

type DomainError struct {
	Code    string            `json:"error"`
	Message string            `json:"message"`
	Fields  []ValidationError `json:"fields,omitempty"`
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// DomainCode devolve o código do DomainError embrulhado, ou "".
func DomainCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

func notFound(what string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: what + " não encontrado"}
}

func forbidden(msg string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: msg}
}

func conflict(msg string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: msg}
}

func dbError(msg string, err error) *TechnicalError {
	return &TechnicalError{Code: CodeDatabase, Message: msg, Err: err}
}

func validationFailed(fields []ValidationError) *DomainError {
	msg := "validation failed: "
	for i, f := range fields {
		if i > 0 {
			msg += ", "
		}
		msg += f.Field + " (" + f.Message + ")"
	}
	return &DomainError{Code: CodeValidation, Message: msg, Fields: fields}
}
