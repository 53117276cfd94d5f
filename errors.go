package registry

import (
	"sort"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	TextCodeNotAuthorized      = "NOT_AUTHORIZED"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeVoterNotFound      = "VOTER_NOT_FOUND"
	TextCodeNamespaceNotFound  = "NAMESPACE_NOT_FOUND"
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeAccountNotAccepted = "ACCOUNT_NOT_ACCEPTED"
	TextCodeStoreError         = "STORE_ERROR"
	TextCodeInvalidPayload     = "INVALID_PAYLOAD"
	TextCodeInvalidUsername    = "INVALID_USERNAME"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeInvalidRole        = "INVALID_ROLE"
	TextCodeEmptyConstituency  = "EMPTY_CONSTITUENCY"
)

// ErrUnauthenticated is returned when the request carries no live session
var ErrUnauthenticated = goerrors.New("not authenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized is returned when the session role does not allow the operation.
// Clients get 401 for both cases.
var ErrUnauthorized = goerrors.New("not authorized", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotAuthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is returned when username and password do not match a user
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeBadRequest)

// ErrAccountNotAccepted is returned on login for pending or refused accounts
var ErrAccountNotAccepted = goerrors.New("your signup request is not yet accepted", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountNotAccepted).
	WithCode(goerrors.CodeForbidden)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned by ComparePasswordAndHash on a wrong password
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeBadRequest)

// ErrUsernameTaken builds the signup conflict error, it maps to 400
func ErrUsernameTaken(username string) *goerrors.Error {
	return goerrors.New("user already exists", goerrors.CategoryConflict).
		WithTextCode(TextCodeUsernameTaken).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"username": username})
}

// ErrUserNotFound is used for lookups and for approve/refuse targets that are admins
func ErrUserNotFound(username string) *goerrors.Error {
	return goerrors.New("user not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeUserNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"username": username})
}

func ErrVoterNotFound(id string) *goerrors.Error {
	return goerrors.New("voter not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeVoterNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"id": id})
}

func ErrNamespaceNotFound(name string) *goerrors.Error {
	return goerrors.New("namespace not found", goerrors.CategoryNotFound).
		WithTextCode(TextCodeNamespaceNotFound).
		WithCode(goerrors.CodeNotFound).
		WithMetadata(map[string]any{"namespace": name})
}

// ErrInvalidUsername is returned when a username can not be mapped to a namespace
func ErrInvalidUsername(username string) *goerrors.Error {
	return goerrors.New("username contains invalid characters", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidUsername).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"username": username})
}

func ErrInvalidRole(role string) *goerrors.Error {
	return goerrors.New("unknown role", goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidRole).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"role": role})
}

// ErrEmptyConstituency is returned when the constituency is blank once trimmed
var ErrEmptyConstituency = goerrors.New("constituency can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyConstituency).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidPayload wraps request decoding and validation failures.
// Field level ozzo errors are kept as validation errors.
func ErrInvalidPayload(err error) *goerrors.Error {
	var fields validation.Errors
	if goerrors.As(err, &fields) {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fieldErrors := make([]goerrors.FieldError, 0, len(keys))
		for _, k := range keys {
			fieldErrors = append(fieldErrors, goerrors.FieldError{
				Field:   k,
				Message: fields[k].Error(),
			})
		}

		return goerrors.NewValidation("invalid request payload", fieldErrors...).
			WithTextCode(TextCodeInvalidPayload).
			WithCode(goerrors.CodeBadRequest)
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid request payload").
		WithTextCode(TextCodeInvalidPayload).
		WithCode(goerrors.CodeBadRequest)
}

// StoreError wraps a persistence failure so it surfaces generically.
// Errors that already carry a category pass through untouched.
func StoreError(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
		WithTextCode(TextCodeStoreError).
		WithCode(goerrors.CodeInternal)
}

// HasTextCode reports whether err is a rich error carrying the given text code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
