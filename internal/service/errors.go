package service

import "errors"

// Error kinds returned by FileService. Callers test them with errors.Is; the wrapped
// chain keeps the underlying cause (e.g. storage.ErrSizeMismatch).
var (
	ErrInvalidRequest         = errors.New("invalid request")
	ErrOwnershipDenied        = errors.New("ownership denied")
	ErrOwnershipCheckFailed   = errors.New("ownership check failed")
	ErrFileNotFound           = errors.New("file not found")
	ErrStorageOperationFailed = errors.New("storage operation failed")
)

// ErrorKind returns a short label for err, used for metrics and log fields.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrOwnershipDenied):
		return "ownership_denied"
	case errors.Is(err, ErrOwnershipCheckFailed):
		return "ownership_check_failed"
	case errors.Is(err, ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, ErrStorageOperationFailed):
		return "storage_operation_failed"
	default:
		return "error"
	}
}
