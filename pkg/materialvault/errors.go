package materialvault

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrMaterialNotFound indicates a material was not found
	ErrMaterialNotFound = errors.New("material not found")

	// ErrSubmissionNotFound indicates a submission was not found
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrImageNotFound indicates an image was not found
	ErrImageNotFound = errors.New("image not found")

	// ErrNameOfficialEmpty indicates the official name was blank
	ErrNameOfficialEmpty = errors.New("name_official is empty")

	// ErrNameConflict indicates an active material already holds the name
	ErrNameConflict = errors.New("active material with this name already exists")

	// ErrSubmissionNotPending indicates the still-pending guard failed
	ErrSubmissionNotPending = errors.New("submission is not pending")

	// ErrSubmissionNotRejected indicates a reopen on a non-rejected submission
	ErrSubmissionNotRejected = errors.New("submission is not rejected")

	// ErrInvalidSubmissionStatus indicates an unknown submission status
	ErrInvalidSubmissionStatus = errors.New("invalid submission status")

	// ErrInvalidPayload indicates a submission payload could not be decoded
	ErrInvalidPayload = errors.New("invalid submission payload")

	// ErrUploadFailed indicates a blob upload failed
	ErrUploadFailed = errors.New("upload failed")

	// ErrNoBlobStore indicates image persistence was requested without a
	// configured blob store
	ErrNoBlobStore = errors.New("no blob store configured")
)

// NameConflictError reports a name-uniqueness conflict, naming the existing
// active material so the reviewer can switch to merge mode or rename.
type NameConflictError struct {
	Name       string
	ExistingID int64
}

func (e *NameConflictError) Error() string {
	return fmt.Sprintf("material %q already exists as id %d: use update_existing or rename", e.Name, e.ExistingID)
}

func (e *NameConflictError) Unwrap() error {
	return ErrNameConflict
}

// MaterialError represents an error related to material operations
type MaterialError struct {
	MaterialID int64
	Op         string
	Err        error
}

func (e *MaterialError) Error() string {
	return fmt.Sprintf("material operation %s failed for material %d: %v", e.Op, e.MaterialID, e.Err)
}

func (e *MaterialError) Unwrap() error {
	return e.Err
}

// SubmissionError represents an error related to submission operations
type SubmissionError struct {
	SubmissionKey string
	Op            string
	Err           error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission operation %s failed for submission %s: %v", e.Op, e.SubmissionKey, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Stable error codes carried on result records.
const (
	CodeNameOfficialEmpty = "name_official_empty"
	CodeNameConflict      = "name_conflict"
	CodeNotPending        = "not_pending"
	CodeNotRejected       = "not_rejected"
	CodeNotFound          = "not_found"
	CodeInvalidPayload    = "payload_invalid"
	CodeInternal          = "internal"
)

// errorCode maps an internal error onto the stable code surfaced in result
// records.
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNameOfficialEmpty):
		return CodeNameOfficialEmpty
	case errors.Is(err, ErrNameConflict):
		return CodeNameConflict
	case errors.Is(err, ErrSubmissionNotPending):
		return CodeNotPending
	case errors.Is(err, ErrSubmissionNotRejected):
		return CodeNotRejected
	case errors.Is(err, ErrSubmissionNotFound), errors.Is(err, ErrMaterialNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidPayload):
		return CodeInvalidPayload
	default:
		return CodeInternal
	}
}
