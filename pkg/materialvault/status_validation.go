package materialvault

import "fmt"

// canApproveSubmission checks if a submission can be approved based on its
// current status. Returns true if approval is allowed, false with an error
// otherwise.
func canApproveSubmission(status SubmissionStatus) (bool, error) {
	switch status {
	case SubmissionStatusPending:
		return true, nil
	case SubmissionStatusApproved:
		return false, fmt.Errorf("%w: submission is already approved (status: %s)", ErrSubmissionNotPending, status)
	case SubmissionStatusRejected:
		return false, fmt.Errorf("%w: submission has been rejected; reopen it first (status: %s)", ErrSubmissionNotPending, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidSubmissionStatus, status)
	}
}

// canRejectSubmission checks if a submission can be rejected based on its
// current status. Returns true if rejection is allowed, false with an error
// otherwise.
func canRejectSubmission(status SubmissionStatus) (bool, error) {
	switch status {
	case SubmissionStatusPending:
		return true, nil
	case SubmissionStatusApproved:
		return false, fmt.Errorf("%w: submission is already approved (status: %s)", ErrSubmissionNotPending, status)
	case SubmissionStatusRejected:
		return false, fmt.Errorf("%w: submission is already rejected (status: %s)", ErrSubmissionNotPending, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidSubmissionStatus, status)
	}
}

// canReopenSubmission checks if a submission can be reopened into the
// pending state. Only rejected submissions reopen; approved is terminal.
func canReopenSubmission(status SubmissionStatus) (bool, error) {
	switch status {
	case SubmissionStatusRejected:
		return true, nil
	case SubmissionStatusPending:
		return false, fmt.Errorf("%w: submission is already pending (status: %s)", ErrSubmissionNotRejected, status)
	case SubmissionStatusApproved:
		return false, fmt.Errorf("%w: submission is approved and cannot be reopened (status: %s)", ErrSubmissionNotRejected, status)
	default:
		return false, fmt.Errorf("%w: unknown status %s", ErrInvalidSubmissionStatus, status)
	}
}
