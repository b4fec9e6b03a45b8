package materialvault

import "encoding/json"

// Request/Response DTOs

// CreateSubmissionRequest carries a raw proposed-material payload into the
// pending queue. The payload is parsed at this boundary; a payload that
// does not decode is rejected before anything is stored.
type CreateSubmissionRequest struct {
	Payload     json.RawMessage
	SubmittedBy string
}

// ApproveRequest contains parameters for approving a submission.
// SubmissionKey accepts a numeric id or a UUID string.
type ApproveRequest struct {
	SubmissionKey string
	EditorNote    string
	// UpdateExisting selects merge-on-approve: an active material with the
	// same official name becomes the upsert target instead of a conflict.
	UpdateExisting bool
}

// RejectRequest contains parameters for rejecting a submission.
type RejectRequest struct {
	SubmissionKey string
	RejectReason  string
}

// ReopenRequest flips a rejected submission back to pending.
type ReopenRequest struct {
	SubmissionKey string
}

// ApproveResult is the record returned from Approve. It is always a value,
// never a thrown error: the UI layer reads OK and the error fields.
//
// ImageWarning is non-empty when the best-effort image stage failed; the
// approval itself still succeeded. When Err is a finalization failure,
// MaterialID names the already-committed material so a human can follow up.
type ApproveResult struct {
	OK           bool          `json:"ok"`
	MaterialID   int64         `json:"material_id,omitempty"`
	Action       ApproveAction `json:"action,omitempty"`
	ImageWarning string        `json:"image_warning,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	Error        string        `json:"error,omitempty"`
	Err          error         `json:"-"`
}

// OperationResult is the record returned from Reject and Reopen.
type OperationResult struct {
	OK        bool   `json:"ok"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
	Err       error  `json:"-"`
}

// UpdateMaterialRequest contains parameters for a direct material edit.
// Fields holds only the columns to change; child collections always
// replace the stored sets wholesale.
type UpdateMaterialRequest struct {
	MaterialID    int64
	Fields        FieldMap
	ReferenceURLs []ReferenceURLInput
	UseExamples   []UseExampleInput
}

// ListMaterialsRequest contains parameters for listing materials.
type ListMaterialsRequest struct {
	IncludeUnpublished bool
	CategoryMain       string
	Limit              int
	Offset             int
}

// ListSubmissionsRequest contains parameters for listing submissions.
type ListSubmissionsRequest struct {
	Status SubmissionStatus
	Limit  int
	Offset int
}

// ImportRecord is one already-parsed bulk-import row: a material field map
// plus optional child collections.
type ImportRecord struct {
	Fields        FieldMap
	ReferenceURLs []ReferenceURLInput
	UseExamples   []UseExampleInput
}

// ImportRequest contains parameters for a bulk import run.
type ImportRequest struct {
	Records []ImportRecord
	// UpdateExisting applies the same merge-on-approve semantics per row.
	UpdateExisting bool
}

// ImportRecordResult reports the outcome of one bulk-import row.
type ImportRecordResult struct {
	Index      int           `json:"index"`
	OK         bool          `json:"ok"`
	MaterialID int64         `json:"material_id,omitempty"`
	Action     ApproveAction `json:"action,omitempty"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Err        error         `json:"-"`
}
