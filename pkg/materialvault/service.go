package materialvault

import "context"

// Service defines the main interface for the materialvault library
type Service interface {
	// Submission intake and review queue
	CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*MaterialSubmission, error)
	GetSubmission(ctx context.Context, key string) (*MaterialSubmission, error)
	ListSubmissions(ctx context.Context, req ListSubmissionsRequest) ([]*MaterialSubmission, error)
	SetEditorNote(ctx context.Context, key string, note string) error
	SetRejectReason(ctx context.Context, key string, reason string) error

	// Review actions. These return result records instead of errors: the
	// operation boundary converts internal failures into the record.
	Approve(ctx context.Context, req ApproveRequest) ApproveResult
	Reject(ctx context.Context, req RejectRequest) OperationResult
	Reopen(ctx context.Context, req ReopenRequest) OperationResult

	// Material catalog
	GetMaterial(ctx context.Context, id int64) (*Material, error)
	GetMaterialByKey(ctx context.Context, key string) (*Material, error)
	ListMaterials(ctx context.Context, req ListMaterialsRequest) ([]*Material, error)
	UpdateMaterial(ctx context.Context, req UpdateMaterialRequest) (*Material, error)
	SoftDeleteMaterial(ctx context.Context, id int64) error
	GetImagesByMaterial(ctx context.Context, materialID int64) ([]*Image, error)
	GetReferenceURLs(ctx context.Context, materialID int64) ([]*ReferenceURL, error)
	GetUseExamples(ctx context.Context, materialID int64) ([]*UseExample, error)

	// Bulk import. Every row runs through the same upsert path (and so
	// the same defaulting rules) as approval.
	ImportMaterials(ctx context.Context, req ImportRequest) []ImportRecordResult
}
