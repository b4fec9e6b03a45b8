package materialvault

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetPublicURL returns the stable public URL for an object key
	GetPublicURL(ctx context.Context, objectKey string) (string, error)
}

// Repository defines the interface for material and submission persistence.
//
// WithTx runs fn against a repository view scoped to one transaction: if fn
// returns an error every write made through that view is rolled back,
// otherwise the transaction commits. Calls must not be nested.
type Repository interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error

	// Material operations
	CreateMaterial(ctx context.Context, m *Material) error
	GetMaterial(ctx context.Context, id int64) (*Material, error)
	GetMaterialByUUID(ctx context.Context, uid string) (*Material, error)
	UpdateMaterial(ctx context.Context, m *Material) error
	ListMaterials(ctx context.Context, filter MaterialListFilter) ([]*Material, error)

	// FindActiveMaterialByName returns the single non-deleted material
	// holding the official name, or ErrMaterialNotFound. The one-active-
	// material-per-name invariant is advisory here: callers check before
	// writing, and only a datastore constraint can close the race.
	FindActiveMaterialByName(ctx context.Context, nameOfficial string) (*Material, error)

	// Submission operations
	CreateSubmission(ctx context.Context, s *MaterialSubmission) error
	GetSubmission(ctx context.Context, id int64) (*MaterialSubmission, error)
	GetSubmissionByUUID(ctx context.Context, uid string) (*MaterialSubmission, error)
	UpdateSubmission(ctx context.Context, s *MaterialSubmission) error
	ListSubmissions(ctx context.Context, filter SubmissionListFilter) ([]*MaterialSubmission, error)

	// Image operations. UpsertImage matches on (material_id, kind): update
	// in place when the pair exists, insert otherwise. Only fields the
	// descriptor provides overwrite the stored row.
	UpsertImage(ctx context.Context, img *Image) error
	GetImagesByMaterial(ctx context.Context, materialID int64) ([]*Image, error)

	// Child record operations. Deletes and creates are separate so the
	// replace-all-on-write policy stays a caller decision: creation of a
	// brand-new material inserts fresh without any delete.
	CreateReferenceURL(ctx context.Context, ref *ReferenceURL) error
	DeleteReferenceURLsByMaterial(ctx context.Context, materialID int64) error
	ListReferenceURLs(ctx context.Context, materialID int64) ([]*ReferenceURL, error)
	CreateUseExample(ctx context.Context, ex *UseExample) error
	DeleteUseExamplesByMaterial(ctx context.Context, materialID int64) error
	ListUseExamples(ctx context.Context, materialID int64) ([]*UseExample, error)
}

// MaterialListFilter narrows ListMaterials. Deleted materials are always
// excluded.
type MaterialListFilter struct {
	IncludeUnpublished bool
	CategoryMain       string
	Limit              int
	Offset             int
}

// SubmissionListFilter narrows ListSubmissions.
type SubmissionListFilter struct {
	Status SubmissionStatus
	Limit  int
	Offset int
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
