package materialvault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/materialvault/materialvault/pkg/materialvault/objectkey"
)

// List limits for the read surface.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	keyGen     objectkey.Generator
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object storage backend used for image uploads.
// Without one, approvals still work; embedded images surface as warnings.
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithObjectKeyGenerator overrides the object key scheme for image uploads
func WithObjectKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keyGen = gen
	}
}

// WithLogger sets the logger used for warnings on best-effort paths
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.keyGen == nil {
		s.keyGen = objectkey.NewDefaultGenerator()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Submission intake

func (s *service) CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*MaterialSubmission, error) {
	payload, err := DecodeSubmissionPayload(req.Payload)
	if err != nil {
		return nil, &SubmissionError{Op: "create", Err: err}
	}

	encoded, err := payload.Encode()
	if err != nil {
		return nil, &SubmissionError{Op: "create", Err: err}
	}

	now := time.Now().UTC()
	sub := &MaterialSubmission{
		UUID:         uuid.New().String(),
		Status:       SubmissionStatusPending,
		NameOfficial: strings.TrimSpace(payload.Fields.String("name_official")),
		PayloadJSON:  encoded,
		SubmittedBy:  req.SubmittedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repository.CreateSubmission(ctx, sub); err != nil {
		return nil, &SubmissionError{SubmissionKey: sub.UUID, Op: "create", Err: err}
	}

	return sub, nil
}

// Approval pipeline.
//
// Approve runs three separately committed transactions: the material
// upsert, the best-effort image upsert, and the submission finalization.
// A material-upsert failure aborts everything; an image failure becomes a
// warning on an otherwise successful result; a finalization failure fails
// the approval even though the material is already committed, and the
// result names that material for manual follow-up.
func (s *service) Approve(ctx context.Context, req ApproveRequest) ApproveResult {
	sub, err := lookupSubmission(ctx, s.repository, req.SubmissionKey)
	if err != nil {
		return approveFailure(err)
	}
	if _, err := canApproveSubmission(sub.Status); err != nil {
		return approveFailure(err)
	}

	payload, err := DecodeSubmissionPayload(sub.PayloadJSON)
	if err != nil {
		return approveFailure(err)
	}

	materialID, action, err := s.upsertMaterial(ctx, payload.Fields, payload.ReferenceURLs, payload.UseExamples, req.UpdateExisting)
	if err != nil {
		return approveFailure(err)
	}

	warning := s.persistImages(ctx, materialID, payload.Images)

	if err := s.finalizeSubmission(ctx, req.SubmissionKey, materialID, req.EditorNote); err != nil {
		wrapped := fmt.Errorf("material %d is committed but submission finalization failed: %w", materialID, err)
		res := approveFailure(wrapped)
		res.MaterialID = materialID
		res.Action = action
		res.ImageWarning = warning
		return res
	}

	return ApproveResult{
		OK:           true,
		MaterialID:   materialID,
		Action:       action,
		ImageWarning: warning,
	}
}

// upsertMaterial is the first (required) transaction of the pipeline,
// shared verbatim with bulk import. It creates a material under a fresh
// UUID, or merges into the active material holding the same official name
// when updateExisting is set.
func (s *service) upsertMaterial(ctx context.Context, fields FieldMap, refs []ReferenceURLInput, examples []UseExampleInput, updateExisting bool) (int64, ApproveAction, error) {
	name := strings.TrimSpace(fields.String("name_official"))
	if name == "" {
		return 0, "", ErrNameOfficialEmpty
	}

	var (
		materialID int64
		action     ApproveAction
	)

	err := s.repository.WithTx(ctx, func(tx Repository) error {
		existing, err := tx.FindActiveMaterialByName(ctx, name)
		if err != nil && !errors.Is(err, ErrMaterialNotFound) {
			return err
		}

		working := fields.Sanitize()
		now := time.Now().UTC()

		if existing != nil {
			if !updateExisting {
				return &NameConflictError{Name: name, ExistingID: existing.ID}
			}

			// Merge: backfill every column the payload omitted from the
			// existing record. Defaulting is skipped on this path since
			// backfill already populated every required column.
			payloadKeys := working.Keys()
			backfillFromMaterial(working, existing)

			// Only columns present in the original payload are written
			// back; backfilled values never overwrite the stored row.
			applyFields(existing, working, payloadKeys)
			existing.NameOfficial = name
			mirrorLegacyFields(existing)
			existing.SearchText = buildSearchText(existing)
			existing.UpdatedAt = now

			if err := tx.UpdateMaterial(ctx, existing); err != nil {
				return err
			}

			// Replace-all-on-write for child records, update path only.
			if err := s.replaceChildren(ctx, tx, existing.ID, refs, examples); err != nil {
				return err
			}

			materialID = existing.ID
			action = ActionUpdated
			return nil
		}

		working = ApplyDefaults(working, s.logger)

		m := &Material{
			UUID:      uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		applyFields(m, working, working.Keys())
		m.NameOfficial = name
		mirrorLegacyFields(m)
		m.SearchText = buildSearchText(m)

		if err := tx.CreateMaterial(ctx, m); err != nil {
			return err
		}

		// Fresh creation inserts children directly; there is nothing to
		// delete yet.
		if err := s.insertChildren(ctx, tx, m.ID, refs, examples); err != nil {
			return err
		}

		materialID = m.ID
		action = ActionCreated
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	return materialID, action, nil
}

func (s *service) replaceChildren(ctx context.Context, tx Repository, materialID int64, refs []ReferenceURLInput, examples []UseExampleInput) error {
	if err := tx.DeleteReferenceURLsByMaterial(ctx, materialID); err != nil {
		return err
	}
	if err := tx.DeleteUseExamplesByMaterial(ctx, materialID); err != nil {
		return err
	}
	return s.insertChildren(ctx, tx, materialID, refs, examples)
}

func (s *service) insertChildren(ctx context.Context, tx Repository, materialID int64, refs []ReferenceURLInput, examples []UseExampleInput) error {
	for _, ref := range refs {
		if strings.TrimSpace(ref.URL) == "" {
			continue
		}
		record := &ReferenceURL{
			MaterialID:  materialID,
			URL:         ref.URL,
			URLType:     ref.URLType,
			Description: ref.Description,
		}
		if err := tx.CreateReferenceURL(ctx, record); err != nil {
			return err
		}
	}
	for _, ex := range examples {
		if strings.TrimSpace(ex.ExampleName) == "" {
			continue
		}
		record := &UseExample{
			MaterialID:  materialID,
			ExampleName: ex.ExampleName,
			Domain:      ex.Domain,
			Description: ex.Description,
			ImageURL:    ex.ImageURL,
			SourceName:  ex.SourceName,
			SourceURL:   ex.SourceURL,
			LicenseNote: ex.LicenseNote,
		}
		if err := tx.CreateUseExample(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// persistImages is the second (best-effort) transaction. Blob uploads run
// before any database transaction opens so slow network calls never hold a
// lock. Every failure in this stage is logged and converted into the
// returned warning; it never fails the approval and never touches the
// already-committed material.
func (s *service) persistImages(ctx context.Context, materialID int64, inputs []ImageInput) string {
	if len(inputs) == 0 {
		return ""
	}

	descriptors, err := s.resolveImageDescriptors(ctx, materialID, inputs)
	if err == nil && len(descriptors) > 0 {
		err = s.repository.WithTx(ctx, func(tx Repository) error {
			for _, img := range descriptors {
				if err := tx.UpsertImage(ctx, img); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err != nil {
		s.logger.Warn("image persistence failed, approval continues",
			"material_id", materialID,
			"error", err)
		return fmt.Sprintf("image persistence failed: %v", err)
	}

	return ""
}

// resolveImageDescriptors uploads embedded payloads to the object store
// and normalizes everything into Image rows ready to upsert.
func (s *service) resolveImageDescriptors(ctx context.Context, materialID int64, inputs []ImageInput) ([]*Image, error) {
	descriptors := make([]*Image, 0, len(inputs))

	for _, in := range inputs {
		kind := in.Kind
		if kind == "" {
			kind = ImageKindPrimary
		}

		if in.Uploaded() {
			descriptors = append(descriptors, &Image{
				MaterialID:  materialID,
				Kind:        kind,
				ObjectKey:   in.ObjectKey,
				PublicURL:   in.PublicURL,
				SizeBytes:   in.SizeBytes,
				MimeType:    in.MimeType,
				SHA256:      in.SHA256,
				Description: in.Description,
			})
			continue
		}

		data, err := decodeImageData(in.DataBase64)
		if err != nil {
			return nil, fmt.Errorf("decode %s image: %w", kind, err)
		}
		if len(data) == 0 {
			continue
		}

		if s.blobStore == nil {
			return nil, ErrNoBlobStore
		}

		sum := sha256.Sum256(data)
		shaHex := hex.EncodeToString(sum[:])
		key := s.keyGen.GenerateKey(materialID, kind, shaHex, extensionForMime(in.MimeType))

		params := UploadParams{ObjectKey: key, MimeType: in.MimeType}
		if err := s.blobStore.UploadWithParams(ctx, bytes.NewReader(data), params); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}

		publicURL, err := s.blobStore.GetPublicURL(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("public url for %s: %w", key, err)
		}

		descriptors = append(descriptors, &Image{
			MaterialID:  materialID,
			Kind:        kind,
			ObjectKey:   key,
			PublicURL:   publicURL,
			SizeBytes:   int64(len(data)),
			MimeType:    in.MimeType,
			SHA256:      shaHex,
			Description: in.Description,
		})
	}

	return descriptors, nil
}

// decodeImageData decodes an embedded base64 image, tolerating a data-URL
// prefix.
func decodeImageData(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	if strings.HasPrefix(encoded, "data:") {
		if idx := strings.IndexByte(encoded, ','); idx >= 0 {
			encoded = encoded[idx+1:]
		}
	}
	return base64.StdEncoding.DecodeString(encoded)
}

var mimeExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func extensionForMime(mime string) string {
	if ext, ok := mimeExtensions[strings.ToLower(strings.TrimSpace(mime))]; ok {
		return ext
	}
	return ".bin"
}

// finalizeSubmission is the third (required) transaction. It re-fetches
// the submission inside the transaction and asserts it is still pending,
// so a concurrent reviewer's action fails this approval loudly instead of
// double-approving.
func (s *service) finalizeSubmission(ctx context.Context, key string, materialID int64, editorNote string) error {
	return s.repository.WithTx(ctx, func(tx Repository) error {
		sub, err := lookupSubmission(ctx, tx, key)
		if err != nil {
			return err
		}
		if _, err := canApproveSubmission(sub.Status); err != nil {
			return err
		}

		sub.Status = SubmissionStatusApproved
		sub.ApprovedMaterialID = &materialID
		if note := strings.TrimSpace(editorNote); note != "" {
			sub.EditorNote = note
		}
		sub.UpdatedAt = time.Now().UTC()

		return tx.UpdateSubmission(ctx, sub)
	})
}

// Reject moves a pending submission to rejected, recording the reason.
// No material is created or touched.
func (s *service) Reject(ctx context.Context, req RejectRequest) OperationResult {
	err := s.repository.WithTx(ctx, func(tx Repository) error {
		sub, err := lookupSubmission(ctx, tx, req.SubmissionKey)
		if err != nil {
			return err
		}
		if _, err := canRejectSubmission(sub.Status); err != nil {
			return err
		}

		sub.Status = SubmissionStatusRejected
		if reason := strings.TrimSpace(req.RejectReason); reason != "" {
			sub.RejectReason = reason
		}
		sub.UpdatedAt = time.Now().UTC()

		return tx.UpdateSubmission(ctx, sub)
	})
	if err != nil {
		return operationFailure(err)
	}
	return OperationResult{OK: true}
}

// Reopen flips a rejected submission back to pending for re-review. The
// reject reason is preserved, not cleared.
func (s *service) Reopen(ctx context.Context, req ReopenRequest) OperationResult {
	err := s.repository.WithTx(ctx, func(tx Repository) error {
		sub, err := lookupSubmission(ctx, tx, req.SubmissionKey)
		if err != nil {
			return err
		}
		if _, err := canReopenSubmission(sub.Status); err != nil {
			return err
		}

		sub.Status = SubmissionStatusPending
		sub.UpdatedAt = time.Now().UTC()

		return tx.UpdateSubmission(ctx, sub)
	})
	if err != nil {
		return operationFailure(err)
	}
	return OperationResult{OK: true}
}

func approveFailure(err error) ApproveResult {
	return ApproveResult{
		OK:        false,
		ErrorCode: errorCode(err),
		Error:     err.Error(),
		Err:       err,
	}
}

func operationFailure(err error) OperationResult {
	return OperationResult{
		OK:        false,
		ErrorCode: errorCode(err),
		Error:     err.Error(),
		Err:       err,
	}
}

// Review queue reads and note edits

func (s *service) GetSubmission(ctx context.Context, key string) (*MaterialSubmission, error) {
	sub, err := lookupSubmission(ctx, s.repository, key)
	if err != nil {
		return nil, &SubmissionError{SubmissionKey: key, Op: "get", Err: err}
	}
	return sub, nil
}

func (s *service) ListSubmissions(ctx context.Context, req ListSubmissionsRequest) ([]*MaterialSubmission, error) {
	filter := SubmissionListFilter{
		Status: req.Status,
		Limit:  clampLimit(req.Limit),
		Offset: req.Offset,
	}
	return s.repository.ListSubmissions(ctx, filter)
}

// SetEditorNote updates the free-text editor note; allowed in any status.
func (s *service) SetEditorNote(ctx context.Context, key string, note string) error {
	sub, err := lookupSubmission(ctx, s.repository, key)
	if err != nil {
		return &SubmissionError{SubmissionKey: key, Op: "set_editor_note", Err: err}
	}
	sub.EditorNote = strings.TrimSpace(note)
	sub.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateSubmission(ctx, sub); err != nil {
		return &SubmissionError{SubmissionKey: key, Op: "set_editor_note", Err: err}
	}
	return nil
}

// SetRejectReason updates the free-text reject reason; allowed in any
// status.
func (s *service) SetRejectReason(ctx context.Context, key string, reason string) error {
	sub, err := lookupSubmission(ctx, s.repository, key)
	if err != nil {
		return &SubmissionError{SubmissionKey: key, Op: "set_reject_reason", Err: err}
	}
	sub.RejectReason = strings.TrimSpace(reason)
	sub.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateSubmission(ctx, sub); err != nil {
		return &SubmissionError{SubmissionKey: key, Op: "set_reject_reason", Err: err}
	}
	return nil
}

// Material catalog

func (s *service) GetMaterial(ctx context.Context, id int64) (*Material, error) {
	m, err := s.repository.GetMaterial(ctx, id)
	if err != nil {
		return nil, &MaterialError{MaterialID: id, Op: "get", Err: err}
	}
	return m, nil
}

func (s *service) GetMaterialByKey(ctx context.Context, key string) (*Material, error) {
	m, err := lookupMaterial(ctx, s.repository, key)
	if err != nil {
		return nil, fmt.Errorf("get material %q: %w", key, err)
	}
	return m, nil
}

func (s *service) ListMaterials(ctx context.Context, req ListMaterialsRequest) ([]*Material, error) {
	filter := MaterialListFilter{
		IncludeUnpublished: req.IncludeUnpublished,
		CategoryMain:       req.CategoryMain,
		Limit:              clampLimit(req.Limit),
		Offset:             req.Offset,
	}
	return s.repository.ListMaterials(ctx, filter)
}

// UpdateMaterial applies a direct edit. Unlike merge-on-approve, a direct
// edit always replaces the child collections wholesale.
func (s *service) UpdateMaterial(ctx context.Context, req UpdateMaterialRequest) (*Material, error) {
	var updated *Material

	err := s.repository.WithTx(ctx, func(tx Repository) error {
		m, err := tx.GetMaterial(ctx, req.MaterialID)
		if err != nil {
			return err
		}

		working := req.Fields.Sanitize()

		if working.Has("name_official") {
			name := strings.TrimSpace(working.String("name_official"))
			if name == "" {
				return ErrNameOfficialEmpty
			}
			if name != m.NameOfficial {
				other, err := tx.FindActiveMaterialByName(ctx, name)
				if err != nil && !errors.Is(err, ErrMaterialNotFound) {
					return err
				}
				if other != nil && other.ID != m.ID {
					return &NameConflictError{Name: name, ExistingID: other.ID}
				}
			}
			working["name_official"] = name
		}

		applyFields(m, working, working.Keys())
		mirrorLegacyFields(m)
		m.SearchText = buildSearchText(m)
		m.UpdatedAt = time.Now().UTC()

		if err := tx.UpdateMaterial(ctx, m); err != nil {
			return err
		}
		if err := s.replaceChildren(ctx, tx, m.ID, req.ReferenceURLs, req.UseExamples); err != nil {
			return err
		}

		updated = m
		return nil
	})
	if err != nil {
		return nil, &MaterialError{MaterialID: req.MaterialID, Op: "update", Err: err}
	}

	return updated, nil
}

// SoftDeleteMaterial marks the material deleted. The row stays addressable
// by id for referential integrity; normal queries exclude it.
func (s *service) SoftDeleteMaterial(ctx context.Context, id int64) error {
	m, err := s.repository.GetMaterial(ctx, id)
	if err != nil {
		return &MaterialError{MaterialID: id, Op: "soft_delete", Err: err}
	}
	if m.IsDeleted {
		return nil
	}

	now := time.Now().UTC()
	m.IsDeleted = true
	m.DeletedAt = &now
	m.UpdatedAt = now

	if err := s.repository.UpdateMaterial(ctx, m); err != nil {
		return &MaterialError{MaterialID: id, Op: "soft_delete", Err: err}
	}
	return nil
}

func (s *service) GetImagesByMaterial(ctx context.Context, materialID int64) ([]*Image, error) {
	return s.repository.GetImagesByMaterial(ctx, materialID)
}

func (s *service) GetReferenceURLs(ctx context.Context, materialID int64) ([]*ReferenceURL, error) {
	return s.repository.ListReferenceURLs(ctx, materialID)
}

func (s *service) GetUseExamples(ctx context.Context, materialID int64) ([]*UseExample, error) {
	return s.repository.ListUseExamples(ctx, materialID)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
