package materialvault_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materialvault/materialvault/pkg/materialvault"
	"github.com/materialvault/materialvault/pkg/materialvault/repo/memory"
	memorystorage "github.com/materialvault/materialvault/pkg/materialvault/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []materialvault.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []materialvault.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []materialvault.Option{
				materialvault.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and blob store should succeed",
			options: []materialvault.Option{
				materialvault.WithRepository(memory.New()),
				materialvault.WithBlobStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := materialvault.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func newTestService(t *testing.T) (materialvault.Service, *memory.Repository) {
	t.Helper()
	repo := memory.New()
	svc, err := materialvault.New(
		materialvault.WithRepository(repo),
		materialvault.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)
	return svc, repo
}

func submitPayload(t *testing.T, svc materialvault.Service, payload map[string]any) *materialvault.MaterialSubmission {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	sub, err := svc.CreateSubmission(context.Background(), materialvault.CreateSubmissionRequest{
		Payload:     raw,
		SubmittedBy: "tester",
	})
	require.NoError(t, err)
	return sub
}

func TestCreateSubmission(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "  Walnut  ",
		"category_main": "wood",
		"id":            999,
		"search_text":   "should be stripped",
	})

	assert.NotZero(t, sub.ID)
	assert.NotEmpty(t, sub.UUID)
	assert.Equal(t, materialvault.SubmissionStatusPending, sub.Status)
	assert.Equal(t, "Walnut", sub.NameOfficial)

	// System-managed keys never survive intake.
	decoded, err := materialvault.DecodeSubmissionPayload(sub.PayloadJSON)
	require.NoError(t, err)
	assert.False(t, decoded.Fields.Has("id"))
	assert.False(t, decoded.Fields.Has("search_text"))

	// Lookups work by id and by UUID.
	byID, err := svc.GetSubmission(ctx, fmt.Sprintf("%d", sub.ID))
	require.NoError(t, err)
	assert.Equal(t, sub.UUID, byID.UUID)

	byUUID, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, byUUID.ID)
}

func TestCreateSubmissionInvalidPayload(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateSubmission(context.Background(), materialvault.CreateSubmissionRequest{
		Payload: []byte("not json"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, materialvault.ErrInvalidPayload)
}

func TestApproveCreatesMaterial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	imageData := base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Bamboo",
		"category_main": "plant",
		"visibility":    "public",
		"color_tags":    []string{"green", "tan"},
		"images": []map[string]any{
			{"kind": "primary", "data_base64": imageData, "mime": "image/png"},
		},
		"reference_urls": []map[string]any{
			{"url": "https://example.com/bamboo", "url_type": "official"},
		},
		"use_examples": []map[string]any{
			{"example_name": "Cutting board", "domain": "kitchen"},
		},
	})

	result := svc.Approve(ctx, materialvault.ApproveRequest{
		SubmissionKey: sub.UUID,
		EditorNote:    "looks good",
	})
	require.True(t, result.OK, "approve failed: %s", result.Error)
	assert.Equal(t, materialvault.ActionCreated, result.Action)
	assert.Empty(t, result.ImageWarning)
	require.NotZero(t, result.MaterialID)

	m, err := svc.GetMaterial(ctx, result.MaterialID)
	require.NoError(t, err)
	assert.Equal(t, "Bamboo", m.NameOfficial)
	assert.Equal(t, "plant", m.CategoryMain)
	assert.NotEmpty(t, m.UUID)

	// Legacy mirrors track the new-style columns.
	assert.Equal(t, m.NameOfficial, m.Name)
	assert.Equal(t, m.CategoryMain, m.Category)

	// Required fields were defaulted; visibility drives publication.
	assert.Equal(t, "unknown", m.OriginType)
	assert.Equal(t, "home/workshop", m.EquipmentLevel)
	assert.Equal(t, "medium", m.PrototypingDifficulty)
	assert.True(t, m.IsPublished)

	// Search text is derived from the written record.
	assert.Contains(t, m.SearchText, "Bamboo")
	assert.Contains(t, m.SearchText, "green")

	// Image was uploaded and recorded.
	images, err := svc.GetImagesByMaterial(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "primary", images[0].Kind)
	assert.Contains(t, images[0].ObjectKey, fmt.Sprintf("materials/%d/primary/", m.ID))
	assert.True(t, strings.HasSuffix(images[0].ObjectKey, ".png"))
	assert.NotEmpty(t, images[0].PublicURL)
	assert.NotEmpty(t, images[0].SHA256)

	refs, err := svc.GetReferenceURLs(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "https://example.com/bamboo", refs[0].URL)

	examples, err := svc.GetUseExamples(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "Cutting board", examples[0].ExampleName)

	// Submission is finalized.
	finalized, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusApproved, finalized.Status)
	require.NotNil(t, finalized.ApprovedMaterialID)
	assert.Equal(t, m.ID, *finalized.ApprovedMaterialID)
	assert.Equal(t, "looks good", finalized.EditorNote)
}

func TestApprovePrivateByDefault(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Cork",
		"category_main": "plant",
	})

	result := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, result.OK)

	m, err := svc.GetMaterial(ctx, result.MaterialID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.VisibilityPrivate, m.Visibility)
	assert.False(t, m.IsPublished)
}

func TestApproveEmptyNameFails(t *testing.T) {
	svc, _ := newTestService(t)

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "   ",
		"category_main": "wood",
	})

	result := svc.Approve(context.Background(), materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	assert.False(t, result.OK)
	assert.Equal(t, materialvault.CodeNameOfficialEmpty, result.ErrorCode)

	// The submission is untouched by the failed approval.
	refetched, err := svc.GetSubmission(context.Background(), sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusPending, refetched.Status)
}

func TestApproveNameConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := submitPayload(t, svc, map[string]any{
		"name_official": "Oak",
		"category_main": "wood",
	})
	require.True(t, svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: first.UUID}).OK)

	second := submitPayload(t, svc, map[string]any{
		"name_official": "Oak",
		"category_main": "wood",
		"description":   "another oak",
	})

	result := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: second.UUID})
	assert.False(t, result.OK)
	assert.Equal(t, materialvault.CodeNameConflict, result.ErrorCode)

	var conflict *materialvault.NameConflictError
	require.ErrorAs(t, result.Err, &conflict)
	assert.Equal(t, "Oak", conflict.Name)

	// Conflicting submission stays pending for the reviewer to retry.
	refetched, err := svc.GetSubmission(ctx, second.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusPending, refetched.Status)

	// Exactly one Oak exists.
	materials, err := svc.ListMaterials(ctx, materialvault.ListMaterialsRequest{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Len(t, materials, 1)
}

func TestApproveMergeIntoExisting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := submitPayload(t, svc, map[string]any{
		"name_official":    "Maple",
		"category_main":    "wood",
		"description":      "hard maple",
		"specific_gravity": 0.7,
		"color_tags":       []string{"cream"},
	})
	created := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: first.UUID})
	require.True(t, created.OK)

	second := submitPayload(t, svc, map[string]any{
		"name_official": "Maple",
		"category_main": "wood",
		"cost_level":    "high",
		"reference_urls": []map[string]any{
			{"url": "https://example.com/maple"},
		},
	})
	merged := svc.Approve(ctx, materialvault.ApproveRequest{
		SubmissionKey:  second.UUID,
		UpdateExisting: true,
	})
	require.True(t, merged.OK, "merge failed: %s", merged.Error)
	assert.Equal(t, materialvault.ActionUpdated, merged.Action)
	assert.Equal(t, created.MaterialID, merged.MaterialID)

	m, err := svc.GetMaterial(ctx, merged.MaterialID)
	require.NoError(t, err)

	// Column provided by the second payload was applied.
	assert.Equal(t, "high", m.CostLevel)

	// Columns the second payload omitted were preserved, not reset or
	// re-defaulted.
	assert.Equal(t, "hard maple", m.Description)
	require.NotNil(t, m.SpecificGravity)
	assert.Equal(t, 0.7, *m.SpecificGravity)
	assert.Equal(t, []string{"cream"}, m.ColorTags)

	// The merge replaced the child collections with the new payload's sets.
	refs, err := svc.GetReferenceURLs(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "https://example.com/maple", refs[0].URL)

	// Both submissions point at the same material.
	subs := []*materialvault.MaterialSubmission{}
	for _, key := range []string{first.UUID, second.UUID} {
		s, err := svc.GetSubmission(ctx, key)
		require.NoError(t, err)
		subs = append(subs, s)
	}
	for _, s := range subs {
		require.NotNil(t, s.ApprovedMaterialID)
		assert.Equal(t, merged.MaterialID, *s.ApprovedMaterialID)
	}
}

func TestApproveTwiceDoesNotCreateSecondMaterial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Felt",
		"category_main": "textile",
	})

	first := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, first.OK)

	second := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	assert.False(t, second.OK)
	assert.Equal(t, materialvault.CodeNotPending, second.ErrorCode)
	assert.ErrorIs(t, second.Err, materialvault.ErrSubmissionNotPending)

	materials, err := svc.ListMaterials(ctx, materialvault.ListMaterialsRequest{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Len(t, materials, 1)
}

func TestApproveMissingSubmission(t *testing.T) {
	svc, _ := newTestService(t)

	result := svc.Approve(context.Background(), materialvault.ApproveRequest{SubmissionKey: "12345"})
	assert.False(t, result.OK)
	assert.Equal(t, materialvault.CodeNotFound, result.ErrorCode)
}

// failingBlobStore rejects every upload.
type failingBlobStore struct{}

func (failingBlobStore) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return errors.New("storage offline")
}

func (failingBlobStore) UploadWithParams(ctx context.Context, reader io.Reader, params materialvault.UploadParams) error {
	return errors.New("storage offline")
}

func (failingBlobStore) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	return nil, errors.New("storage offline")
}

func (failingBlobStore) Delete(ctx context.Context, objectKey string) error {
	return errors.New("storage offline")
}

func (failingBlobStore) GetObjectMeta(ctx context.Context, objectKey string) (*materialvault.ObjectMeta, error) {
	return nil, errors.New("storage offline")
}

func (failingBlobStore) GetPublicURL(ctx context.Context, objectKey string) (string, error) {
	return "", errors.New("storage offline")
}

func TestApproveImageFailureBecomesWarning(t *testing.T) {
	repo := memory.New()
	svc, err := materialvault.New(
		materialvault.WithRepository(repo),
		materialvault.WithBlobStore(failingBlobStore{}),
	)
	require.NoError(t, err)
	ctx := context.Background()

	imageData := base64.StdEncoding.EncodeToString([]byte("bytes"))
	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Slate",
		"category_main": "stone",
		"images": []map[string]any{
			{"kind": "primary", "data_base64": imageData, "mime": "image/jpeg"},
		},
	})

	result := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})

	// The approval succeeds; only the image stage is reported as a warning.
	require.True(t, result.OK)
	assert.NotEmpty(t, result.ImageWarning)
	assert.Contains(t, result.ImageWarning, "image persistence failed")

	m, err := svc.GetMaterial(ctx, result.MaterialID)
	require.NoError(t, err)
	assert.Equal(t, "Slate", m.NameOfficial)

	images, err := svc.GetImagesByMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, images)

	finalized, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusApproved, finalized.Status)
}

func TestApproveAlreadyUploadedImage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Granite",
		"category_main": "stone",
		"uploaded_images": []map[string]any{
			{
				"kind":       "space",
				"object_key": "preuploaded/granite.jpg",
				"public_url": "https://cdn.example.com/preuploaded/granite.jpg",
				"size_bytes": 2048,
				"mime":       "image/jpeg",
			},
		},
	})

	result := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, result.OK)
	assert.Empty(t, result.ImageWarning)

	images, err := svc.GetImagesByMaterial(ctx, result.MaterialID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "space", images[0].Kind)
	assert.Equal(t, "preuploaded/granite.jpg", images[0].ObjectKey)
	assert.Equal(t, int64(2048), images[0].SizeBytes)
}

// trackingCounts is shared across the transaction-scoped wrappers.
type trackingCounts struct {
	refDeletes      int
	exampleDeletes  int
	failFinalize    bool
}

// trackingRepo intercepts child deletes and can force submission updates to
// fail, while delegating everything else.
type trackingRepo struct {
	materialvault.Repository
	counts *trackingCounts
}

func (r *trackingRepo) WithTx(ctx context.Context, fn func(tx materialvault.Repository) error) error {
	return r.Repository.WithTx(ctx, func(tx materialvault.Repository) error {
		return fn(&trackingRepo{Repository: tx, counts: r.counts})
	})
}

func (r *trackingRepo) DeleteReferenceURLsByMaterial(ctx context.Context, materialID int64) error {
	r.counts.refDeletes++
	return r.Repository.DeleteReferenceURLsByMaterial(ctx, materialID)
}

func (r *trackingRepo) DeleteUseExamplesByMaterial(ctx context.Context, materialID int64) error {
	r.counts.exampleDeletes++
	return r.Repository.DeleteUseExamplesByMaterial(ctx, materialID)
}

func (r *trackingRepo) UpdateSubmission(ctx context.Context, s *materialvault.MaterialSubmission) error {
	if r.counts.failFinalize {
		return errors.New("submission table unavailable")
	}
	return r.Repository.UpdateSubmission(ctx, s)
}

func TestCreatePathNeverDeletesChildren(t *testing.T) {
	counts := &trackingCounts{}
	repo := &trackingRepo{Repository: memory.New(), counts: counts}
	svc, err := materialvault.New(
		materialvault.WithRepository(repo),
		materialvault.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Linen",
		"category_main": "textile",
		"reference_urls": []map[string]any{
			{"url": "https://example.com/linen"},
		},
	})
	created := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, created.OK)
	assert.Zero(t, counts.refDeletes)
	assert.Zero(t, counts.exampleDeletes)

	// Merging into the existing record replaces children, which does
	// delete.
	again := submitPayload(t, svc, map[string]any{
		"name_official": "Linen",
		"category_main": "textile",
	})
	merged := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: again.UUID, UpdateExisting: true})
	require.True(t, merged.OK)
	assert.Equal(t, 1, counts.refDeletes)
	assert.Equal(t, 1, counts.exampleDeletes)
}

func TestApproveFinalizationFailureNamesMaterial(t *testing.T) {
	counts := &trackingCounts{}
	repo := &trackingRepo{Repository: memory.New(), counts: counts}
	svc, err := materialvault.New(
		materialvault.WithRepository(repo),
		materialvault.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Cedar",
		"category_main": "wood",
	})

	counts.failFinalize = true
	result := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	counts.failFinalize = false

	// Overall failure, but the committed material is named for follow-up.
	assert.False(t, result.OK)
	require.NotZero(t, result.MaterialID)
	assert.Equal(t, materialvault.ActionCreated, result.Action)
	assert.Contains(t, result.Error, fmt.Sprintf("material %d is committed", result.MaterialID))

	m, err := svc.GetMaterial(ctx, result.MaterialID)
	require.NoError(t, err)
	assert.Equal(t, "Cedar", m.NameOfficial)

	// The submission is still pending.
	refetched, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusPending, refetched.Status)
}

func TestRejectAndReopen(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Hemp",
		"category_main": "plant",
	})

	rejected := svc.Reject(ctx, materialvault.RejectRequest{
		SubmissionKey: sub.UUID,
		RejectReason:  "needs sourcing info",
	})
	require.True(t, rejected.OK)

	s, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusRejected, s.Status)
	assert.Equal(t, "needs sourcing info", s.RejectReason)

	// Rejecting again fails.
	again := svc.Reject(ctx, materialvault.RejectRequest{SubmissionKey: sub.UUID})
	assert.False(t, again.OK)
	assert.Equal(t, materialvault.CodeNotPending, again.ErrorCode)

	// Approving a rejected submission fails.
	approved := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	assert.False(t, approved.OK)
	assert.Equal(t, materialvault.CodeNotPending, approved.ErrorCode)

	// Reopen returns it to pending and keeps the reject reason for context.
	reopened := svc.Reopen(ctx, materialvault.ReopenRequest{SubmissionKey: sub.UUID})
	require.True(t, reopened.OK)

	s, err = svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, materialvault.SubmissionStatusPending, s.Status)
	assert.Equal(t, "needs sourcing info", s.RejectReason)

	// Reopening a pending submission fails.
	again2 := svc.Reopen(ctx, materialvault.ReopenRequest{SubmissionKey: sub.UUID})
	assert.False(t, again2.OK)
	assert.Equal(t, materialvault.CodeNotRejected, again2.ErrorCode)

	// The reopened submission approves normally.
	result := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, result.OK)

	// Approved is terminal: no reopen afterwards.
	final := svc.Reopen(ctx, materialvault.ReopenRequest{SubmissionKey: sub.UUID})
	assert.False(t, final.OK)
	assert.Equal(t, materialvault.CodeNotRejected, final.ErrorCode)
}

func TestRejectEmptyReasonKeepsExisting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Jute",
		"category_main": "plant",
	})

	require.NoError(t, svc.SetRejectReason(ctx, sub.UUID, "previously noted"))

	result := svc.Reject(ctx, materialvault.RejectRequest{SubmissionKey: sub.UUID, RejectReason: "   "})
	require.True(t, result.OK)

	s, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, "previously noted", s.RejectReason)
}

func TestSetEditorNote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Clay",
		"category_main": "ceramic",
	})

	require.NoError(t, svc.SetEditorNote(ctx, sub.UUID, "  check firing temp  "))

	s, err := svc.GetSubmission(ctx, sub.UUID)
	require.NoError(t, err)
	assert.Equal(t, "check firing temp", s.EditorNote)

	err = svc.SetEditorNote(ctx, "no-such-uuid", "note")
	assert.ErrorIs(t, err, materialvault.ErrSubmissionNotFound)
}

func TestListSubmissionsByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := submitPayload(t, svc, map[string]any{"name_official": "A", "category_main": "x"})
	b := submitPayload(t, svc, map[string]any{"name_official": "B", "category_main": "x"})
	submitPayload(t, svc, map[string]any{"name_official": "C", "category_main": "x"})

	require.True(t, svc.Reject(ctx, materialvault.RejectRequest{SubmissionKey: a.UUID}).OK)
	require.True(t, svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: b.UUID}).OK)

	pending, err := svc.ListSubmissions(ctx, materialvault.ListSubmissionsRequest{Status: materialvault.SubmissionStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	rejected, err := svc.ListSubmissions(ctx, materialvault.ListSubmissionsRequest{Status: materialvault.SubmissionStatusRejected})
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	all, err := svc.ListSubmissions(ctx, materialvault.ListSubmissionsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSoftDeleteMaterial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Resin",
		"category_main": "polymer",
		"visibility":    "public",
	})
	created := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, created.OK)

	require.NoError(t, svc.SoftDeleteMaterial(ctx, created.MaterialID))

	// Idempotent.
	require.NoError(t, svc.SoftDeleteMaterial(ctx, created.MaterialID))

	// Still addressable by id.
	m, err := svc.GetMaterial(ctx, created.MaterialID)
	require.NoError(t, err)
	assert.True(t, m.IsDeleted)
	require.NotNil(t, m.DeletedAt)

	// Excluded from lists.
	materials, err := svc.ListMaterials(ctx, materialvault.ListMaterialsRequest{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Empty(t, materials)

	// The name is free for a new material.
	sub2 := submitPayload(t, svc, map[string]any{
		"name_official": "Resin",
		"category_main": "polymer",
	})
	recreated := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub2.UUID})
	require.True(t, recreated.OK)
	assert.Equal(t, materialvault.ActionCreated, recreated.Action)
	assert.NotEqual(t, created.MaterialID, recreated.MaterialID)
}

func TestListMaterialsFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	approve := func(name, category, visibility string) {
		sub := submitPayload(t, svc, map[string]any{
			"name_official": name,
			"category_main": category,
			"visibility":    visibility,
		})
		require.True(t, svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID}).OK)
	}

	approve("Pine", "wood", "public")
	approve("Birch", "wood", "private")
	approve("Wool", "textile", "public")

	published, err := svc.ListMaterials(ctx, materialvault.ListMaterialsRequest{})
	require.NoError(t, err)
	assert.Len(t, published, 2)

	all, err := svc.ListMaterials(ctx, materialvault.ListMaterialsRequest{IncludeUnpublished: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	wood, err := svc.ListMaterials(ctx, materialvault.ListMaterialsRequest{
		IncludeUnpublished: true,
		CategoryMain:       "wood",
	})
	require.NoError(t, err)
	assert.Len(t, wood, 2)
}

func TestUpdateMaterialDirectEdit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sub := submitPayload(t, svc, map[string]any{
		"name_official": "Brass",
		"category_main": "metal",
		"use_examples": []map[string]any{
			{"example_name": "Door handle"},
		},
	})
	created := svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID})
	require.True(t, created.OK)

	updated, err := svc.UpdateMaterial(ctx, materialvault.UpdateMaterialRequest{
		MaterialID: created.MaterialID,
		Fields: materialvault.FieldMap{
			"description": "copper-zinc alloy",
			"visibility":  "public",
		},
		UseExamples: []materialvault.UseExampleInput{
			{ExampleName: "Instrument valve", Domain: "music"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "copper-zinc alloy", updated.Description)
	assert.Equal(t, "public", updated.Visibility)
	assert.Contains(t, updated.SearchText, "copper-zinc alloy")

	// Direct edit replaces children wholesale.
	examples, err := svc.GetUseExamples(ctx, created.MaterialID)
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, "Instrument valve", examples[0].ExampleName)
}

func TestUpdateMaterialNameConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"Copper", "Bronze"} {
		sub := submitPayload(t, svc, map[string]any{
			"name_official": name,
			"category_main": "metal",
		})
		require.True(t, svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: sub.UUID}).OK)
	}

	bronze, err := svc.GetMaterialByKey(ctx, "2")
	require.NoError(t, err)
	require.Equal(t, "Bronze", bronze.NameOfficial)

	_, err = svc.UpdateMaterial(ctx, materialvault.UpdateMaterialRequest{
		MaterialID: bronze.ID,
		Fields:     materialvault.FieldMap{"name_official": "Copper"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, materialvault.ErrNameConflict)
}

func TestImportMaterials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Seed one material the import will collide with.
	seed := submitPayload(t, svc, map[string]any{
		"name_official": "Ash",
		"category_main": "wood",
	})
	require.True(t, svc.Approve(ctx, materialvault.ApproveRequest{SubmissionKey: seed.UUID}).OK)

	results := svc.ImportMaterials(ctx, materialvault.ImportRequest{
		Records: []materialvault.ImportRecord{
			{Fields: materialvault.FieldMap{"name_official": "Elm", "category_main": "wood"}},
			{Fields: materialvault.FieldMap{"name_official": "Ash", "category_main": "wood"}},
			{Fields: materialvault.FieldMap{"name_official": "", "category_main": "wood"}},
		},
	})
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.Equal(t, materialvault.ActionCreated, results[0].Action)

	// Collision without update_existing fails only that row.
	assert.False(t, results[1].OK)
	assert.Equal(t, materialvault.CodeNameConflict, results[1].ErrorCode)

	assert.False(t, results[2].OK)
	assert.Equal(t, materialvault.CodeNameOfficialEmpty, results[2].ErrorCode)

	// Rerun with update_existing merges the collision row.
	rerun := svc.ImportMaterials(ctx, materialvault.ImportRequest{
		Records: []materialvault.ImportRecord{
			{Fields: materialvault.FieldMap{"name_official": "Ash", "category_main": "wood", "cost_level": "low"}},
		},
		UpdateExisting: true,
	})
	require.Len(t, rerun, 1)
	assert.True(t, rerun[0].OK)
	assert.Equal(t, materialvault.ActionUpdated, rerun[0].Action)

	ash, err := svc.GetMaterial(ctx, rerun[0].MaterialID)
	require.NoError(t, err)
	assert.Equal(t, "low", ash.CostLevel)
}
