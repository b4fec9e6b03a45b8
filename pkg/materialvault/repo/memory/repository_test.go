package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mv "github.com/materialvault/materialvault/pkg/materialvault"
	"github.com/materialvault/materialvault/pkg/materialvault/repo/memory"
)

func newMaterial(name, category string) *mv.Material {
	return &mv.Material{
		UUID:         name + "-uuid",
		NameOfficial: name,
		CategoryMain: category,
		IsPublished:  true,
	}
}

func TestMaterialCRUD(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m := newMaterial("Oak", "wood")
	require.NoError(t, repo.CreateMaterial(ctx, m))
	assert.NotZero(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	got, err := repo.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Oak", got.NameOfficial)

	byUUID, err := repo.GetMaterialByUUID(ctx, m.UUID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, byUUID.ID)

	got.Description = "updated"
	require.NoError(t, repo.UpdateMaterial(ctx, got))

	refetched, err := repo.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", refetched.Description)

	_, err = repo.GetMaterial(ctx, 999)
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)

	err = repo.UpdateMaterial(ctx, &mv.Material{ID: 999})
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)
}

func TestGetMaterialReturnsCopies(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m := newMaterial("Pine", "wood")
	m.ColorTags = []string{"yellow"}
	require.NoError(t, repo.CreateMaterial(ctx, m))

	got, err := repo.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	got.ColorTags[0] = "mutated"
	got.NameOfficial = "mutated"

	fresh, err := repo.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pine", fresh.NameOfficial)
	assert.Equal(t, []string{"yellow"}, fresh.ColorTags)
}

func TestFindActiveMaterialByName(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	active := newMaterial("Ash", "wood")
	require.NoError(t, repo.CreateMaterial(ctx, active))

	deleted := newMaterial("Elm", "wood")
	deleted.IsDeleted = true
	require.NoError(t, repo.CreateMaterial(ctx, deleted))

	found, err := repo.FindActiveMaterialByName(ctx, "Ash")
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	// Deleted rows don't count as active.
	_, err = repo.FindActiveMaterialByName(ctx, "Elm")
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)

	_, err = repo.FindActiveMaterialByName(ctx, "Nope")
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)
}

func TestListMaterialsFilterAndPagination(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, spec := range []struct {
		name      string
		category  string
		published bool
		deleted   bool
	}{
		{"A", "wood", true, false},
		{"B", "wood", false, false},
		{"C", "stone", true, false},
		{"D", "stone", true, true},
	} {
		m := newMaterial(spec.name, spec.category)
		m.IsPublished = spec.published
		m.IsDeleted = spec.deleted
		m.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		m.UpdatedAt = m.CreatedAt
		require.NoError(t, repo.CreateMaterial(ctx, m))
	}

	published, err := repo.ListMaterials(ctx, mv.MaterialListFilter{})
	require.NoError(t, err)
	assert.Len(t, published, 2) // A and C; B unpublished, D deleted

	all, err := repo.ListMaterials(ctx, mv.MaterialListFilter{IncludeUnpublished: true})
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Newest first.
	assert.Equal(t, "C", all[0].NameOfficial)
	assert.Equal(t, "B", all[1].NameOfficial)
	assert.Equal(t, "A", all[2].NameOfficial)

	wood, err := repo.ListMaterials(ctx, mv.MaterialListFilter{IncludeUnpublished: true, CategoryMain: "wood"})
	require.NoError(t, err)
	assert.Len(t, wood, 2)

	page, err := repo.ListMaterials(ctx, mv.MaterialListFilter{IncludeUnpublished: true, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "B", page[0].NameOfficial)

	beyond, err := repo.ListMaterials(ctx, mv.MaterialListFilter{IncludeUnpublished: true, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestWithTxRollback(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m := newMaterial("Keep", "wood")
	require.NoError(t, repo.CreateMaterial(ctx, m))

	boom := errors.New("boom")
	err := repo.WithTx(ctx, func(tx mv.Repository) error {
		inner := newMaterial("Discard", "wood")
		if err := tx.CreateMaterial(ctx, inner); err != nil {
			return err
		}
		got, err := tx.GetMaterial(ctx, m.ID)
		if err != nil {
			return err
		}
		got.Description = "discard this too"
		if err := tx.UpdateMaterial(ctx, got); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Everything inside the failed transaction rolled back.
	_, err = repo.FindActiveMaterialByName(ctx, "Discard")
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)

	kept, err := repo.GetMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, kept.Description)
}

func TestWithTxCommit(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx mv.Repository) error {
		return tx.CreateMaterial(ctx, newMaterial("Committed", "wood"))
	})
	require.NoError(t, err)

	_, err = repo.FindActiveMaterialByName(ctx, "Committed")
	assert.NoError(t, err)
}

func TestSubmissionCRUD(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	s := &mv.MaterialSubmission{
		UUID:        "sub-uuid",
		Status:      mv.SubmissionStatusPending,
		PayloadJSON: []byte(`{"name_official":"X"}`),
	}
	require.NoError(t, repo.CreateSubmission(ctx, s))
	assert.NotZero(t, s.ID)

	byID, err := repo.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "sub-uuid", byID.UUID)

	byUUID, err := repo.GetSubmissionByUUID(ctx, "sub-uuid")
	require.NoError(t, err)
	assert.Equal(t, s.ID, byUUID.ID)

	byID.Status = mv.SubmissionStatusRejected
	require.NoError(t, repo.UpdateSubmission(ctx, byID))

	refetched, err := repo.GetSubmission(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, mv.SubmissionStatusRejected, refetched.Status)

	_, err = repo.GetSubmission(ctx, 999)
	assert.ErrorIs(t, err, mv.ErrSubmissionNotFound)

	rejected, err := repo.ListSubmissions(ctx, mv.SubmissionListFilter{Status: mv.SubmissionStatusRejected})
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	pending, err := repo.ListSubmissions(ctx, mv.SubmissionListFilter{Status: mv.SubmissionStatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestUpsertImage(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m := newMaterial("Photo", "wood")
	require.NoError(t, repo.CreateMaterial(ctx, m))

	first := &mv.Image{
		MaterialID: m.ID,
		Kind:       "primary",
		ObjectKey:  "materials/1/primary/aaa.png",
		PublicURL:  "memory://materials/1/primary/aaa.png",
		SizeBytes:  100,
		MimeType:   "image/png",
		SHA256:     "aaa",
	}
	require.NoError(t, repo.UpsertImage(ctx, first))
	firstID := first.ID

	// Same (material, kind) updates in place; empty fields don't clobber.
	second := &mv.Image{
		MaterialID: m.ID,
		Kind:       "primary",
		ObjectKey:  "materials/1/primary/bbb.png",
		SHA256:     "bbb",
	}
	require.NoError(t, repo.UpsertImage(ctx, second))
	assert.Equal(t, firstID, second.ID)

	images, err := repo.GetImagesByMaterial(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "materials/1/primary/bbb.png", images[0].ObjectKey)
	assert.Equal(t, "bbb", images[0].SHA256)
	assert.Equal(t, "memory://materials/1/primary/aaa.png", images[0].PublicURL)
	assert.Equal(t, int64(100), images[0].SizeBytes)
	assert.Equal(t, "image/png", images[0].MimeType)

	// Different kind inserts a new row.
	third := &mv.Image{MaterialID: m.ID, Kind: "space", ObjectKey: "k"}
	require.NoError(t, repo.UpsertImage(ctx, third))

	images, err = repo.GetImagesByMaterial(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, images, 2)

	// Unknown material fails.
	err = repo.UpsertImage(ctx, &mv.Image{MaterialID: 999, Kind: "primary"})
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)
}

func TestChildRecordOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	m := newMaterial("Parent", "wood")
	require.NoError(t, repo.CreateMaterial(ctx, m))

	other := newMaterial("Other", "wood")
	require.NoError(t, repo.CreateMaterial(ctx, other))

	for _, url := range []string{"https://a", "https://b"} {
		require.NoError(t, repo.CreateReferenceURL(ctx, &mv.ReferenceURL{MaterialID: m.ID, URL: url}))
	}
	require.NoError(t, repo.CreateReferenceURL(ctx, &mv.ReferenceURL{MaterialID: other.ID, URL: "https://other"}))
	require.NoError(t, repo.CreateUseExample(ctx, &mv.UseExample{MaterialID: m.ID, ExampleName: "Chair"}))

	refs, err := repo.ListReferenceURLs(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, refs, 2)

	require.NoError(t, repo.DeleteReferenceURLsByMaterial(ctx, m.ID))
	require.NoError(t, repo.DeleteUseExamplesByMaterial(ctx, m.ID))

	refs, err = repo.ListReferenceURLs(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, refs)

	// The other material's children are untouched.
	otherRefs, err := repo.ListReferenceURLs(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, otherRefs, 1)

	// Children require an existing material.
	err = repo.CreateReferenceURL(ctx, &mv.ReferenceURL{MaterialID: 999, URL: "https://x"})
	assert.ErrorIs(t, err, mv.ErrMaterialNotFound)
}
