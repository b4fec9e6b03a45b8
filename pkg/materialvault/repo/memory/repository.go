// Package memory provides an in-memory materialvault.Repository used by
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	mv "github.com/materialvault/materialvault/pkg/materialvault"
)

// Repository implements materialvault.Repository using in-memory storage.
//
// WithTx serializes transactions behind a dedicated mutex and rolls back
// by restoring a snapshot of the whole state. That gives single-writer
// transaction semantics, which is all the test and dev fixture needs; it
// does not isolate concurrent transactions the way a real database does.
type Repository struct {
	mu sync.RWMutex
	// txMu serializes WithTx calls so snapshot/restore stays coherent.
	txMu sync.Mutex

	materials         map[int64]*mv.Material
	materialsByUUID   map[string]int64
	submissions       map[int64]*mv.MaterialSubmission
	submissionsByUUID map[string]int64
	images            map[int64]*mv.Image
	imagesByKey       map[string]int64 // "materialID:kind" -> image id
	referenceURLs     map[int64]*mv.ReferenceURL
	useExamples       map[int64]*mv.UseExample

	nextMaterialID   int64
	nextSubmissionID int64
	nextImageID      int64
	nextReferenceID  int64
	nextExampleID    int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		materials:         make(map[int64]*mv.Material),
		materialsByUUID:   make(map[string]int64),
		submissions:       make(map[int64]*mv.MaterialSubmission),
		submissionsByUUID: make(map[string]int64),
		images:            make(map[int64]*mv.Image),
		imagesByKey:       make(map[string]int64),
		referenceURLs:     make(map[int64]*mv.ReferenceURL),
		useExamples:       make(map[int64]*mv.UseExample),
	}
}

// snapshot captures a deep copy of the repository state for rollback.
type snapshot struct {
	materials         map[int64]*mv.Material
	materialsByUUID   map[string]int64
	submissions       map[int64]*mv.MaterialSubmission
	submissionsByUUID map[string]int64
	images            map[int64]*mv.Image
	imagesByKey       map[string]int64
	referenceURLs     map[int64]*mv.ReferenceURL
	useExamples       map[int64]*mv.UseExample

	nextMaterialID   int64
	nextSubmissionID int64
	nextImageID      int64
	nextReferenceID  int64
	nextExampleID    int64
}

func (r *Repository) takeSnapshot() *snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &snapshot{
		materials:         make(map[int64]*mv.Material, len(r.materials)),
		materialsByUUID:   make(map[string]int64, len(r.materialsByUUID)),
		submissions:       make(map[int64]*mv.MaterialSubmission, len(r.submissions)),
		submissionsByUUID: make(map[string]int64, len(r.submissionsByUUID)),
		images:            make(map[int64]*mv.Image, len(r.images)),
		imagesByKey:       make(map[string]int64, len(r.imagesByKey)),
		referenceURLs:     make(map[int64]*mv.ReferenceURL, len(r.referenceURLs)),
		useExamples:       make(map[int64]*mv.UseExample, len(r.useExamples)),
		nextMaterialID:    r.nextMaterialID,
		nextSubmissionID:  r.nextSubmissionID,
		nextImageID:       r.nextImageID,
		nextReferenceID:   r.nextReferenceID,
		nextExampleID:     r.nextExampleID,
	}
	for id, m := range r.materials {
		s.materials[id] = cloneMaterial(m)
	}
	for k, v := range r.materialsByUUID {
		s.materialsByUUID[k] = v
	}
	for id, sub := range r.submissions {
		s.submissions[id] = cloneSubmission(sub)
	}
	for k, v := range r.submissionsByUUID {
		s.submissionsByUUID[k] = v
	}
	for id, img := range r.images {
		imgCopy := *img
		s.images[id] = &imgCopy
	}
	for k, v := range r.imagesByKey {
		s.imagesByKey[k] = v
	}
	for id, ref := range r.referenceURLs {
		refCopy := *ref
		s.referenceURLs[id] = &refCopy
	}
	for id, ex := range r.useExamples {
		exCopy := *ex
		s.useExamples[id] = &exCopy
	}
	return s
}

func (r *Repository) restore(s *snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.materials = s.materials
	r.materialsByUUID = s.materialsByUUID
	r.submissions = s.submissions
	r.submissionsByUUID = s.submissionsByUUID
	r.images = s.images
	r.imagesByKey = s.imagesByKey
	r.referenceURLs = s.referenceURLs
	r.useExamples = s.useExamples
	r.nextMaterialID = s.nextMaterialID
	r.nextSubmissionID = s.nextSubmissionID
	r.nextImageID = s.nextImageID
	r.nextReferenceID = s.nextReferenceID
	r.nextExampleID = s.nextExampleID
}

// WithTx runs fn against this repository, restoring the pre-transaction
// snapshot when fn fails.
func (r *Repository) WithTx(ctx context.Context, fn func(tx mv.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	snap := r.takeSnapshot()
	if err := fn(r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

// Material operations

func (r *Repository) CreateMaterial(ctx context.Context, m *mv.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextMaterialID++
	m.ID = r.nextMaterialID
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}

	r.materials[m.ID] = cloneMaterial(m)
	if m.UUID != "" {
		r.materialsByUUID[m.UUID] = m.ID
	}
	return nil
}

func (r *Repository) GetMaterial(ctx context.Context, id int64) (*mv.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.materials[id]
	if !exists {
		return nil, mv.ErrMaterialNotFound
	}
	// Deleted materials stay addressable by id.
	return cloneMaterial(m), nil
}

func (r *Repository) GetMaterialByUUID(ctx context.Context, uid string) (*mv.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.materialsByUUID[uid]
	if !exists {
		return nil, mv.ErrMaterialNotFound
	}
	return cloneMaterial(r.materials[id]), nil
}

func (r *Repository) UpdateMaterial(ctx context.Context, m *mv.Material) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.materials[m.ID]; !exists {
		return mv.ErrMaterialNotFound
	}
	r.materials[m.ID] = cloneMaterial(m)
	if m.UUID != "" {
		r.materialsByUUID[m.UUID] = m.ID
	}
	return nil
}

func (r *Repository) FindActiveMaterialByName(ctx context.Context, nameOfficial string) (*mv.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.materials {
		if !m.IsDeleted && m.NameOfficial == nameOfficial {
			return cloneMaterial(m), nil
		}
	}
	return nil, mv.ErrMaterialNotFound
}

func (r *Repository) ListMaterials(ctx context.Context, filter mv.MaterialListFilter) ([]*mv.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mv.Material
	for _, m := range r.materials {
		if m.IsDeleted {
			continue
		}
		if !filter.IncludeUnpublished && !m.IsPublished {
			continue
		}
		if filter.CategoryMain != "" && m.CategoryMain != filter.CategoryMain {
			continue
		}
		result = append(result, cloneMaterial(m))
	}

	// Sort by created_at descending, id descending as tiebreaker
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, filter.Offset, filter.Limit), nil
}

// Submission operations

func (r *Repository) CreateSubmission(ctx context.Context, s *mv.MaterialSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSubmissionID++
	s.ID = r.nextSubmissionID
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}

	r.submissions[s.ID] = cloneSubmission(s)
	if s.UUID != "" {
		r.submissionsByUUID[s.UUID] = s.ID
	}
	return nil
}

func (r *Repository) GetSubmission(ctx context.Context, id int64) (*mv.MaterialSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.submissions[id]
	if !exists {
		return nil, mv.ErrSubmissionNotFound
	}
	return cloneSubmission(s), nil
}

func (r *Repository) GetSubmissionByUUID(ctx context.Context, uid string) (*mv.MaterialSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.submissionsByUUID[uid]
	if !exists {
		return nil, mv.ErrSubmissionNotFound
	}
	return cloneSubmission(r.submissions[id]), nil
}

func (r *Repository) UpdateSubmission(ctx context.Context, s *mv.MaterialSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.submissions[s.ID]; !exists {
		return mv.ErrSubmissionNotFound
	}
	r.submissions[s.ID] = cloneSubmission(s)
	if s.UUID != "" {
		r.submissionsByUUID[s.UUID] = s.ID
	}
	return nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter mv.SubmissionListFilter) ([]*mv.MaterialSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mv.MaterialSubmission
	for _, s := range r.submissions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		result = append(result, cloneSubmission(s))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, filter.Offset, filter.Limit), nil
}

// Image operations

func (r *Repository) UpsertImage(ctx context.Context, img *mv.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.materials[img.MaterialID]; !exists {
		return mv.ErrMaterialNotFound
	}

	key := imageKey(img.MaterialID, img.Kind)
	now := time.Now().UTC()

	if id, exists := r.imagesByKey[key]; exists {
		existing := r.images[id]
		// Update only the fields the descriptor provides.
		if img.ObjectKey != "" {
			existing.ObjectKey = img.ObjectKey
		}
		if img.PublicURL != "" {
			existing.PublicURL = img.PublicURL
		}
		if img.SizeBytes != 0 {
			existing.SizeBytes = img.SizeBytes
		}
		if img.MimeType != "" {
			existing.MimeType = img.MimeType
		}
		if img.SHA256 != "" {
			existing.SHA256 = img.SHA256
		}
		if img.Description != "" {
			existing.Description = img.Description
		}
		existing.UpdatedAt = now
		img.ID = existing.ID
		return nil
	}

	r.nextImageID++
	img.ID = r.nextImageID
	if img.CreatedAt.IsZero() {
		img.CreatedAt = now
	}
	img.UpdatedAt = now

	imgCopy := *img
	r.images[img.ID] = &imgCopy
	r.imagesByKey[key] = img.ID
	return nil
}

func (r *Repository) GetImagesByMaterial(ctx context.Context, materialID int64) ([]*mv.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mv.Image
	for _, img := range r.images {
		if img.MaterialID == materialID {
			imgCopy := *img
			result = append(result, &imgCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})

	return result, nil
}

// Child record operations

func (r *Repository) CreateReferenceURL(ctx context.Context, ref *mv.ReferenceURL) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.materials[ref.MaterialID]; !exists {
		return mv.ErrMaterialNotFound
	}

	r.nextReferenceID++
	ref.ID = r.nextReferenceID
	refCopy := *ref
	r.referenceURLs[ref.ID] = &refCopy
	return nil
}

func (r *Repository) DeleteReferenceURLsByMaterial(ctx context.Context, materialID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ref := range r.referenceURLs {
		if ref.MaterialID == materialID {
			delete(r.referenceURLs, id)
		}
	}
	return nil
}

func (r *Repository) ListReferenceURLs(ctx context.Context, materialID int64) ([]*mv.ReferenceURL, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mv.ReferenceURL
	for _, ref := range r.referenceURLs {
		if ref.MaterialID == materialID {
			refCopy := *ref
			result = append(result, &refCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (r *Repository) CreateUseExample(ctx context.Context, ex *mv.UseExample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.materials[ex.MaterialID]; !exists {
		return mv.ErrMaterialNotFound
	}

	r.nextExampleID++
	ex.ID = r.nextExampleID
	exCopy := *ex
	r.useExamples[ex.ID] = &exCopy
	return nil
}

func (r *Repository) DeleteUseExamplesByMaterial(ctx context.Context, materialID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ex := range r.useExamples {
		if ex.MaterialID == materialID {
			delete(r.useExamples, id)
		}
	}
	return nil
}

func (r *Repository) ListUseExamples(ctx context.Context, materialID int64) ([]*mv.UseExample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mv.UseExample
	for _, ex := range r.useExamples {
		if ex.MaterialID == materialID {
			exCopy := *ex
			result = append(result, &exCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Helpers

func imageKey(materialID int64, kind string) string {
	return fmt.Sprintf("%d:%s", materialID, kind)
}

func cloneMaterial(m *mv.Material) *mv.Material {
	c := *m
	c.NameAliases = append([]string(nil), m.NameAliases...)
	c.MaterialForms = append([]string(nil), m.MaterialForms...)
	c.ColorTags = append([]string(nil), m.ColorTags...)
	c.ProcessingMethods = append([]string(nil), m.ProcessingMethods...)
	c.UseCategories = append([]string(nil), m.UseCategories...)
	c.SafetyTags = append([]string(nil), m.SafetyTags...)
	if m.SpecificGravity != nil {
		v := *m.SpecificGravity
		c.SpecificGravity = &v
	}
	if m.HeatResistanceTemp != nil {
		v := *m.HeatResistanceTemp
		c.HeatResistanceTemp = &v
	}
	if m.CostValue != nil {
		v := *m.CostValue
		c.CostValue = &v
	}
	if m.RecycleBioRate != nil {
		v := *m.RecycleBioRate
		c.RecycleBioRate = &v
	}
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneSubmission(s *mv.MaterialSubmission) *mv.MaterialSubmission {
	c := *s
	c.PayloadJSON = append([]byte(nil), s.PayloadJSON...)
	if s.ApprovedMaterialID != nil {
		v := *s.ApprovedMaterialID
		c.ApprovedMaterialID = &v
	}
	return &c
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
