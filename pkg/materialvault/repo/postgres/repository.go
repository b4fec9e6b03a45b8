// Package postgres implements materialvault.Repository on PostgreSQL via
// pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	mv "github.com/materialvault/materialvault/pkg/materialvault"
)

// DBTX is an interface that allows us to use either a connection pool or a
// transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements materialvault.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// WithTx runs fn inside one database transaction. fn receives a repository
// bound to that transaction; an error rolls everything back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx mv.Repository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			// The partial unique index on active official names closes the
			// advisory-check race: report it as the same conflict error.
			if strings.Contains(pgErr.ConstraintName, "name_official") {
				return fmt.Errorf("%w (constraint %s)", mv.ErrNameConflict, pgErr.ConstraintName)
			}
			return fmt.Errorf("duplicate entry (constraint %s)", pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Ordered-list columns are stored as JSON text. Encode/decode lives here
// at the persistence boundary; business logic only sees native slices.

func encodeStringList(v []string) (*string, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodeStringList(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*s), &out); err == nil {
		return out
	}
	// Legacy rows may hold a bare string.
	return []string{*s}
}

const materialColumns = `
	id, uuid, name_official, category_main, name, category,
	origin_type, origin_detail, transparency, hardness_qualitative,
	weight_qualitative, water_resistance, weather_resistance,
	equipment_level, prototyping_difficulty, procurement_status,
	cost_level, visibility, is_published, is_deleted, description,
	specific_gravity, heat_resistance_temp, cost_value, recycle_bio_rate,
	name_aliases, material_forms, color_tags, processing_methods,
	use_categories, safety_tags, search_text,
	created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMaterial(row rowScanner) (*mv.Material, error) {
	var (
		m                                                 mv.Material
		aliases, forms, colors, methods, usages, safeties *string
	)
	err := row.Scan(
		&m.ID, &m.UUID, &m.NameOfficial, &m.CategoryMain, &m.Name, &m.Category,
		&m.OriginType, &m.OriginDetail, &m.Transparency, &m.HardnessQualitative,
		&m.WeightQualitative, &m.WaterResistance, &m.WeatherResistance,
		&m.EquipmentLevel, &m.PrototypingDifficulty, &m.ProcurementStatus,
		&m.CostLevel, &m.Visibility, &m.IsPublished, &m.IsDeleted, &m.Description,
		&m.SpecificGravity, &m.HeatResistanceTemp, &m.CostValue, &m.RecycleBioRate,
		&aliases, &forms, &colors, &methods, &usages, &safeties, &m.SearchText,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	m.NameAliases = decodeStringList(aliases)
	m.MaterialForms = decodeStringList(forms)
	m.ColorTags = decodeStringList(colors)
	m.ProcessingMethods = decodeStringList(methods)
	m.UseCategories = decodeStringList(usages)
	m.SafetyTags = decodeStringList(safeties)

	return &m, nil
}

func materialListArgs(m *mv.Material) ([]any, error) {
	aliases, err := encodeStringList(m.NameAliases)
	if err != nil {
		return nil, err
	}
	forms, err := encodeStringList(m.MaterialForms)
	if err != nil {
		return nil, err
	}
	colors, err := encodeStringList(m.ColorTags)
	if err != nil {
		return nil, err
	}
	methods, err := encodeStringList(m.ProcessingMethods)
	if err != nil {
		return nil, err
	}
	usages, err := encodeStringList(m.UseCategories)
	if err != nil {
		return nil, err
	}
	safeties, err := encodeStringList(m.SafetyTags)
	if err != nil {
		return nil, err
	}
	return []any{aliases, forms, colors, methods, usages, safeties}, nil
}

// Material operations

func (r *Repository) CreateMaterial(ctx context.Context, m *mv.Material) error {
	lists, err := materialListArgs(m)
	if err != nil {
		return fmt.Errorf("encode list columns: %w", err)
	}

	query := `
		INSERT INTO materials (
			uuid, name_official, category_main, name, category,
			origin_type, origin_detail, transparency, hardness_qualitative,
			weight_qualitative, water_resistance, weather_resistance,
			equipment_level, prototyping_difficulty, procurement_status,
			cost_level, visibility, is_published, is_deleted, description,
			specific_gravity, heat_resistance_temp, cost_value, recycle_bio_rate,
			name_aliases, material_forms, color_tags, processing_methods,
			use_categories, safety_tags, search_text, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
			$27, $28, $29, $30, $31, $32, $33
		) RETURNING id`

	args := []any{
		m.UUID, m.NameOfficial, m.CategoryMain, m.Name, m.Category,
		m.OriginType, m.OriginDetail, m.Transparency, m.HardnessQualitative,
		m.WeightQualitative, m.WaterResistance, m.WeatherResistance,
		m.EquipmentLevel, m.PrototypingDifficulty, m.ProcurementStatus,
		m.CostLevel, m.Visibility, m.IsPublished, m.IsDeleted, m.Description,
		m.SpecificGravity, m.HeatResistanceTemp, m.CostValue, m.RecycleBioRate,
	}
	args = append(args, lists...)
	args = append(args, m.SearchText, m.CreatedAt, m.UpdatedAt)

	if err := r.db.QueryRow(ctx, query, args...).Scan(&m.ID); err != nil {
		return r.handlePostgresError("create material", err)
	}

	return nil
}

func (r *Repository) GetMaterial(ctx context.Context, id int64) (*mv.Material, error) {
	// Soft-deleted materials stay addressable by id.
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`

	m, err := scanMaterial(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mv.ErrMaterialNotFound
		}
		return nil, r.handlePostgresError("get material", err)
	}
	return m, nil
}

func (r *Repository) GetMaterialByUUID(ctx context.Context, uid string) (*mv.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE uuid = $1`

	m, err := scanMaterial(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mv.ErrMaterialNotFound
		}
		return nil, r.handlePostgresError("get material by uuid", err)
	}
	return m, nil
}

func (r *Repository) UpdateMaterial(ctx context.Context, m *mv.Material) error {
	lists, err := materialListArgs(m)
	if err != nil {
		return fmt.Errorf("encode list columns: %w", err)
	}

	query := `
		UPDATE materials SET
			name_official = $2, category_main = $3, name = $4, category = $5,
			origin_type = $6, origin_detail = $7, transparency = $8,
			hardness_qualitative = $9, weight_qualitative = $10,
			water_resistance = $11, weather_resistance = $12,
			equipment_level = $13, prototyping_difficulty = $14,
			procurement_status = $15, cost_level = $16, visibility = $17,
			is_published = $18, is_deleted = $19, description = $20,
			specific_gravity = $21, heat_resistance_temp = $22,
			cost_value = $23, recycle_bio_rate = $24,
			name_aliases = $25, material_forms = $26, color_tags = $27,
			processing_methods = $28, use_categories = $29, safety_tags = $30,
			search_text = $31, updated_at = $32, deleted_at = $33
		WHERE id = $1`

	args := []any{
		m.ID, m.NameOfficial, m.CategoryMain, m.Name, m.Category,
		m.OriginType, m.OriginDetail, m.Transparency, m.HardnessQualitative,
		m.WeightQualitative, m.WaterResistance, m.WeatherResistance,
		m.EquipmentLevel, m.PrototypingDifficulty, m.ProcurementStatus,
		m.CostLevel, m.Visibility, m.IsPublished, m.IsDeleted, m.Description,
		m.SpecificGravity, m.HeatResistanceTemp, m.CostValue, m.RecycleBioRate,
	}
	args = append(args, lists...)
	args = append(args, m.SearchText, m.UpdatedAt, m.DeletedAt)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return r.handlePostgresError("update material", err)
	}
	if tag.RowsAffected() == 0 {
		return mv.ErrMaterialNotFound
	}

	return nil
}

func (r *Repository) FindActiveMaterialByName(ctx context.Context, nameOfficial string) (*mv.Material, error) {
	query := `SELECT ` + materialColumns + `
		FROM materials WHERE name_official = $1 AND is_deleted = FALSE
		ORDER BY id LIMIT 1`

	m, err := scanMaterial(r.db.QueryRow(ctx, query, nameOfficial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mv.ErrMaterialNotFound
		}
		return nil, r.handlePostgresError("find material by name", err)
	}
	return m, nil
}

func (r *Repository) ListMaterials(ctx context.Context, filter mv.MaterialListFilter) ([]*mv.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE is_deleted = FALSE`
	var args []any

	if !filter.IncludeUnpublished {
		query += ` AND is_published = TRUE`
	}
	if filter.CategoryMain != "" {
		args = append(args, filter.CategoryMain)
		query += fmt.Sprintf(` AND category_main = $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list materials", err)
	}
	defer rows.Close()

	var result []*mv.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, r.handlePostgresError("list materials", err)
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

// Submission operations

func (r *Repository) CreateSubmission(ctx context.Context, s *mv.MaterialSubmission) error {
	query := `
		INSERT INTO material_submissions (
			uuid, status, name_official, payload_json, approved_material_id,
			editor_note, reject_reason, submitted_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		s.UUID, s.Status, s.NameOfficial, string(s.PayloadJSON),
		s.ApprovedMaterialID, s.EditorNote, s.RejectReason, s.SubmittedBy,
		s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return r.handlePostgresError("create submission", err)
	}

	return nil
}

const submissionColumns = `
	id, uuid, status, name_official, payload_json, approved_material_id,
	editor_note, reject_reason, submitted_by, created_at, updated_at`

func scanSubmission(row rowScanner) (*mv.MaterialSubmission, error) {
	var (
		s       mv.MaterialSubmission
		payload string
	)
	err := row.Scan(
		&s.ID, &s.UUID, &s.Status, &s.NameOfficial, &payload,
		&s.ApprovedMaterialID, &s.EditorNote, &s.RejectReason, &s.SubmittedBy,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PayloadJSON = []byte(payload)
	return &s, nil
}

func (r *Repository) GetSubmission(ctx context.Context, id int64) (*mv.MaterialSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM material_submissions WHERE id = $1`

	s, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mv.ErrSubmissionNotFound
		}
		return nil, r.handlePostgresError("get submission", err)
	}
	return s, nil
}

func (r *Repository) GetSubmissionByUUID(ctx context.Context, uid string) (*mv.MaterialSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM material_submissions WHERE uuid = $1`

	s, err := scanSubmission(r.db.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mv.ErrSubmissionNotFound
		}
		return nil, r.handlePostgresError("get submission by uuid", err)
	}
	return s, nil
}

func (r *Repository) UpdateSubmission(ctx context.Context, s *mv.MaterialSubmission) error {
	query := `
		UPDATE material_submissions SET
			status = $2, name_official = $3, payload_json = $4,
			approved_material_id = $5, editor_note = $6, reject_reason = $7,
			submitted_by = $8, updated_at = $9
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		s.ID, s.Status, s.NameOfficial, string(s.PayloadJSON),
		s.ApprovedMaterialID, s.EditorNote, s.RejectReason, s.SubmittedBy,
		s.UpdatedAt,
	)
	if err != nil {
		return r.handlePostgresError("update submission", err)
	}
	if tag.RowsAffected() == 0 {
		return mv.ErrSubmissionNotFound
	}

	return nil
}

func (r *Repository) ListSubmissions(ctx context.Context, filter mv.SubmissionListFilter) ([]*mv.MaterialSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM material_submissions`
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` WHERE status = $%d`, len(args))
	}

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list submissions", err)
	}
	defer rows.Close()

	var result []*mv.MaterialSubmission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, r.handlePostgresError("list submissions", err)
		}
		result = append(result, s)
	}

	return result, rows.Err()
}

// Image operations

func (r *Repository) UpsertImage(ctx context.Context, img *mv.Image) error {
	// Match on (material_id, kind); only fields the descriptor provides
	// overwrite the stored row.
	query := `
		INSERT INTO images (
			material_id, kind, object_key, public_url, size_bytes,
			mime_type, sha256, description, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (material_id, kind) DO UPDATE SET
			object_key  = COALESCE(NULLIF(EXCLUDED.object_key, ''), images.object_key),
			public_url  = COALESCE(NULLIF(EXCLUDED.public_url, ''), images.public_url),
			size_bytes  = CASE WHEN EXCLUDED.size_bytes <> 0 THEN EXCLUDED.size_bytes ELSE images.size_bytes END,
			mime_type   = COALESCE(NULLIF(EXCLUDED.mime_type, ''), images.mime_type),
			sha256      = COALESCE(NULLIF(EXCLUDED.sha256, ''), images.sha256),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), images.description),
			updated_at  = NOW()
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		img.MaterialID, img.Kind, img.ObjectKey, img.PublicURL,
		img.SizeBytes, img.MimeType, img.SHA256, img.Description,
	).Scan(&img.ID)
	if err != nil {
		return r.handlePostgresError("upsert image", err)
	}

	return nil
}

func (r *Repository) GetImagesByMaterial(ctx context.Context, materialID int64) ([]*mv.Image, error) {
	query := `
		SELECT id, material_id, kind, object_key, public_url, size_bytes,
		       mime_type, sha256, description, created_at, updated_at
		FROM images WHERE material_id = $1 ORDER BY kind`

	rows, err := r.db.Query(ctx, query, materialID)
	if err != nil {
		return nil, r.handlePostgresError("get images", err)
	}
	defer rows.Close()

	var result []*mv.Image
	for rows.Next() {
		var img mv.Image
		err := rows.Scan(
			&img.ID, &img.MaterialID, &img.Kind, &img.ObjectKey,
			&img.PublicURL, &img.SizeBytes, &img.MimeType, &img.SHA256,
			&img.Description, &img.CreatedAt, &img.UpdatedAt,
		)
		if err != nil {
			return nil, r.handlePostgresError("get images", err)
		}
		result = append(result, &img)
	}

	return result, rows.Err()
}

// Child record operations

func (r *Repository) CreateReferenceURL(ctx context.Context, ref *mv.ReferenceURL) error {
	query := `
		INSERT INTO reference_urls (material_id, url, url_type, description)
		VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ref.MaterialID, ref.URL, ref.URLType, ref.Description,
	).Scan(&ref.ID)
	if err != nil {
		return r.handlePostgresError("create reference url", err)
	}

	return nil
}

func (r *Repository) DeleteReferenceURLsByMaterial(ctx context.Context, materialID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM reference_urls WHERE material_id = $1`, materialID)
	if err != nil {
		return r.handlePostgresError("delete reference urls", err)
	}
	return nil
}

func (r *Repository) ListReferenceURLs(ctx context.Context, materialID int64) ([]*mv.ReferenceURL, error) {
	query := `
		SELECT id, material_id, url, url_type, description
		FROM reference_urls WHERE material_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, materialID)
	if err != nil {
		return nil, r.handlePostgresError("list reference urls", err)
	}
	defer rows.Close()

	var result []*mv.ReferenceURL
	for rows.Next() {
		var ref mv.ReferenceURL
		if err := rows.Scan(&ref.ID, &ref.MaterialID, &ref.URL, &ref.URLType, &ref.Description); err != nil {
			return nil, r.handlePostgresError("list reference urls", err)
		}
		result = append(result, &ref)
	}

	return result, rows.Err()
}

func (r *Repository) CreateUseExample(ctx context.Context, ex *mv.UseExample) error {
	query := `
		INSERT INTO use_examples (
			material_id, example_name, domain, description, image_url,
			source_name, source_url, license_note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	err := r.db.QueryRow(ctx, query,
		ex.MaterialID, ex.ExampleName, ex.Domain, ex.Description,
		ex.ImageURL, ex.SourceName, ex.SourceURL, ex.LicenseNote,
	).Scan(&ex.ID)
	if err != nil {
		return r.handlePostgresError("create use example", err)
	}

	return nil
}

func (r *Repository) DeleteUseExamplesByMaterial(ctx context.Context, materialID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM use_examples WHERE material_id = $1`, materialID)
	if err != nil {
		return r.handlePostgresError("delete use examples", err)
	}
	return nil
}

func (r *Repository) ListUseExamples(ctx context.Context, materialID int64) ([]*mv.UseExample, error) {
	query := `
		SELECT id, material_id, example_name, domain, description,
		       image_url, source_name, source_url, license_note
		FROM use_examples WHERE material_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, materialID)
	if err != nil {
		return nil, r.handlePostgresError("list use examples", err)
	}
	defer rows.Close()

	var result []*mv.UseExample
	for rows.Next() {
		var ex mv.UseExample
		err := rows.Scan(
			&ex.ID, &ex.MaterialID, &ex.ExampleName, &ex.Domain,
			&ex.Description, &ex.ImageURL, &ex.SourceName, &ex.SourceURL,
			&ex.LicenseNote,
		)
		if err != nil {
			return nil, r.handlePostgresError("list use examples", err)
		}
		result = append(result, &ex)
	}

	return result, rows.Err()
}
