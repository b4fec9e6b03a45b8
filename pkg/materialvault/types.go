package materialvault

import "time"

// SubmissionStatus is the domain type for submission lifecycle states.
type SubmissionStatus string

// Submission status constants (typed).
const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Image kind constants. The set is open: any non-empty string is a valid
// kind, these are the ones the catalog UI knows about.
const (
	ImageKindPrimary = "primary"
	ImageKindSpace   = "space"
	ImageKindProduct = "product"
)

// Visibility values. Only VisibilityPublic publishes a material; every
// other value (including unrecognized ones) keeps it unpublished.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Approve action tags returned from the material upsert.
type ApproveAction string

const (
	ActionCreated ApproveAction = "created"
	ActionUpdated ApproveAction = "updated"
)

// Material is the canonical record of a physical material.
//
// Ordered-list attributes are kept as native string slices; serialization
// to the datastore's text-blob format happens at the persistence boundary,
// never in business logic.
type Material struct {
	ID   int64  `json:"id"`
	UUID string `json:"uuid"`

	NameOfficial string `json:"name_official"`
	CategoryMain string `json:"category_main"`

	// Legacy mirrors of NameOfficial/CategoryMain kept for older readers.
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`

	OriginType            string `json:"origin_type"`
	OriginDetail          string `json:"origin_detail"`
	Transparency          string `json:"transparency"`
	HardnessQualitative   string `json:"hardness_qualitative"`
	WeightQualitative     string `json:"weight_qualitative"`
	WaterResistance       string `json:"water_resistance"`
	WeatherResistance     string `json:"weather_resistance"`
	EquipmentLevel        string `json:"equipment_level"`
	PrototypingDifficulty string `json:"prototyping_difficulty"`
	ProcurementStatus     string `json:"procurement_status"`
	CostLevel             string `json:"cost_level"`
	Visibility            string `json:"visibility"`
	IsPublished           bool   `json:"is_published"`
	IsDeleted             bool   `json:"is_deleted"`

	Description string `json:"description,omitempty"`

	SpecificGravity    *float64 `json:"specific_gravity,omitempty"`
	HeatResistanceTemp *float64 `json:"heat_resistance_temp,omitempty"`
	CostValue          *float64 `json:"cost_value,omitempty"`
	RecycleBioRate     *float64 `json:"recycle_bio_rate,omitempty"`

	NameAliases       []string `json:"name_aliases,omitempty"`
	MaterialForms     []string `json:"material_forms,omitempty"`
	ColorTags         []string `json:"color_tags,omitempty"`
	ProcessingMethods []string `json:"processing_methods,omitempty"`
	UseCategories     []string `json:"use_categories,omitempty"`
	SafetyTags        []string `json:"safety_tags,omitempty"`

	// SearchText is derived from the fields above and regenerated on every
	// write; it feeds full-text search and is never authoritative.
	SearchText string `json:"search_text,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// MaterialSubmission is an untrusted, provisional material record awaiting
// review. PayloadJSON holds the full proposed field set plus optional
// embedded images, exactly as submitted.
type MaterialSubmission struct {
	ID   int64  `json:"id"`
	UUID string `json:"uuid"`

	Status       SubmissionStatus `json:"status"`
	NameOfficial string           `json:"name_official,omitempty"`
	PayloadJSON  []byte           `json:"payload_json"`

	// ApprovedMaterialID is set exactly once, when the submission is
	// approved.
	ApprovedMaterialID *int64 `json:"approved_material_id,omitempty"`

	EditorNote   string `json:"editor_note,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`
	SubmittedBy  string `json:"submitted_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Image is a classified visual asset attached to a material. At most one
// image exists per (material id, kind) pair.
type Image struct {
	ID         int64  `json:"id"`
	MaterialID int64  `json:"material_id"`
	Kind       string `json:"kind"`

	ObjectKey string `json:"object_key,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	SHA256    string `json:"sha256,omitempty"`

	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReferenceURL is a child record of a material, replaced wholesale on
// every material update.
type ReferenceURL struct {
	ID         int64  `json:"id"`
	MaterialID int64  `json:"material_id"`
	URL        string `json:"url"`
	URLType    string `json:"url_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// UseExample is a representative-use child record of a material, replaced
// wholesale on every material update.
type UseExample struct {
	ID          int64  `json:"id"`
	MaterialID  int64  `json:"material_id"`
	ExampleName string `json:"example_name"`
	Domain      string `json:"domain,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	LicenseNote string `json:"license_note,omitempty"`
}
