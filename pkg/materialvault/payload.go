package materialvault

import (
	"encoding/json"
	"fmt"
)

// SubmissionPayload is the typed form of a submission's payload_json:
// a material field map plus the relationship collections that ride along
// with it. It is produced at the intake boundary so the rest of the
// pipeline never handles raw JSON.
type SubmissionPayload struct {
	Fields        FieldMap
	Images        []ImageInput
	ReferenceURLs []ReferenceURLInput
	UseExamples   []UseExampleInput
}

// ImageInput describes one image accompanying a submission: either an
// embedded base64 payload still needing upload, or a descriptor for bytes
// already sitting in the object store.
type ImageInput struct {
	Kind string `json:"kind"`

	// Embedded payload (upload still required).
	DataBase64 string `json:"data_base64,omitempty"`
	FileName   string `json:"file_name,omitempty"`

	// Already-uploaded descriptor.
	ObjectKey string `json:"object_key,omitempty"`
	PublicURL string `json:"public_url,omitempty"`
	SHA256    string `json:"sha256,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`

	MimeType    string `json:"mime,omitempty"`
	Description string `json:"description,omitempty"`
}

// Uploaded reports whether the image already lives in the object store.
func (i ImageInput) Uploaded() bool {
	return i.ObjectKey != "" || i.PublicURL != ""
}

// ReferenceURLInput is a proposed reference-URL child record.
type ReferenceURLInput struct {
	URL         string `json:"url"`
	URLType     string `json:"url_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// UseExampleInput is a proposed use-example child record.
type UseExampleInput struct {
	ExampleName string `json:"example_name"`
	Domain      string `json:"domain,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SourceName  string `json:"source_name,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
	LicenseNote string `json:"license_note,omitempty"`
}

// Keys in a raw payload that are not material columns: relationship
// collections handled separately and system-managed identity columns a
// submitter must never set.
var (
	relationshipKeys = []string{
		"images", "uploaded_images", "reference_urls", "use_examples",
		"properties", "metadata_items", "process_example_images",
	}
	systemKeys = []string{"id", "uuid", "created_at", "updated_at", "deleted_at", "search_text"}
)

// payloadEnvelope pulls the typed collections out of a raw payload.
type payloadEnvelope struct {
	Images         []ImageInput        `json:"images"`
	UploadedImages []ImageInput        `json:"uploaded_images"`
	ReferenceURLs  []ReferenceURLInput `json:"reference_urls"`
	UseExamples    []UseExampleInput   `json:"use_examples"`
}

// DecodeSubmissionPayload parses raw payload JSON into its typed form.
// Relationship and system keys are stripped from the field map, so the
// remaining keys are exactly the material columns the submitter provided.
func DecodeSubmissionPayload(raw []byte) (*SubmissionPayload, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var env payloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	for _, k := range relationshipKeys {
		delete(fields, k)
	}
	for _, k := range systemKeys {
		delete(fields, k)
	}

	images := append(env.UploadedImages, env.Images...)

	return &SubmissionPayload{
		Fields:        fields,
		Images:        images,
		ReferenceURLs: env.ReferenceURLs,
		UseExamples:   env.UseExamples,
	}, nil
}

// Encode serializes the payload back into the stored payload_json form.
func (p *SubmissionPayload) Encode() ([]byte, error) {
	doc := make(map[string]any, len(p.Fields)+3)
	for k, v := range p.Fields {
		doc[k] = v
	}
	if len(p.Images) > 0 {
		doc["images"] = p.Images
	}
	if len(p.ReferenceURLs) > 0 {
		doc["reference_urls"] = p.ReferenceURLs
	}
	if len(p.UseExamples) > 0 {
		doc["use_examples"] = p.UseExamples
	}
	return json.Marshal(doc)
}
