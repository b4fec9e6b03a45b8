package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/materialvault/materialvault/pkg/materialvault"
)

// MaterialHandler handles HTTP requests for the material catalog
type MaterialHandler struct {
	service materialvault.Service
	logger  *slog.Logger
}

// NewMaterialHandler creates a new material handler
func NewMaterialHandler(service materialvault.Service, logger *slog.Logger) *MaterialHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaterialHandler{service: service, logger: logger}
}

// Routes returns the routes for materials
func (h *MaterialHandler) Routes(admin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMaterials)
	r.Get("/{key}", h.GetMaterial)
	r.Get("/{key}/images", h.GetImages)
	r.Get("/{key}/references", h.GetReferenceURLs)
	r.Get("/{key}/examples", h.GetUseExamples)

	r.Group(func(r chi.Router) {
		r.Use(admin)
		r.Put("/{key}", h.UpdateMaterial)
		r.Delete("/{key}", h.DeleteMaterial)
		r.Post("/import", h.ImportMaterials)
	})

	return r
}

// ListMaterials lists the catalog. Deleted materials are never listed;
// unpublished ones only when include_unpublished is set.
func (h *MaterialHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	req := materialvault.ListMaterialsRequest{
		IncludeUnpublished: r.URL.Query().Get("include_unpublished") == "true",
		CategoryMain:       r.URL.Query().Get("category"),
		Limit:              queryInt(r, "limit"),
		Offset:             queryInt(r, "offset"),
	}

	materials, err := h.service.ListMaterials(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to list materials", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if materials == nil {
		materials = []*materialvault.Material{}
	}
	render.JSON(w, r, materials)
}

// GetMaterial retrieves a material by id or UUID
func (h *MaterialHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	material, err := h.service.GetMaterialByKey(r.Context(), key)
	if err != nil {
		if errors.Is(err, materialvault.ErrMaterialNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to get material", "material_key", key, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, material)
}

// UpdateMaterialBody is the request body for a direct material edit
type UpdateMaterialBody struct {
	Fields        map[string]interface{}            `json:"fields"`
	ReferenceURLs []materialvault.ReferenceURLInput `json:"reference_urls,omitempty"`
	UseExamples   []materialvault.UseExampleInput   `json:"use_examples,omitempty"`
}

// UpdateMaterial applies a direct edit to a material
func (h *MaterialHandler) UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := h.materialID(w, r)
	if !ok {
		return
	}

	var body UpdateMaterialBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	material, err := h.service.UpdateMaterial(r.Context(), materialvault.UpdateMaterialRequest{
		MaterialID:    id,
		Fields:        materialvault.FieldMap(body.Fields),
		ReferenceURLs: body.ReferenceURLs,
		UseExamples:   body.UseExamples,
	})
	if err != nil {
		switch {
		case errors.Is(err, materialvault.ErrMaterialNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, materialvault.ErrNameConflict):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("Failed to update material", "material_id", id, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.logger.Info("Material updated", "material_id", id)
	render.JSON(w, r, material)
}

// DeleteMaterial soft-deletes a material
func (h *MaterialHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	id, ok := h.materialID(w, r)
	if !ok {
		return
	}

	if err := h.service.SoftDeleteMaterial(r.Context(), id); err != nil {
		if errors.Is(err, materialvault.ErrMaterialNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to delete material", "material_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Material deleted", "material_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GetImages lists the stored images of a material
func (h *MaterialHandler) GetImages(w http.ResponseWriter, r *http.Request) {
	h.listChildren(w, r, func(id int64) (interface{}, error) {
		images, err := h.service.GetImagesByMaterial(r.Context(), id)
		if images == nil {
			images = []*materialvault.Image{}
		}
		return images, err
	})
}

// GetReferenceURLs lists the reference URLs of a material
func (h *MaterialHandler) GetReferenceURLs(w http.ResponseWriter, r *http.Request) {
	h.listChildren(w, r, func(id int64) (interface{}, error) {
		refs, err := h.service.GetReferenceURLs(r.Context(), id)
		if refs == nil {
			refs = []*materialvault.ReferenceURL{}
		}
		return refs, err
	})
}

// GetUseExamples lists the use examples of a material
func (h *MaterialHandler) GetUseExamples(w http.ResponseWriter, r *http.Request) {
	h.listChildren(w, r, func(id int64) (interface{}, error) {
		examples, err := h.service.GetUseExamples(r.Context(), id)
		if examples == nil {
			examples = []*materialvault.UseExample{}
		}
		return examples, err
	})
}

func (h *MaterialHandler) listChildren(w http.ResponseWriter, r *http.Request, list func(id int64) (interface{}, error)) {
	id, ok := h.materialID(w, r)
	if !ok {
		return
	}

	result, err := list(id)
	if err != nil {
		if errors.Is(err, materialvault.ErrMaterialNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to list material children", "material_id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, result)
}

// ImportMaterialsBody is the request body for a bulk import run
type ImportMaterialsBody struct {
	Records []struct {
		Fields        map[string]interface{}            `json:"fields"`
		ReferenceURLs []materialvault.ReferenceURLInput `json:"reference_urls,omitempty"`
		UseExamples   []materialvault.UseExampleInput   `json:"use_examples,omitempty"`
	} `json:"records"`
	UpdateExisting bool `json:"update_existing,omitempty"`
}

// ImportMaterials runs each record through the approval upsert path and
// reports per-record results. The response is 200 even when rows fail.
func (h *MaterialHandler) ImportMaterials(w http.ResponseWriter, r *http.Request) {
	var body ImportMaterialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req := materialvault.ImportRequest{UpdateExisting: body.UpdateExisting}
	for _, rec := range body.Records {
		req.Records = append(req.Records, materialvault.ImportRecord{
			Fields:        materialvault.FieldMap(rec.Fields),
			ReferenceURLs: rec.ReferenceURLs,
			UseExamples:   rec.UseExamples,
		})
	}

	results := h.service.ImportMaterials(r.Context(), req)
	if results == nil {
		results = []materialvault.ImportRecordResult{}
	}

	h.logger.Info("Bulk import finished", "records", len(results))
	render.JSON(w, r, results)
}

func (h *MaterialHandler) materialID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "key")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid material ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
