package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/adoption-agency/internal/errs"
	"github.com/deppfellow/adoption-agency/internal/model"
	"github.com/deppfellow/adoption-agency/internal/server"
	"github.com/deppfellow/adoption-agency/internal/service"
	"github.com/deppfellow/adoption-agency/internal/validation"
)

// searchParamPrefix marks list query parameters that filter one column:
// ?search.name=cat
const searchParamPrefix = "search."

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Pointer converts to the service's convention: nil when absent, a
// pointer to "" when explicitly null.
func (o OptionalString) Pointer() *string {
	if !o.Set {
		return nil
	}
	if o.Value == nil {
		empty := ""
		return &empty
	}
	return o.Value
}

type CreateSpeciesRequest struct {
	Name string `json:"name" validate:"max=255"`
}

func (r *CreateSpeciesRequest) Validate() error {
	return validation.Struct(r)
}

type ListSpeciesRequest struct {
	IsActive string  `query:"isActive" validate:"omitempty,oneof=true false 1 0"`
	Name     string  `query:"name"`
	IDs      []int64 `query:"ids" validate:"dive,gt=0"`
	Search   string  `query:"q"`
}

func (r *ListSpeciesRequest) Validate() error {
	return validation.Struct(r)
}

// SpeciesIDRequest carries only the :id path parameter.
type SpeciesIDRequest struct {
	ID int64 `param:"id" json:"-"`
}

func (r *SpeciesIDRequest) Validate() error {
	return nil
}

type UpdateSpeciesRequest struct {
	ID   int64          `param:"id" json:"-"`
	Name OptionalString `json:"name"`
}

func (r *UpdateSpeciesRequest) Validate() error {
	if r.Name.Value != nil && len(*r.Name.Value) > 255 {
		return validation.CustomValidationErrors{{Field: "name", Message: "must not exceed 255 characters"}}
	}
	return nil
}

// SpeciesHandler exposes species CRUD over HTTP.
type SpeciesHandler struct {
	Handler
	speciesService *service.SpeciesService
}

func NewSpeciesHandler(s *server.Server, speciesService *service.SpeciesService) *SpeciesHandler {
	return &SpeciesHandler{
		Handler:        NewHandler(s),
		speciesService: speciesService,
	}
}

func (h *SpeciesHandler) CreateSpecies(c echo.Context, req *CreateSpeciesRequest) (*model.Species, error) {
	return h.speciesService.CreateSpecies(c.Request().Context(), req.Name)
}

func (h *SpeciesHandler) ListSpecies(c echo.Context, req *ListSpeciesRequest) ([]model.Species, error) {
	filter := model.SpeciesFilter{
		IDs:    req.IDs,
		Search: req.Search,
	}

	if req.IsActive != "" {
		active, _ := strconv.ParseBool(req.IsActive)
		filter.IsActive = &active
	}

	columns := map[string]string{}
	if req.Name != "" {
		columns[model.SpeciesColumnName] = req.Name
	}
	for key, values := range c.QueryParams() {
		column, ok := strings.CutPrefix(key, searchParamPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		columns[column] = values[0]
	}
	if len(columns) > 0 {
		filter.SearchByColumn = columns
	}

	return h.speciesService.ReadSpecies(c.Request().Context(), filter)
}

func (h *SpeciesHandler) GetSpecies(c echo.Context, req *SpeciesIDRequest) (*model.Species, error) {
	species, err := h.speciesService.GetSpecies(c.Request().Context(), req.ID)
	if err != nil {
		return nil, err
	}
	if species == nil {
		return nil, errs.NewNotFoundError("Species not found", true, nil)
	}
	return species, nil
}

func (h *SpeciesHandler) UpdateSpecies(c echo.Context, req *UpdateSpeciesRequest) (*model.Species, error) {
	return h.speciesService.UpdateSpecies(c.Request().Context(), req.ID, model.SpeciesChanges{
		Name: req.Name.Pointer(),
	})
}

func (h *SpeciesHandler) DeactivateSpecies(c echo.Context, req *SpeciesIDRequest) (*model.Species, error) {
	return h.speciesService.DeactivateSpecies(c.Request().Context(), req.ID)
}

func (h *SpeciesHandler) ActivateSpecies(c echo.Context, req *SpeciesIDRequest) (*model.Species, error) {
	return h.speciesService.ActivateSpecies(c.Request().Context(), req.ID)
}

func (h *SpeciesHandler) DeleteSpecies(c echo.Context, req *SpeciesIDRequest) error {
	return h.speciesService.DeleteSpecies(c.Request().Context(), req.ID)
}

// RegisterRoutes mounts the species endpoints on g.
func (h *SpeciesHandler) RegisterRoutes(g *echo.Group) {
	species := g.Group("/species")

	species.POST("", Handle(h.Handler, h.CreateSpecies, http.StatusCreated, &CreateSpeciesRequest{}))
	species.GET("", Handle(h.Handler, h.ListSpecies, http.StatusOK, &ListSpeciesRequest{}))
	species.GET("/:id", Handle(h.Handler, h.GetSpecies, http.StatusOK, &SpeciesIDRequest{}))
	species.PATCH("/:id", Handle(h.Handler, h.UpdateSpecies, http.StatusOK, &UpdateSpeciesRequest{}))
	species.POST("/:id/deactivate", Handle(h.Handler, h.DeactivateSpecies, http.StatusOK, &SpeciesIDRequest{}))
	species.POST("/:id/activate", Handle(h.Handler, h.ActivateSpecies, http.StatusOK, &SpeciesIDRequest{}))
	species.DELETE("/:id", HandleNoContent(h.Handler, h.DeleteSpecies, http.StatusNoContent, &SpeciesIDRequest{}))
}
