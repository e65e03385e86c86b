package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/animalportal/server/internal/apperr"
	"github.com/animalportal/server/internal/db"
	"github.com/animalportal/server/internal/httpx"
	"github.com/animalportal/server/internal/middleware"
	"github.com/animalportal/server/internal/model"
	"github.com/animalportal/server/internal/pagination"
	"github.com/animalportal/server/internal/repo"
)

// CatHandler handles cat registry endpoints
type CatHandler struct {
	cats repo.CatRepo
}

// NewCatHandler creates a new cat handler
func NewCatHandler(cats repo.CatRepo) *CatHandler {
	return &CatHandler{cats: cats}
}

type catRequest struct {
	Name        string  `json:"name"`
	TagNumber   string  `json:"tagNumber"`
	MicrochipNo *string `json:"microchipNo"`
	Breed       string  `json:"breed"`
	Colour      string  `json:"colour"`
	Markings    *string `json:"markings"`
	Sex         string  `json:"sex"`
	BirthYear   int     `json:"birthYear"`
	Suburb      string  `json:"suburb"`
	Desexed     bool    `json:"desexed"`
}

type catResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	TagNumber        string    `json:"tagNumber"`
	MicrochipNo      *string   `json:"microchipNo,omitempty"`
	Breed            string    `json:"breed"`
	Colour           string    `json:"colour"`
	Markings         *string   `json:"markings,omitempty"`
	Sex              string    `json:"sex"`
	BirthYear        int       `json:"birthYear"`
	Suburb           string    `json:"suburb"`
	Desexed          bool      `json:"desexed"`
	RegistrationDate time.Time `json:"registrationDate"`
	OwnerID          *string   `json:"ownerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newCatResponse(cat model.Cat) catResponse {
	resp := catResponse{
		ID:               cat.ID.String(),
		Name:             cat.Name,
		TagNumber:        cat.TagNumber,
		MicrochipNo:      cat.MicrochipNo,
		Breed:            cat.Breed,
		Colour:           cat.Colour,
		Markings:         cat.Markings,
		Sex:              cat.Sex,
		BirthYear:        cat.BirthYear,
		Suburb:           cat.Suburb,
		Desexed:          cat.Desexed,
		RegistrationDate: cat.RegistrationDate,
		CreatedAt:        cat.CreatedAt,
	}
	if cat.OwnerID != nil {
		id := cat.OwnerID.String()
		resp.OwnerID = &id
	}
	return resp
}

func (req catRequest) validate() error {
	if req.Name == "" {
		return apperr.Validation("Name is required")
	}
	if req.TagNumber == "" {
		return apperr.Validation("Tag number is required")
	}
	if req.Breed == "" {
		return apperr.Validation("Breed is required")
	}
	return nil
}

// HandleList handles GET /api/v1/cats
func (h *CatHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r, repo.CatSortableFields, "created_at")

	cats, total, err := h.cats.List(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, apperr.Database("Failed to fetch cats", err))
		return
	}

	items := make([]catResponse, 0, len(cats))
	for _, cat := range cats {
		items = append(items, newCatResponse(cat))
	}
	data := map[string]interface{}{
		"cats":       items,
		"pagination": pagination.NewMeta(params, total),
	}
	httpx.WriteSuccess(w, http.StatusOK, "Cats fetched successfully", data)
}

// HandleGet handles GET /api/v1/cats/{id}
func (h *CatHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, apperr.Validation("Invalid cat ID"))
		return
	}

	cat, err := h.cats.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Cat not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to fetch cat", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Cat fetched successfully", newCatResponse(cat))
}

// HandleGetByTag handles GET /api/v1/cats/tag/{tagNumber}
func (h *CatHandler) HandleGetByTag(w http.ResponseWriter, r *http.Request) {
	tagNumber := chi.URLParam(r, "tagNumber")
	if tagNumber == "" {
		httpx.WriteError(w, apperr.Validation("Tag number is required"))
		return
	}

	cat, err := h.cats.GetByTagNumber(r.Context(), tagNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Cat not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to fetch cat", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Cat fetched successfully", newCatResponse(cat))
}

// HandleCreate handles POST /api/v1/cats (protected)
func (h *CatHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req catRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, err)
		return
	}

	cat := model.Cat{
		Name:             req.Name,
		TagNumber:        req.TagNumber,
		MicrochipNo:      req.MicrochipNo,
		Breed:            req.Breed,
		Colour:           req.Colour,
		Markings:         req.Markings,
		Sex:              req.Sex,
		BirthYear:        req.BirthYear,
		Suburb:           req.Suburb,
		Desexed:          req.Desexed,
		RegistrationDate: time.Now(),
	}
	if user, ok := middleware.GetUser(r.Context()); ok && user != nil {
		cat.OwnerID = &user.ID
	}

	created, err := h.cats.Create(r.Context(), cat)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			httpx.WriteError(w, apperr.Conflict("A cat with this tag number already exists"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to register cat", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Cat registered successfully", newCatResponse(created))
}

// HandleUpdate handles PUT /api/v1/cats/{id} (protected)
func (h *CatHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, apperr.Validation("Invalid cat ID"))
		return
	}

	var req catRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, err)
		return
	}

	existing, err := h.cats.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Cat not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to fetch cat", err))
		return
	}

	existing.Name = req.Name
	existing.TagNumber = req.TagNumber
	existing.MicrochipNo = req.MicrochipNo
	existing.Breed = req.Breed
	existing.Colour = req.Colour
	existing.Markings = req.Markings
	existing.Sex = req.Sex
	existing.BirthYear = req.BirthYear
	existing.Suburb = req.Suburb
	existing.Desexed = req.Desexed

	updated, err := h.cats.Update(r.Context(), existing)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			httpx.WriteError(w, apperr.Conflict("A cat with this tag number already exists"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to update cat", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Cat updated successfully", newCatResponse(updated))
}

// HandleDelete handles DELETE /api/v1/cats/{id} (protected)
func (h *CatHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, apperr.Validation("Invalid cat ID"))
		return
	}

	if err := h.cats.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Cat not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to delete cat", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Cat deleted successfully", nil)
}
