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

// DogHandler handles dog registry endpoints
type DogHandler struct {
	dogs repo.DogRepo
}

// NewDogHandler creates a new dog handler
func NewDogHandler(dogs repo.DogRepo) *DogHandler {
	return &DogHandler{dogs: dogs}
}

type dogRequest struct {
	Name          string  `json:"name"`
	TagNumber     string  `json:"tagNumber"`
	MicrochipNo   *string `json:"microchipNo"`
	Breed         string  `json:"breed"`
	Colour        string  `json:"colour"`
	Markings      *string `json:"markings"`
	Sex           string  `json:"sex"`
	BirthYear     int     `json:"birthYear"`
	Suburb        string  `json:"suburb"`
	Desexed       bool    `json:"desexed"`
	AnimalBreeder bool    `json:"animalBreeder"`
}

type dogResponse struct {
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
	AnimalBreeder    bool      `json:"animalBreeder"`
	RegistrationDate time.Time `json:"registrationDate"`
	OwnerID          *string   `json:"ownerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

func newDogResponse(dog model.Dog) dogResponse {
	resp := dogResponse{
		ID:               dog.ID.String(),
		Name:             dog.Name,
		TagNumber:        dog.TagNumber,
		MicrochipNo:      dog.MicrochipNo,
		Breed:            dog.Breed,
		Colour:           dog.Colour,
		Markings:         dog.Markings,
		Sex:              dog.Sex,
		BirthYear:        dog.BirthYear,
		Suburb:           dog.Suburb,
		Desexed:          dog.Desexed,
		AnimalBreeder:    dog.AnimalBreeder,
		RegistrationDate: dog.RegistrationDate,
		CreatedAt:        dog.CreatedAt,
	}
	if dog.OwnerID != nil {
		id := dog.OwnerID.String()
		resp.OwnerID = &id
	}
	return resp
}

func (req dogRequest) validate() error {
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

// HandleList handles GET /api/v1/dogs
func (h *DogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r, repo.DogSortableFields, "created_at")

	dogs, total, err := h.dogs.List(r.Context(), params)
	if err != nil {
		httpx.WriteError(w, apperr.Database("Failed to fetch dogs", err))
		return
	}

	items := make([]dogResponse, 0, len(dogs))
	for _, dog := range dogs {
		items = append(items, newDogResponse(dog))
	}
	data := map[string]interface{}{
		"dogs":       items,
		"pagination": pagination.NewMeta(params, total),
	}
	httpx.WriteSuccess(w, http.StatusOK, "Dogs fetched successfully", data)
}

// HandleGet handles GET /api/v1/dogs/{id}
func (h *DogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, apperr.Validation("Invalid dog ID"))
		return
	}

	dog, err := h.dogs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Dog not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to fetch dog", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Dog fetched successfully", newDogResponse(dog))
}

// HandleGetByTag handles GET /api/v1/dogs/tag/{tagNumber}
func (h *DogHandler) HandleGetByTag(w http.ResponseWriter, r *http.Request) {
	tagNumber := chi.URLParam(r, "tagNumber")
	if tagNumber == "" {
		httpx.WriteError(w, apperr.Validation("Tag number is required"))
		return
	}

	dog, err := h.dogs.GetByTagNumber(r.Context(), tagNumber)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Dog not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to fetch dog", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Dog fetched successfully", newDogResponse(dog))
}

// HandleCreate handles POST /api/v1/dogs (protected)
func (h *DogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req dogRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, err)
		return
	}

	dog := model.Dog{
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
		AnimalBreeder:    req.AnimalBreeder,
		RegistrationDate: time.Now(),
	}
	if user, ok := middleware.GetUser(r.Context()); ok && user != nil {
		dog.OwnerID = &user.ID
	}

	created, err := h.dogs.Create(r.Context(), dog)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			httpx.WriteError(w, apperr.Conflict("A dog with this tag number already exists"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to register dog", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, "Dog registered successfully", newDogResponse(created))
}

// HandleUpdate handles PUT /api/v1/dogs/{id} (protected)
func (h *DogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, apperr.Validation("Invalid dog ID"))
		return
	}

	var req dogRequest
	if err := decodeBody(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		httpx.WriteError(w, err)
		return
	}

	existing, err := h.dogs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Dog not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to fetch dog", err))
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
	existing.AnimalBreeder = req.AnimalBreeder

	updated, err := h.dogs.Update(r.Context(), existing)
	if err != nil {
		if errors.Is(err, db.ErrUniqueViolation) {
			httpx.WriteError(w, apperr.Conflict("A dog with this tag number already exists"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to update dog", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Dog updated successfully", newDogResponse(updated))
}

// HandleDelete handles DELETE /api/v1/dogs/{id} (protected)
func (h *DogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, apperr.Validation("Invalid dog ID"))
		return
	}

	if err := h.dogs.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			httpx.WriteError(w, apperr.NotFound("Dog not found"))
			return
		}
		httpx.WriteError(w, apperr.Database("Failed to delete dog", err))
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, "Dog deleted successfully", nil)
}
