package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/grocery-deals-api/internal/domain"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
)

type geocodeRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	coords, found, err := s.dir.ResolveAddress(r.Context(), req.Address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "could not geocode address"})
		return
	}
	writeJSON(w, http.StatusOK, coords)
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var in domain.StoreInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	store, err := s.dir.CreateStore(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/stores/%d", store.ID))
	writeJSON(w, http.StatusCreated, store)
}

func (s *Server) handleGetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	store, err := s.dir.GetStore(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, store)
}

func (s *Server) handleSearchStores(w http.ResponseWriter, r *http.Request) {
	p := newQueryParser(r)
	q := domain.RadiusQuery{
		Center: geo.Coordinates{
			Latitude:  p.requiredFloat("latitude"),
			Longitude: p.requiredFloat("longitude"),
		},
		RadiusKm: p.float("radius_km", domain.DefaultRadiusKm),
		Page:     p.page(),
	}
	if err := p.err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	stores, err := s.dir.FindStoresWithinRadius(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	writeJSON(w, http.StatusOK, stores)
}

func (s *Server) handleCreatePromotion(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in domain.PromotionInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	promo, err := s.dir.CreatePromotion(r.Context(), storeID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, promo)
}

func (s *Server) handleListPromotions(w http.ResponseWriter, r *http.Request) {
	storeID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p := newQueryParser(r)
	page := p.page()
	if err := p.err(); err != nil {
		s.writeError(w, r, err)
		return
	}

	promos, err := s.dir.ListPromotions(r.Context(), storeID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if promos == nil {
		promos = []domain.Promotion{}
	}
	writeJSON(w, http.StatusOK, promos)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("id", "must be an integer")
	}
	return id, nil
}
