package handlers

import (
	"context"
	"net/http"
	"time"

	"peptideTrackAPI/internal/injection"
	"peptideTrackAPI/services"
)

type InjectionHandler struct {
	injectionService *services.InjectionService
}

func NewInjectionHandler(injectionService *services.InjectionService) *InjectionHandler {
	return &InjectionHandler{
		injectionService: injectionService,
	}
}

func (h *InjectionHandler) LogInjection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req injection.LogInjectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.injectionService.LogInjection(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, res)
}
