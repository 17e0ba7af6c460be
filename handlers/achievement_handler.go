package handlers

import (
	"context"
	"net/http"
	"time"

	"peptideTrackAPI/services"
)

type AchievementHandler struct {
	achievementService *services.AchievementService
}

func NewAchievementHandler(achievementService *services.AchievementService) *AchievementHandler {
	return &AchievementHandler{
		achievementService: achievementService,
	}
}

func (h *AchievementHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	achievements, err := h.achievementService.ListAchievements(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, achievements)
}

func (h *AchievementHandler) GetPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	points, err := h.achievementService.TotalPoints(ctx, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"total_points": points})
}

// Evaluate runs an evaluation pass. A degraded pass is still a 200; clients
// check the degraded flag.
func (h *AchievementHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	respondWithJSON(w, http.StatusOK, h.achievementService.Evaluate(ctx, userID))
}

type featureUsageRequest struct {
	AchievementID string `json:"achievement_id"`
}

func (h *AchievementHandler) RecordFeatureUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req featureUsageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := h.achievementService.RecordFeatureUsage(ctx, userID, req.AchievementID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"unlocked":    rec != nil,
		"achievement": rec,
	})
}
