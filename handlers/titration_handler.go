package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/services"
)

type TitrationHandler struct {
	titrationService *services.TitrationService
	premiumService   *services.PremiumService
	log              logger.Logger
}

func NewTitrationHandler(titrationService *services.TitrationService, premiumService *services.PremiumService, log logger.Logger) *TitrationHandler {
	return &TitrationHandler{
		titrationService: titrationService,
		premiumService:   premiumService,
		log:              log,
	}
}

type paywallResponse struct {
	Paywall bool            `json:"paywall"`
	Prices  []premium.Price `json:"prices"`
}

// respondWithPaywall answers 402 with whatever prices are available; a
// failed price lookup still yields the paywall.
func (h *TitrationHandler) respondWithPaywall(ctx context.Context, w http.ResponseWriter) {
	resp := paywallResponse{Paywall: true, Prices: []premium.Price{}}

	if h.premiumService != nil {
		prices, err := h.premiumService.ListPrices(ctx)
		switch {
		case errors.Is(err, services.ErrPaddleDisabled):
		case err != nil:
			h.log.Warnf("paywall: failed to list prices: %v", err)
		default:
			resp.Prices = prices
		}
	}

	respondWithJSON(w, http.StatusPaymentRequired, resp)
}

func (h *TitrationHandler) GetProtocols(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.titrationService.Protocols())
}

func (h *TitrationHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.titrationService.Schedule(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if res.Paywall {
		h.respondWithPaywall(ctx, w)
		return
	}

	respondWithJSON(w, http.StatusOK, res)
}

func (h *TitrationHandler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, paywall, err := h.titrationService.Export(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if paywall {
		h.respondWithPaywall(ctx, w)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="titration-schedule.txt"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

func (h *TitrationHandler) ApplyToCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entries, paywall, err := h.titrationService.ApplyToCalendar(ctx, userID, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if paywall {
		h.respondWithPaywall(ctx, w)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"created": len(entries),
		"entries": entries,
	})
}
