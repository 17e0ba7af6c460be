package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/services"
)

const paddleSubscriptionCanceled paddle.EventTypeName = "subscription.canceled"

// defaultPaddlePeriod is used when a paid transaction carries no billing period.
const defaultPaddlePeriod = 30 * 24 * time.Hour

type PaddleHandler struct {
	premiumService *services.PremiumService
	verifier       *paddle.WebhookVerifier
	log            logger.Logger
	now            func() time.Time
}

// NewPaddleHandler builds the handler. An empty secret rejects all webhooks.
func NewPaddleHandler(premiumService *services.PremiumService, secret string, log logger.Logger) *PaddleHandler {
	h := &PaddleHandler{
		premiumService: premiumService,
		log:            log,
		now:            time.Now,
	}
	if secret != "" {
		h.verifier = paddle.NewWebhookVerifier(secret)
	}
	return h
}

func (h *PaddleHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	prices, err := h.premiumService.ListPrices(ctx)
	if errors.Is(err, services.ErrPaddleDisabled) {
		respondWithJSON(w, http.StatusOK, []premium.Price{})
		return
	}
	if err != nil {
		h.log.Errorf("GetPrices: %v", err)
		respondWithError(w, http.StatusBadGateway, "Failed to load prices")
		return
	}

	respondWithJSON(w, http.StatusOK, prices)
}

type paddleWebhook struct {
	EventID   string               `json:"event_id"`
	EventType paddle.EventTypeName `json:"event_type"`
	Data      paddleEntity         `json:"data"`
}

type paddlePeriod struct {
	EndsAt time.Time `json:"ends_at"`
}

// paddleEntity covers the transaction and subscription fields used here.
type paddleEntity struct {
	ID                   string         `json:"id"`
	Status               string         `json:"status"`
	SubscriptionID       *string        `json:"subscription_id"`
	CustomData           map[string]any `json:"custom_data"`
	BillingPeriod        *paddlePeriod  `json:"billing_period"`
	CurrentBillingPeriod *paddlePeriod  `json:"current_billing_period"`
}

func (e paddleEntity) userID() string {
	if id, ok := e.CustomData["userId"].(string); ok {
		return id
	}
	return ""
}

func (h *PaddleHandler) PaddleWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		h.log.Errorf("paddle webhook: PADDLE_SECRET_KEY missing")
		http.Error(w, "Configuration Error", http.StatusInternalServerError)
		return
	}

	valid, err := h.verifier.Verify(r)
	if err != nil || !valid {
		h.log.Warnf("paddle webhook: invalid signature: %v", err)
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Unable to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	entityID, err := h.applyEvent(r.Context(), body)
	if err != nil {
		h.log.Errorf("paddle webhook: %v", err)
		http.Error(w, "Unable to process event", http.StatusBadRequest)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"ID": entityID})
}

// applyEvent updates premium status from a verified webhook body and returns
// the id of the entity it acted on.
func (h *PaddleHandler) applyEvent(ctx context.Context, body []byte) (string, error) {
	var event paddleWebhook
	if err := json.Unmarshal(body, &event); err != nil {
		return "", fmt.Errorf("unable to parse event: %w", err)
	}

	data := event.Data
	switch event.EventType {
	case paddle.EventTypeNameTransactionPaid:
		userID := data.userID()
		if userID == "" {
			return "", fmt.Errorf("transaction %s has no userId in custom_data", data.ID)
		}
		subID := data.ID
		if data.SubscriptionID != nil {
			subID = *data.SubscriptionID
		}
		validUntil := h.now().Add(defaultPaddlePeriod)
		if data.BillingPeriod != nil {
			validUntil = data.BillingPeriod.EndsAt
		}
		return data.ID, h.premiumService.Grant(ctx, userID, premium.SourcePaddle, subID, validUntil)

	case paddle.EventTypeNameSubscriptionCreated, paddle.EventTypeNameSubscriptionUpdated:
		active := data.Status == "active" || data.Status == "trialing"
		validUntil := h.now()
		if data.CurrentBillingPeriod != nil {
			validUntil = data.CurrentBillingPeriod.EndsAt
		}
		if userID := data.userID(); userID != "" && active {
			return data.ID, h.premiumService.Grant(ctx, userID, premium.SourcePaddle, data.ID, validUntil)
		}
		return data.ID, h.premiumService.SyncSubscription(ctx, data.ID, active, validUntil)

	case paddleSubscriptionCanceled:
		return data.ID, h.premiumService.SyncSubscription(ctx, data.ID, false, h.now())

	default:
		h.log.Debugf("paddle webhook: unhandled event type %s", event.EventType)
		return event.EventID, nil
	}
}
