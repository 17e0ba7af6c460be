package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"peptideTrackAPI/internal/logger"
	"peptideTrackAPI/internal/premium"
	"peptideTrackAPI/services"
)

type WebhookHandler struct {
	premiumService *services.PremiumService
	endpointSecret string
	log            logger.Logger
}

func NewWebhookHandler(premiumService *services.PremiumService, endpointSecret string, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		premiumService: premiumService,
		endpointSecret: endpointSecret,
		log:            log,
	}
}

// HandleStripeWebhook keeps premium status in sync with Stripe subscriptions.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warnf("stripe webhook: error reading request body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	if h.endpointSecret == "" {
		h.log.Errorf("stripe webhook: STRIPE_WEBHOOK_SECRET is not set")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.endpointSecret)
	if err != nil {
		h.log.Warnf("stripe webhook: error verifying signature: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.log.Warnf("stripe webhook: error parsing session: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := h.handleCheckoutSessionCompleted(ctx, &session); err != nil {
			h.log.Errorf("stripe webhook: checkout.session.completed: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			h.log.Warnf("stripe webhook: error parsing subscription: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		active := event.Type != "customer.subscription.deleted" && services.StripeSubscriptionActive(sub.Status)
		if err := h.premiumService.SyncSubscription(ctx, sub.ID, active, time.Unix(sub.CurrentPeriodEnd, 0)); err != nil {
			h.log.Errorf("stripe webhook: %s: %v", event.Type, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			h.log.Warnf("stripe webhook: error parsing invoice: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if invoice.Subscription != nil {
			if err := h.handleInvoicePaymentSucceeded(ctx, invoice.Subscription.ID); err != nil {
				h.log.Errorf("stripe webhook: invoice.payment_succeeded: %v", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
		}

	default:
		h.log.Debugf("stripe webhook: unhandled event type %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutSessionCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	userID := session.Metadata["user_id"]
	if userID == "" {
		return fmt.Errorf("no user_id found in session metadata")
	}
	if session.Subscription == nil {
		return fmt.Errorf("session %s has no subscription", session.ID)
	}

	sub, err := h.premiumService.FetchStripeSubscription(session.Subscription.ID)
	if err != nil {
		return err
	}

	return h.premiumService.Grant(ctx, userID, premium.SourceStripe, sub.ID, time.Unix(sub.CurrentPeriodEnd, 0))
}

func (h *WebhookHandler) handleInvoicePaymentSucceeded(ctx context.Context, subscriptionID string) error {
	sub, err := h.premiumService.FetchStripeSubscription(subscriptionID)
	if err != nil {
		return err
	}

	return h.premiumService.SyncSubscription(ctx, sub.ID, services.StripeSubscriptionActive(sub.Status), time.Unix(sub.CurrentPeriodEnd, 0))
}
