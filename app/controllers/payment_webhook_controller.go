package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/BenKrueger/DealerDesk/app/models"
	"github.com/BenKrueger/DealerDesk/internal/pkg/metrics/counter"
	"github.com/BenKrueger/DealerDesk/internal/pkg/payments"
)

const webhookHandleTimeout = 15 * time.Second

// EventDispatcher is the slice of the payment dispatcher this controller
// needs; it keeps the handler testable without a database.
type EventDispatcher interface {
	Handle(ctx context.Context, ev payments.WebhookEvent) *payments.ProcessingResult
}

// PaymentWebhookController is the HTTP boundary for provider billing
// webhooks. Signature verification and the coarse replay window live here;
// everything behind it assumes an authenticated, fresh event.
type PaymentWebhookController struct {
	dispatcher  EventDispatcher
	secret      string
	maxEventAge time.Duration
	metrics     *counter.Counter
	now         func() time.Time
}

// NewPaymentWebhookController wires the webhook endpoint. metrics may be nil.
func NewPaymentWebhookController(dispatcher EventDispatcher, secret string, metrics *counter.Counter) *PaymentWebhookController {
	return &PaymentWebhookController{
		dispatcher:  dispatcher,
		secret:      secret,
		maxEventAge: payments.DefaultMaxEventAge,
		metrics:     metrics,
		now:         time.Now,
	}
}

// HandleProviderWebhook receives one provider delivery. Response contract:
// 2xx acknowledges (applied, duplicate or stale), 4xx rejects without
// redelivery (authentication or malformed payload), 5xx asks the provider to
// redeliver later.
func (pc *PaymentWebhookController) HandleProviderWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("X-Payment-Signature")

	if !payments.VerifyWebhookSignature(rawBody, signature, pc.secret) {
		fiberlog.Warnf("[Webhook] rejected delivery with invalid signature from %s", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	ev, err := payments.ParseWebhookEvent(rawBody)
	if err != nil {
		fiberlog.Warnf("[Webhook] malformed payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	if !payments.WithinReplayWindow(ev.CreatedAt, pc.now(), pc.maxEventAge) {
		fiberlog.Warnf("[Webhook] rejected stale delivery %s created at %s", ev.ID, ev.CreatedAt)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stale_timestamp"})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookHandleTimeout)
	defer cancel()

	res := pc.dispatcher.Handle(ctx, *ev)
	pc.metrics.AddWebhookOutcome(ctx, string(res.Outcome))

	if !res.Ack() {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	body := fiber.Map{"ok": true, "outcome": string(res.Outcome)}
	if res.AggregateType == models.AggregateTypeMerchant && res.Outcome != payments.OutcomeStaleIgnored {
		body["unlisted_count"] = res.UnlistedCount
	}
	return c.Status(fiber.StatusOK).JSON(body)
}
