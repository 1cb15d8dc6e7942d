package points

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pointbank/pointbank/internal/ledger"
)

const dateLayout = "2006-01-02"

// Handler exposes the point transaction endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a points handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transactionRequest struct {
	MemberID  string `json:"member_id"`
	EventType string `json:"event_type"`
	Amount    int64  `json:"amount"`
	ExpiresOn string `json:"expires_on,omitempty"` // date, YYYY-MM-DD
	WalletID  string `json:"wallet_id,omitempty"`
	OrderRef  string `json:"order_ref,omitempty"`
	EventAt   string `json:"event_at,omitempty"` // RFC 3339
}

// Transact is the single entry point for the four balance-affecting events.
// The event_type field selects the operation; unknown types are rejected
// before anything else is looked at.
func (h *Handler) Transact(c *fiber.Ctx) error {
	var req transactionRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, ErrMalformedRequest)
	}

	eventType, err := ledger.ParseEventType(req.EventType)
	if err != nil {
		return writeError(c, ErrInvalidEventCode)
	}
	if req.MemberID == "" || req.Amount <= 0 {
		return writeError(c, ErrMalformedRequest)
	}

	var eventAt time.Time
	if req.EventAt != "" {
		eventAt, err = time.Parse(time.RFC3339, req.EventAt)
		if err != nil {
			return writeError(c, ErrMalformedRequest)
		}
	}

	var res Result
	switch eventType {
	case ledger.EventGrant:
		var expiresOn time.Time
		if req.ExpiresOn != "" {
			expiresOn, err = time.Parse(dateLayout, req.ExpiresOn)
			if err != nil {
				return writeError(c, ErrMalformedRequest)
			}
		}
		res, err = h.service.Grant(c.UserContext(), GrantInput{
			MemberID:  req.MemberID,
			Amount:    req.Amount,
			ExpiresOn: expiresOn,
			EventAt:   eventAt,
		})
	case ledger.EventGrantReversal:
		if req.WalletID == "" {
			return writeError(c, ErrMalformedRequest)
		}
		res, err = h.service.ReverseGrant(c.UserContext(), ReverseGrantInput{
			MemberID: req.MemberID,
			WalletID: req.WalletID,
			Amount:   req.Amount,
			EventAt:  eventAt,
		})
	case ledger.EventSpend:
		res, err = h.service.Spend(c.UserContext(), SpendInput{
			MemberID: req.MemberID,
			Amount:   req.Amount,
			EventAt:  eventAt,
		})
	case ledger.EventSpendReversal:
		if req.OrderRef == "" {
			return writeError(c, ErrMalformedRequest)
		}
		res, err = h.service.ReverseSpend(c.UserContext(), ReverseSpendInput{
			MemberID: req.MemberID,
			OrderRef: req.OrderRef,
			Amount:   req.Amount,
			EventAt:  eventAt,
		})
	}
	if err != nil {
		return writeError(c, err)
	}

	body := fiber.Map{
		"member_id": res.MemberID,
		"amount":    res.Amount,
	}
	if res.OrderRef != "" {
		body["order_ref"] = res.OrderRef
	}
	if res.WalletID != "" {
		body["wallet_id"] = res.WalletID
	}
	return c.Status(http.StatusCreated).JSON(body)
}

// Wallets returns a member's lots for auditing.
func (h *Handler) Wallets(c *fiber.Ctx) error {
	lots, err := h.service.Lots(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}

	now := time.Now().UTC()
	out := make([]fiber.Map, 0, len(lots))
	for _, lot := range lots {
		out = append(out, fiber.Map{
			"wallet_id":  lot.ID,
			"issued":     lot.Issued,
			"used":       lot.Used,
			"status":     string(lot.EffectiveStatus(now)),
			"source":     string(lot.Source),
			"expires_on": lot.ExpiresOn.Format(dateLayout),
			"created_at": lot.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"wallets": out})
}

// writeError renders the stable {code, message} failure shape. Anything
// outside the typed taxonomy is surfaced opaquely; details have already been
// logged at the coordinator.
func writeError(c *fiber.Ctx, err error) error {
	var typed *Error
	if !errors.As(err, &typed) {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"code":    CodeUnexpected,
			"message": "internal error",
		})
	}
	return c.Status(statusFor(typed)).JSON(fiber.Map{
		"code":    typed.Code,
		"message": typed.Message,
	})
}

func statusFor(e *Error) int {
	switch e.Code {
	case "not_found":
		return http.StatusNotFound
	case "already_used", "already_terminal", "over_reversal":
		return http.StatusConflict
	case "insufficient_balance", "below_minimum_amount", "above_maximum_amount",
		"balance_cap_exceeded", "expiry_too_soon", "expiry_too_far",
		"invalid_event_code", "malformed_request":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
