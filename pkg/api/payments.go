package api

import (
	"net/http"
	"strconv"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/extensions/payment/types"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

type donorForm struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Contact        string `json:"contact"`
	Address        string `json:"address"`
	PanCard        string `json:"panCard"`
	Message        string `json:"message"`
	ReceiveUpdates *bool  `json:"receiveUpdates"`
}

func (f donorForm) phone() string {
	if f.Phone != "" {
		return f.Phone
	}
	return f.Contact
}

type createOrderRequest struct {
	Amount   decimal.Decimal        `json:"amount"`
	Currency string                 `json:"currency"`
	Notes    map[string]interface{} `json:"notes"`
	Donor    *donorForm             `json:"donor"`
}

type createSubscriptionRequest struct {
	PlanID          string                 `json:"planId"`
	Amount          *decimal.Decimal       `json:"amount"`
	CustomerDetails donorForm              `json:"customerDetails"`
	Notes           map[string]interface{} `json:"notes"`
}

type verifyPaymentRequest struct {
	PaymentID      string `json:"razorpay_payment_id"`
	OrderID        string `json:"razorpay_order_id"`
	SubscriptionID string `json:"razorpay_subscription_id"`
	Signature      string `json:"razorpay_signature"`
	DonationID     string `json:"donation_id"`
}

func bindJSON(c *gin.Context, v interface{}) error {
	if err := c.ShouldBindJSON(v); err != nil {
		return errors.New(errors.KindValidation, "Invalid request body")
	}
	return nil
}

func donationInput(f donorForm, amount decimal.Decimal, currency string, notes map[string]interface{}) types.DonationInput {
	return types.DonationInput{
		DonorName:      f.Name,
		DonorEmail:     f.Email,
		DonorPhone:     f.phone(),
		Address:        f.Address,
		PanCard:        f.PanCard,
		Amount:         amount,
		Currency:       currency,
		Message:        f.Message,
		ReceiveUpdates: f.ReceiveUpdates,
		Notes:          cast.ToStringMapString(notes),
	}
}

// POST create-order
func (s *Server) createOrder(c *gin.Context) error {
	var req createOrderRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.Request.Context()

	if req.Donor == nil {
		order, err := s.payments.Intents().CreateOrder(ctx, types.OrderRequest{
			Amount:   req.Amount,
			Currency: req.Currency,
			Notes:    cast.ToStringMapString(req.Notes),
		})
		if err != nil {
			return err
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
		return nil
	}

	started, err := s.payments.StartOneTime(ctx, donationInput(*req.Donor, req.Amount, req.Currency, req.Notes))
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"order":      started.Order,
		"donationId": s.payments.PublicID(started.Donation),
	})
	return nil
}

// POST create-subscription
func (s *Server) createSubscription(c *gin.Context) error {
	var req createSubscriptionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx := c.Request.Context()

	var amount decimal.Decimal
	switch {
	case req.Amount != nil:
		amount = *req.Amount
	case req.PlanID != "":
		monthly, ok := s.payments.Plans().AmountFor(req.PlanID)
		if !ok {
			// a plan we cannot price, so no donation record is kept
			sub, err := s.payments.Intents().CreateSubscription(ctx, types.SubscriptionRequest{
				PlanID: req.PlanID,
				Customer: types.CustomerDetails{
					Name:    req.CustomerDetails.Name,
					Email:   req.CustomerDetails.Email,
					Contact: req.CustomerDetails.phone(),
				},
				Notes: cast.ToStringMapString(req.Notes),
			})
			if err != nil {
				return err
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "subscription": sub})
			return nil
		}
		amount = decimal.NewFromInt(monthly)
	default:
		return errors.MissingField("planId")
	}

	started, err := s.payments.StartSubscription(ctx, donationInput(req.CustomerDetails, amount, "", req.Notes), req.PlanID)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"subscription": started.Subscription,
		"plan":         started.Plan,
		"donationId":   s.payments.PublicID(started.Donation),
	})
	return nil
}

// GET get-plan-id?amount=N
func (s *Server) getPlanID(c *gin.Context) error {
	amount, err := strconv.ParseInt(c.Query("amount"), 10, 64)
	if err != nil {
		return errors.New(errors.KindInvalidAmount, "Invalid amount")
	}
	plan, err := s.payments.Plans().ResolvePlan(c.Request.Context(), amount)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"planId":   plan.PlanID,
		"amount":   plan.Amount,
		"isCustom": plan.IsCustom,
	})
	return nil
}

// POST verify-payment
func (s *Server) verifyPayment(c *gin.Context) error {
	var req verifyPaymentRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	result, err := s.payments.Complete(c.Request.Context(), types.Callback{
		DonationID:     req.DonationID,
		PaymentID:      req.PaymentID,
		OrderID:        req.OrderID,
		SubscriptionID: req.SubscriptionID,
		Signature:      req.Signature,
	})
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, result)
	return nil
}
