package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/flaboy/aira-donate/pkg/export"
	"github.com/flaboy/aira-donate/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createDonationRequest struct {
	DonorName      string                 `json:"donorName"`
	DonorEmail     string                 `json:"donorEmail"`
	DonorPhone     string                 `json:"donorPhone"`
	Address        string                 `json:"address"`
	PanCard        string                 `json:"panCard"`
	Amount         decimal.Decimal        `json:"amount"`
	Currency       string                 `json:"currency"`
	PaymentType    string                 `json:"paymentType"`
	Message        string                 `json:"message"`
	ReceiveUpdates *bool                  `json:"receiveUpdates"`
	Notes          map[string]interface{} `json:"notes"`

	// accepted only to be rejected: completion goes through verify-payment
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
}

type donationView struct {
	ID string `json:"id"`
	*models.Donation
}

func (s *Server) view(d *models.Donation) donationView {
	return donationView{ID: s.payments.PublicID(d), Donation: d}
}

// POST donations
func (s *Server) createDonation(c *gin.Context) error {
	var req createDonationRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	d := &models.Donation{
		DonorName:      req.DonorName,
		DonorEmail:     req.DonorEmail,
		DonorPhone:     req.DonorPhone,
		Address:        req.Address,
		PanCard:        req.PanCard,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentType:    models.PaymentType(req.PaymentType),
		Message:        req.Message,
		ReceiveUpdates: req.ReceiveUpdates == nil || *req.ReceiveUpdates,
		Status:         models.DonationStatus(req.Status),
	}
	if req.PaymentID != "" {
		d.PaymentID = &req.PaymentID
	}
	if len(req.Notes) > 0 {
		d.Notes = req.Notes
	}

	if err := s.donations.Create(c.Request.Context(), d); err != nil {
		return err
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "donation": s.view(d)})
	return nil
}

// GET donations?page=&pageSize=
func (s *Server) listDonations(c *gin.Context) error {
	page := cast.ToInt(c.Query("page"))
	pageSize := cast.ToInt(c.Query("pageSize"))

	result, err := s.donations.List(c.Request.Context(), page, pageSize)
	if err != nil {
		return err
	}
	items := make([]donationView, len(result.Items))
	for i := range result.Items {
		items[i] = s.view(&result.Items[i])
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"items":      items,
		"totalCount": result.TotalCount,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalPages": result.TotalPages,
	})
	return nil
}

// GET donations/:id
func (s *Server) getDonation(c *gin.Context) error {
	id, err := s.payments.IDs().DecodeDonationID(c.Param("id"))
	if err != nil {
		return errors.ErrNotFound
	}
	d, err := s.donations.Get(c.Request.Context(), id)
	if err != nil {
		return err
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "donation": s.view(d)})
	return nil
}

// GET export/donations
func (s *Server) exportDonations(c *gin.Context) error {
	var buf bytes.Buffer
	_, err := export.WriteDonationsXLSX(c.Request.Context(), s.donations, s.payments.IDs().EncodeDonationID, &buf)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("donations-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	return nil
}
