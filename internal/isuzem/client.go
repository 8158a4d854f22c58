// Package isuzem talks to the MobileAppointmentApi used by the hospital's
// appointment app: one read endpoint listing visits and one write endpoint
// claiming a visit time.
package isuzem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
	"github.com/Pairs34/CerrahPasaRandevu/internal/logger"
)

type Config struct {
	BaseURL        string
	FoundationCode string
	LocationID     string

	// Timeout of zero leaves the transport defaults in place.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client never returns errors to its callers: every failure is logged and
// degrades to "no slots" or "not booked".
type Client struct {
	hc         *http.Client
	base       string
	foundation string
	location   string
	log        *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		hc:         hc,
		base:       strings.TrimRight(cfg.BaseURL, "/"),
		foundation: cfg.FoundationCode,
		location:   cfg.LocationID,
		log:        logger.OrNop(log).Named("isuzem"),
	}
}

type visitDay struct {
	Items *[]*visitItem `json:"items"`
}

type visitItem struct {
	Verilebilir truthy               `json:"verilebilir"`
	Saat        appointment.TimeSlot `json:"saat"`
}

// FetchAvailableTimes lists the bookable slots for the configured location in
// server order: day by day, item by item.
func (c *Client) FetchAvailableTimes(ctx context.Context, creds appointment.Credentials) []appointment.TimeSlot {
	if creds.Token == "" {
		c.log.Error("token not found, skipping availability query")
		return nil
	}

	url := fmt.Sprintf("%s/GetVisits/%s/%s", c.base, c.foundation, c.location)
	res, body, err := c.do(ctx, http.MethodGet, url, creds.Token, nil)
	if err != nil {
		c.log.Error("availability query failed", zap.Error(err))
		return nil
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Error("availability query rejected",
			zap.Int("status", res.StatusCode),
			zap.String("status_text", res.Status),
			zap.ByteString("body", body))
		return nil
	}

	contentType := res.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		c.log.Error("unexpected availability content type", zap.String("content_type", contentType))
		return nil
	}

	c.log.Debug("availability payload", zap.ByteString("body", body))

	var days []*visitDay
	if err := json.Unmarshal(body, &days); err != nil {
		c.log.Error("parse availability", zap.Error(err))
		return nil
	}

	// One malformed day spoils the whole response.
	var out []appointment.TimeSlot
	for i, d := range days {
		if d == nil || d.Items == nil {
			c.log.Error("parse availability", zap.Int("day", i), zap.String("reason", "day without items"))
			return nil
		}
		for _, it := range *d.Items {
			if it == nil {
				c.log.Error("parse availability", zap.Int("day", i), zap.String("reason", "null item"))
				return nil
			}
			if it.Verilebilir {
				out = append(out, it.Saat)
			}
		}
	}
	return out
}

type reservationRequest struct {
	FoundationCode         string              `json:"foundationCode"`
	ReservationResultModel reservationModel    `json:"reservation_result_model"`
	User                   appointment.Profile `json:"user"`
}

type reservationModel struct {
	AppointmentTime appointment.TimeSlot `json:"appointment_time"`
}

type reservationResponse struct {
	IsAppointmentSetted truthy `json:"is_appointment_setted"`
}

// MakeAppointment tries to claim slot and reports whether the server
// confirmed it. Taken slots, server errors and network failures all read as
// false.
func (c *Client) MakeAppointment(ctx context.Context, slot appointment.TimeSlot, creds appointment.Credentials) bool {
	if err := creds.Validate(); err != nil {
		c.log.Error("credentials unusable, skipping reservation", zap.Error(err))
		return false
	}

	b, err := json.Marshal(reservationRequest{
		FoundationCode:         c.foundation,
		ReservationResultModel: reservationModel{AppointmentTime: slot},
		User:                   creds.Profile(),
	})
	if err != nil {
		c.log.Error("encode reservation", zap.Error(err))
		return false
	}

	res, body, err := c.do(ctx, http.MethodPost, c.base+"/GetAppointment", creds.Token, b)
	if err != nil {
		c.log.Error("reservation failed", zap.Stringer("slot", slot), zap.Error(err))
		return false
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.log.Error("reservation rejected",
			zap.Stringer("slot", slot),
			zap.Int("status", res.StatusCode),
			zap.String("status_text", res.Status))
		return false
	}

	var rr reservationResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		c.log.Error("parse reservation result", zap.Stringer("slot", slot), zap.Error(err))
		return false
	}
	c.log.Info("reservation result",
		zap.Stringer("slot", slot),
		zap.Bool("booked", bool(rr.IsAppointmentSetted)),
		zap.ByteString("body", body))
	return bool(rr.IsAppointmentSetted)
}

func (c *Client) do(ctx context.Context, method, url, token string, body []byte) (*http.Response, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodGet {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, fmt.Errorf("read body: %w", err)
	}
	return res, b, nil
}
