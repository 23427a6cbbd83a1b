package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smokyabdulrahman/masjid-times/internal/service"
	"github.com/smokyabdulrahman/masjid-times/internal/settings"
)

// LocationRequest is the body of PUT /v1/location.
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Elevation float64  `json:"elevation"`
	City      string   `json:"city"`
	Country   string   `json:"country"`
	Timezone  string   `json:"timezone"`
}

// SettingsResponse reports the settings after an update.
type SettingsResponse struct {
	Generation  uint64 `json:"generation"`
	Location    string `json:"location"`
	Timezone    string `json:"timezone"`
	Method      string `json:"method"`
	Fingerprint string `json:"fingerprint"`
}

func settingsResponse(snap settings.Snapshot) SettingsResponse {
	return SettingsResponse{
		Generation:  snap.Generation,
		Location:    snap.Location.Label(),
		Timezone:    snap.Location.Timezone,
		Method:      snap.Calculation.Method,
		Fingerprint: snap.Fingerprint(),
	}
}

// GET /healthz
func (c *controller) health(ctx *gin.Context) (any, *Error) {
	return gin.H{"status": "ok", "generation": c.svc.Settings().Generation}, nil
}

// GET /v1/prayer-times/:date
func (c *controller) getPrayerTimes(ctx *gin.Context) (any, *Error) {
	date, apiErr := c.parseDate(ctx.Param("date"))
	if apiErr != nil {
		return nil, apiErr
	}
	rec, err := c.svc.GetPrayerTimes(ctx.Request.Context(), date)
	if err != nil {
		return nil, serviceError(err)
	}
	return rec, nil
}

// GET /v1/prayer-times?from=YYYY-MM-DD&to=YYYY-MM-DD
func (c *controller) listPrayerTimes(ctx *gin.Context) (any, *Error) {
	from, apiErr := c.parseDate(ctx.DefaultQuery("from", "today"))
	if apiErr != nil {
		return nil, apiErr
	}
	to := from.AddDate(0, 0, 6)
	if raw := ctx.Query("to"); raw != "" {
		if to, apiErr = c.parseDate(raw); apiErr != nil {
			return nil, apiErr
		}
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > c.maxDays {
		return nil, &Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("range of %d days exceeds the limit of %d", days, c.maxDays)}
	}

	recs, err := c.svc.GetPrayerTimesRange(ctx.Request.Context(), from, to)
	if err != nil {
		return nil, serviceError(err)
	}
	return recs, nil
}

// GET /v1/next
func (c *controller) next(ctx *gin.Context) (any, *Error) {
	sel, err := c.svc.NextPrayer(ctx.Request.Context(), c.svc.Clock().Now())
	if err != nil {
		return nil, serviceError(err)
	}
	return sel.View(), nil
}

// PUT /v1/location
func (c *controller) updateLocation(ctx *gin.Context) (any, *Error) {
	var req LocationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	loc := settings.Location{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Elevation: req.Elevation,
		City:      req.City,
		Country:   req.Country,
		Timezone:  req.Timezone,
	}
	if err := loc.Validate(); err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	snap, err := c.svc.UpdateLocation(ctx.Request.Context(), loc)
	if err != nil {
		return nil, serviceError(err)
	}
	return settingsResponse(snap), nil
}

// PUT /v1/calculation takes settings keys as a flat object, e.g.
// {"method": "MWL", "adjust.maghrib": "2"}.
func (c *controller) updateCalculation(ctx *gin.Context) (any, *Error) {
	var req map[string]string
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if len(req) == 0 {
		return nil, &Error{Code: http.StatusBadRequest, Message: "no settings given"}
	}

	// "method" goes first so explicit angles override the method's.
	keys := make([]string, 0, len(req))
	for k := range req {
		if settings.LocationKeys[k] {
			return nil, &Error{Code: http.StatusBadRequest, Message: fmt.Sprintf("%q is a location key; use PUT /v1/location", k)}
		}
		if k == "method" {
			keys = append([]string{k}, keys...)
		} else {
			keys = append(keys, k)
		}
	}
	apply := func(st *settings.Settings) error {
		for _, k := range keys {
			if err := st.Set(k, req[k]); err != nil {
				return err
			}
		}
		return nil
	}

	trial := c.svc.Settings().Settings
	if err := apply(&trial); err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err := trial.Validate(); err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Message: err.Error()}
	}

	snap, err := c.svc.UpdateSettings(ctx.Request.Context(), apply)
	if err != nil {
		return nil, serviceError(err)
	}
	return settingsResponse(snap), nil
}

// POST /v1/preload?months=N
func (c *controller) preload(ctx *gin.Context) (any, *Error) {
	months, err := strconv.Atoi(ctx.DefaultQuery("months", "2"))
	if err != nil {
		return nil, &Error{Code: http.StatusBadRequest, Message: "months must be an integer"}
	}
	report, err := c.svc.PreloadPrayerTimes(ctx.Request.Context(), months)
	if err != nil {
		return nil, serviceError(err)
	}
	return report, nil
}

// GET /v1/sync/status
func (c *controller) syncStatus(ctx *gin.Context) (any, *Error) {
	if c.status == nil {
		return nil, &Error{Code: http.StatusNotFound, Message: "background sync is not running"}
	}
	return c.status.Status(), nil
}

// parseDate accepts "today", "tomorrow" or YYYY-MM-DD.
func (c *controller) parseDate(raw string) (time.Time, *Error) {
	var (
		d   time.Time
		err error
	)
	switch strings.ToLower(raw) {
	case "today":
		d, err = c.svc.Today()
	case "tomorrow":
		if d, err = c.svc.Today(); err == nil {
			d = d.AddDate(0, 0, 1)
		}
	default:
		if d, err = c.svc.ParseDate(raw); err != nil {
			return time.Time{}, &Error{Code: http.StatusBadRequest, Message: err.Error()}
		}
	}
	if err != nil {
		return time.Time{}, &Error{Code: http.StatusInternalServerError, Message: err.Error()}
	}
	return d, nil
}

func serviceError(err error) *Error {
	switch {
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidMonths):
		return &Error{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, service.ErrCalculationUnavailable):
		return &Error{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	default:
		return &Error{Code: http.StatusInternalServerError, Message: err.Error()}
	}
}
