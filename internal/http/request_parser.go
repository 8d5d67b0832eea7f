// Package http provides the JSON API server and its handlers.
//
// This file implements request decoding: JSON bodies validated with struct
// tags, and the query parameters of the dashboard and export endpoints.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = errors.New("malformed request body")
	errInvalidDate   = errors.New("invalid date")
)

type signupRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// transactionRequest accepts the note under "note" or the older
// "description" key.
type transactionRequest struct {
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Category    string           `json:"category" validate:"required"`
	Type        string           `json:"type" validate:"required"`
	Date        string           `json:"date"`
	Note        string           `json:"note"`
	Description string           `json:"description"`
}

// Fields converts the request into service input. A present but
// unparseable date is an error; an absent one stays zero.
func (req transactionRequest) Fields() (core.TransactionFields, error) {
	f := core.TransactionFields{
		Type:     core.TxType(strings.TrimSpace(req.Type)),
		Category: req.Category,
		Note:     req.Note,
	}
	if req.Amount != nil {
		f.Amount = *req.Amount
	}
	if f.Note == "" {
		f.Note = req.Description
	}
	if d := strings.TrimSpace(req.Date); d != "" {
		f.Date = core.ParseDate(d)
		if f.Date.IsZero() {
			return core.TransactionFields{}, fmt.Errorf("%w: %q", errInvalidDate, d)
		}
	}
	return f, nil
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// Syntax errors wrap errMalformedBody; tag failures are
// validator.ValidationErrors.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return v.Struct(dst)
}

// ParseDashboardParams reads dateMode, startDate, endDate, category and
// year. A missing or malformed year yields 0, meaning the current year.
func ParseDashboardParams(query url.Values) (aggregate.Params, int) {
	p := aggregate.Params{
		DateMode:  aggregate.DateMode(strings.TrimSpace(query.Get("dateMode"))),
		StartDate: strings.TrimSpace(query.Get("startDate")),
		EndDate:   strings.TrimSpace(query.Get("endDate")),
		Category:  query.Get("category"),
	}
	if p.DateMode == "" {
		p.DateMode = aggregate.DateModeAll
	}
	if p.Category == "" {
		p.Category = aggregate.AllCategories
	}

	year := 0
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			year = y
		}
	}
	return p, year
}

type exportFormat string

const (
	formatCSV  exportFormat = "csv"
	formatXLSX exportFormat = "xlsx"
)

type ExportParams struct {
	StartDate string
	EndDate   string
	Format    exportFormat
}

// ParseExportParams reads startDate, endDate and format (csv by default).
func ParseExportParams(query url.Values) (ExportParams, error) {
	p := ExportParams{
		StartDate: strings.TrimSpace(query.Get("startDate")),
		EndDate:   strings.TrimSpace(query.Get("endDate")),
		Format:    exportFormat(strings.ToLower(strings.TrimSpace(query.Get("format")))),
	}
	switch p.Format {
	case "":
		p.Format = formatCSV
	case formatCSV, formatXLSX:
	default:
		return ExportParams{}, fmt.Errorf("unsupported export format %q", p.Format)
	}
	return p, nil
}
