package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
)

// envelopeDTO mirrors the provider's top-level response body. Pointer
// fields tell a missing member apart from a zero one.
type envelopeDTO struct {
	Pagination *paginationDTO `json:"pagination"`
	Data       *[]recordDTO   `json:"data"`
	Error      *errorDTO      `json:"error"`
}

type paginationDTO struct {
	Limit  *int `json:"limit"`
	Offset *int `json:"offset"`
	Count  *int `json:"count"`
	Total  *int `json:"total"`
}

// recordDTO is one row as transmitted. Volume arrives as a JSON number
// with a fractional part. SplitFactor is a pointer because an absent
// factor means 1, not 0.
type recordDTO struct {
	Symbol      string   `json:"symbol"`
	Exchange    string   `json:"exchange"`
	Date        eod.Date `json:"date"`
	Open        *float64 `json:"open"`
	High        *float64 `json:"high"`
	Low         *float64 `json:"low"`
	Close       *float64 `json:"close"`
	Volume      *float64 `json:"volume"`
	SplitFactor *float64 `json:"split_factor"`
	Dividend    float64  `json:"dividend"`
}

type errorDTO struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Context json.RawMessage `json:"context"`
}

// parseResponse turns one HTTP exchange into a page or a taxonomy error.
func parseResponse(status int, body []byte) (*eod.PageResult, error) {
	var env envelopeDTO
	if err := json.Unmarshal(body, &env); err != nil {
		// On an error status an undecodable body is common (proxies
		// answer HTML); the status is the real signal there.
		if status >= 400 {
			return nil, &Error{
				Kind:       kindForStatus(status),
				StatusCode: status,
				Message:    http.StatusText(status),
			}
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return nil, &Error{
				Kind:       KindValidation,
				StatusCode: status,
				Field:      typeErr.Field,
				Message:    "unexpected type in response",
				Err:        err,
			}
		}
		return nil, &Error{
			Kind:       KindValidation,
			StatusCode: status,
			Message:    "malformed response body",
			Err:        err,
		}
	}

	// An error object wins over the status: the provider has been seen
	// attaching one to 200s.
	if env.Error != nil {
		return nil, mapProviderError(status, env.Error)
	}
	if status != http.StatusOK {
		return nil, &Error{
			Kind:       kindForStatus(status),
			StatusCode: status,
			Message:    http.StatusText(status),
		}
	}

	return envelopeToPage(env)
}

// envelopeToPage validates the envelope and converts its rows.
func envelopeToPage(env envelopeDTO) (*eod.PageResult, error) {
	p := env.Pagination
	switch {
	case p == nil:
		return nil, validationError("pagination", "missing from response")
	case p.Limit == nil:
		return nil, validationError("pagination.limit", "missing from response")
	case p.Offset == nil:
		return nil, validationError("pagination.offset", "missing from response")
	case p.Count == nil:
		return nil, validationError("pagination.count", "missing from response")
	case p.Total == nil:
		return nil, validationError("pagination.total", "missing from response")
	case env.Data == nil:
		return nil, validationError("data", "missing from response")
	}

	data := *env.Data
	if *p.Count != len(data) {
		return nil, validationError("pagination.count",
			fmt.Sprintf("claims %d rows, body has %d", *p.Count, len(data)))
	}

	records := make([]eod.Record, 0, len(data))
	for i, row := range data {
		rec, err := row.toRecord(i)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return &eod.PageResult{
		Records: records,
		Limit:   *p.Limit,
		Offset:  *p.Offset,
		Count:   *p.Count,
		Total:   *p.Total,
	}, nil
}

// toRecord converts one row, rejecting rows with required fields missing.
// i is the row's index within the page, used to name the field.
func (r recordDTO) toRecord(i int) (eod.Record, error) {
	required := []struct {
		name string
		val  *float64
	}{
		{"open", r.Open},
		{"high", r.High},
		{"low", r.Low},
		{"close", r.Close},
		{"volume", r.Volume},
	}
	for _, f := range required {
		if f.val == nil {
			return eod.Record{}, validationError(
				fmt.Sprintf("data[%d].%s", i, f.name), "missing from response")
		}
	}
	if r.Symbol == "" {
		return eod.Record{}, validationError(
			fmt.Sprintf("data[%d].symbol", i), "missing from response")
	}
	if r.Date.IsZero() {
		return eod.Record{}, validationError(
			fmt.Sprintf("data[%d].date", i), "missing from response")
	}

	splitFactor := 1.0
	if r.SplitFactor != nil {
		splitFactor = *r.SplitFactor
	}

	return eod.Record{
		Symbol:      r.Symbol,
		Exchange:    r.Exchange,
		Date:        r.Date,
		Open:        *r.Open,
		High:        *r.High,
		Low:         *r.Low,
		Close:       *r.Close,
		Volume:      int64(*r.Volume),
		SplitFactor: splitFactor,
		Dividend:    r.Dividend,
	}, nil
}

// mapProviderError classifies an error payload by status and code. The
// code wins when the two disagree.
func mapProviderError(status int, e *errorDTO) *Error {
	kind := kindForStatus(status)
	switch e.Code {
	case CodeInvalidAccessKey, CodeMissingAccessKey, CodeInactiveUser,
		CodeHTTPSAccessRestricted, CodeFunctionAccessRestricted:
		kind = KindAuth
	case CodeUsageLimitReached, CodeRateLimitReached:
		kind = KindRateLimit
	case CodeInvalidAPIFunction, CodeNotFound, CodeInternalError:
		kind = KindResponse
	}
	return &Error{Kind: kind, StatusCode: status, Code: e.Code, Message: e.Message}
}

// kindForStatus classifies a bare HTTP status with no error payload.
func kindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindResponse
	}
}
