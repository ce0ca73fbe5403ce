package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
)

// validateQuery rejects queries the plan or the wire format cannot serve.
func (c *Client) validateQuery(q eod.Query) error {
	if len(q.Symbols) == 0 {
		return validationError("symbols", "at least one symbol is required")
	}
	for i, s := range q.Symbols {
		switch {
		case strings.TrimSpace(s) == "":
			return validationError(fmt.Sprintf("symbols[%d]", i), "must not be empty")
		case strings.Contains(s, ","):
			// Symbols travel comma-joined in one parameter.
			return validationError(fmt.Sprintf("symbols[%d]", i), "must not contain a comma")
		}
	}
	if q.From.IsZero() {
		return validationError("from", "a start date is required")
	}
	if q.To.IsZero() {
		return validationError("to", "an end date is required")
	}
	if q.From.After(q.To) {
		return validationError("from", fmt.Sprintf("%s is after %s", q.From, q.To))
	}
	if c.limits.HistoryBounded() && q.SpanDays() > c.limits.MaxHistoryDays {
		return validationError("from", fmt.Sprintf("range spans %d days, the %s plan allows %d",
			q.SpanDays(), c.config.Plan, c.limits.MaxHistoryDays))
	}
	return nil
}

// validatePageRequest guards page requests built by hand rather than by a
// Pager.
func (c *Client) validatePageRequest(req eod.PageRequest) error {
	if err := c.validateQuery(req.Query); err != nil {
		return err
	}
	if req.Offset < 0 {
		return validationError("offset", fmt.Sprintf("must not be negative, got %d", req.Offset))
	}
	if req.Limit < 1 || req.Limit > c.limits.MaxRowsPerPage {
		return validationError("limit", fmt.Sprintf("must be between 1 and %d, got %d",
			c.limits.MaxRowsPerPage, req.Limit))
	}
	return nil
}

// eodParams encodes the wire parameters shared by the range and
// single-date endpoints. The single-date endpoint carries its date in the
// path, so withDates is false there.
func (c *Client) eodParams(req eod.PageRequest, withDates bool) url.Values {
	params := url.Values{}
	params.Set("access_key", c.config.AccessKey)
	params.Set("symbols", strings.Join(req.Query.Symbols, ","))
	if withDates {
		params.Set("date_from", req.Query.From.String())
		params.Set("date_to", req.Query.To.String())
	}
	params.Set("limit", strconv.Itoa(req.Limit))
	params.Set("offset", strconv.Itoa(req.Offset))
	if req.Query.Exchange != "" {
		params.Set("exchange", req.Query.Exchange)
	}
	return params
}

// FetchPage fetches one page from the range endpoint. It implements
// pagination.PageFetcher; most callers want FetchRange or Pages instead.
func (c *Client) FetchPage(ctx context.Context, req eod.PageRequest) (*eod.PageResult, error) {
	if err := c.validatePageRequest(req); err != nil {
		return nil, err
	}
	return c.fetchPage(ctx, c.baseURL+"/v1/eod", c.eodParams(req, true), "eod")
}

// dayFetcher adapts the single-date endpoint to the pagination.PageFetcher
// shape so FetchDay can reuse the same page walk.
type dayFetcher struct {
	c   *Client
	day eod.Date
}

func (f dayFetcher) FetchPage(ctx context.Context, req eod.PageRequest) (*eod.PageResult, error) {
	if err := f.c.validatePageRequest(req); err != nil {
		return nil, err
	}
	endpoint := f.c.baseURL + "/v1/eod/" + f.day.String()
	return f.c.fetchPage(ctx, endpoint, f.c.eodParams(req, false), "eod_date")
}

// fetchPage is the one road to the wire: acquire a rate-limit slot, issue
// the GET, decode whatever comes back.
func (c *Client) fetchPage(ctx context.Context, endpoint string, params url.Values, metricEndpoint string) (*eod.PageResult, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	if err := c.limiter.Acquire(ctx); err != nil {
		return nil, networkError("waiting for a request slot", err)
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(metricEndpoint).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, networkError("building request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = scrubURLError(err)
		requestsTotal.WithLabelValues(metricEndpoint, "network_error").Inc()
		errorsTotal.WithLabelValues(string(KindNetwork)).Inc()
		c.logger.Warn().Err(err).Str("endpoint", metricEndpoint).Msg("Request failed")
		return nil, networkError("request failed", err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(metricEndpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(KindNetwork)).Inc()
		return nil, networkError("reading response body", err)
	}

	res, err := parseResponse(resp.StatusCode, body)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			errorsTotal.WithLabelValues(string(e.Kind)).Inc()
			c.logger.Warn().
				Str("endpoint", metricEndpoint).
				Int("status", resp.StatusCode).
				Str("kind", string(e.Kind)).
				Str("code", e.Code).
				Msg("Provider rejected request")
		}
		return nil, err
	}

	recordsTotal.Add(float64(res.Count))
	c.logger.Debug().
		Str("endpoint", metricEndpoint).
		Int("offset", res.Offset).
		Int("count", res.Count).
		Int("total", res.Total).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return res, nil
}

// scrubURLError strips the query string out of transport errors so the
// access key never reaches logs or error text.
func scrubURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if i := strings.IndexByte(ue.URL, '?'); i >= 0 {
			ue.URL = ue.URL[:i]
		}
	}
	return err
}
