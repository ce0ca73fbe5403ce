// Package testutil provides a configurable in-process stand-in for the
// market data provider, used by unit and integration tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
)

// CapturedRequest records one request the mock served.
type CapturedRequest struct {
	Path   string
	Params url.Values
	Header http.Header
	At     time.Time
}

// failSpec is an injected provider error.
type failSpec struct {
	status  int
	code    string
	message string
}

// MockProvider serves the /v1/eod and /v1/eod/{date} endpoints from an
// in-memory dataset, slicing pages by the limit and offset parameters the
// way the real provider does. Failures can be injected per request.
type MockProvider struct {
	server *httptest.Server

	mu       sync.RWMutex
	dataset  []eod.Record
	total    int // overrides the reported total when > 0
	failures map[int]failSpec
	handlers map[string]http.HandlerFunc
	key      string
	requests []CapturedRequest
}

// NewMockProvider starts an empty mock. Callers own its lifetime and must
// Close it.
func NewMockProvider() *MockProvider {
	m := &MockProvider{
		failures: make(map[int]failSpec),
		handlers: make(map[string]http.HandlerFunc),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	return m
}

// URL returns the mock server's base URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts the mock down.
func (m *MockProvider) Close() {
	m.server.Close()
}

// SetDataset replaces the rows the mock serves. Rows are returned in the
// given order; the mock does not sort.
func (m *MockProvider) SetDataset(rows []eod.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dataset = rows
}

// SetReportedTotal makes the pagination envelope advertise total rows
// regardless of the dataset size, for exercising drifting totals.
func (m *MockProvider) SetReportedTotal(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

// RequireKey makes the mock reject requests whose access_key differs from
// key, with the provider's 401 invalid_access_key payload.
func (m *MockProvider) RequireKey(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.key = key
}

// FailRequest injects a provider error for the nth data request, 1-based.
func (m *MockProvider) FailRequest(n, status int, code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = failSpec{status: status, code: code, message: message}
}

// CloseRequest drops the connection serving the nth request, 1-based,
// without writing a response. The caller sees a transport error.
func (m *MockProvider) CloseRequest(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[n] = failSpec{status: -1}
}

// SetHandler overrides the handler for an exact path, bypassing the
// dataset logic. Captured requests still include it.
func (m *MockProvider) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Requests returns a copy of everything served so far.
func (m *MockProvider) Requests() []CapturedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CapturedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests served so far.
func (m *MockProvider) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Offsets returns the offset parameter of every request, in arrival order.
func (m *MockProvider) Offsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offsets := make([]int, 0, len(m.requests))
	for _, req := range m.requests {
		n, _ := strconv.Atoi(req.Params.Get("offset"))
		offsets = append(offsets, n)
	}
	return offsets
}

func (m *MockProvider) serve(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, CapturedRequest{
		Path:   r.URL.Path,
		Params: r.URL.Query(),
		Header: r.Header.Clone(),
		At:     time.Now(),
	})
	n := len(m.requests)
	fail, failNow := m.failures[n]
	handler := m.handlers[r.URL.Path]
	key := m.key
	m.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}
	if failNow {
		if fail.status == -1 {
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					conn.Close()
					return
				}
			}
			panic("mock: response writer does not support hijacking")
		}
		writeError(w, fail.status, fail.code, fail.message)
		return
	}
	if key != "" && r.URL.Query().Get("access_key") != key {
		writeError(w, http.StatusUnauthorized, "invalid_access_key",
			"The access key supplied is invalid.")
		return
	}

	switch {
	case r.URL.Path == "/v1/eod":
		m.serveEOD(w, r, "")
	case strings.HasPrefix(r.URL.Path, "/v1/eod/"):
		m.serveEOD(w, r, strings.TrimPrefix(r.URL.Path, "/v1/eod/"))
	default:
		writeError(w, http.StatusNotFound, "invalid_api_function",
			"This API Function does not exist.")
	}
}

// serveEOD filters the dataset by the request parameters and emits one
// page. day restricts rows to a single date when non-empty.
func (m *MockProvider) serveEOD(w http.ResponseWriter, r *http.Request, day string) {
	params := r.URL.Query()

	limit := 100
	if v := params.Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	offset := 0
	if v := params.Get("offset"); v != "" {
		offset, _ = strconv.Atoi(v)
	}

	var symbols map[string]bool
	if v := params.Get("symbols"); v != "" {
		symbols = make(map[string]bool)
		for _, s := range strings.Split(v, ",") {
			symbols[s] = true
		}
	}

	m.mu.RLock()
	matched := make([]eod.Record, 0, len(m.dataset))
	for _, rec := range m.dataset {
		if symbols != nil && !symbols[rec.Symbol] {
			continue
		}
		if day != "" && rec.Date.String() != day {
			continue
		}
		if day == "" {
			if from := params.Get("date_from"); from != "" && rec.Date.String() < from {
				continue
			}
			if to := params.Get("date_to"); to != "" && rec.Date.String() > to {
				continue
			}
		}
		if ex := params.Get("exchange"); ex != "" && rec.Exchange != ex {
			continue
		}
		matched = append(matched, rec)
	}
	total := len(matched)
	if m.total > 0 {
		total = m.total
	}
	m.mu.RUnlock()

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := matched[offset:end]

	rows := make([]map[string]any, 0, len(page))
	for _, rec := range page {
		rows = append(rows, wireRow(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"pagination": map[string]int{
			"limit":  limit,
			"offset": offset,
			"count":  len(page),
			"total":  total,
		},
		"data": rows,
	})
}

// wireRow serializes a record with the provider's quirks: timestamp date
// strings and fractional volumes.
func wireRow(rec eod.Record) map[string]any {
	return map[string]any{
		"open":         rec.Open,
		"high":         rec.High,
		"low":          rec.Low,
		"close":        rec.Close,
		"volume":       float64(rec.Volume),
		"split_factor": rec.SplitFactor,
		"dividend":     rec.Dividend,
		"symbol":       rec.Symbol,
		"exchange":     rec.Exchange,
		"date":         rec.Date.Time().Format("2006-01-02T15:04:05-0700"),
	}
}

// writeError emits the provider's error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// GenRecords builds n consecutive daily rows for one symbol starting at
// start, with deterministic prices.
func GenRecords(symbol, exchange string, start eod.Date, n int) []eod.Record {
	rows := make([]eod.Record, n)
	for i := range rows {
		base := 100 + float64(i)
		rows[i] = eod.Record{
			Symbol:      symbol,
			Exchange:    exchange,
			Date:        start.AddDays(i),
			Open:        base,
			High:        base + 2,
			Low:         base - 1,
			Close:       base + 1,
			Volume:      int64(10000 + i),
			SplitFactor: 1,
		}
	}
	return rows
}
