package client

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/markovejnovic/go-marketstack/pkg/eod"
)

const goodPage = `{
	"pagination": {"limit": 100, "offset": 0, "count": 2, "total": 2},
	"data": [
		{
			"open": 129.8, "high": 133.04, "low": 129.47, "close": 133.0,
			"volume": 106686703.0, "split_factor": 1.0, "dividend": 0.22,
			"symbol": "AAPL", "exchange": "XNAS",
			"date": "2021-04-09T00:00:00+0000"
		},
		{
			"open": 255.8, "high": 258.1, "low": 255.2, "close": 257.3,
			"volume": 23456789.0,
			"symbol": "MSFT", "exchange": "XNAS",
			"date": "2021-04-09T00:00:00+0000"
		}
	]
}`

func TestParseResponseGoodPage(t *testing.T) {
	res, err := parseResponse(http.StatusOK, []byte(goodPage))
	if err != nil {
		t.Fatalf("parseResponse failed: %v", err)
	}

	if res.Limit != 100 || res.Offset != 0 || res.Count != 2 || res.Total != 2 {
		t.Errorf("pagination = %+v, want limit 100 offset 0 count 2 total 2", res)
	}
	if len(res.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(res.Records))
	}

	apple := res.Records[0]
	if apple.Symbol != "AAPL" || apple.Exchange != "XNAS" {
		t.Errorf("record 0 identity = %s/%s, want AAPL/XNAS", apple.Symbol, apple.Exchange)
	}
	if !apple.Date.Equal(eod.NewDate(2021, time.April, 9)) {
		t.Errorf("record 0 date = %v, want 2021-04-09", apple.Date)
	}
	if apple.Close != 133.0 || apple.Dividend != 0.22 || apple.SplitFactor != 1.0 {
		t.Errorf("record 0 values wrong: %+v", apple)
	}
	if apple.Volume != 106686703 {
		t.Errorf("record 0 volume = %d, want 106686703", apple.Volume)
	}

	// split_factor was absent on the second row; absence means 1.
	if res.Records[1].SplitFactor != 1.0 {
		t.Errorf("record 1 split factor = %v, want 1", res.Records[1].SplitFactor)
	}
	if res.Records[1].Dividend != 0 {
		t.Errorf("record 1 dividend = %v, want 0", res.Records[1].Dividend)
	}
}

func TestParseResponseEmptyPage(t *testing.T) {
	body := `{"pagination": {"limit": 100, "offset": 0, "count": 0, "total": 0}, "data": []}`
	res, err := parseResponse(http.StatusOK, []byte(body))
	if err != nil {
		t.Fatalf("parseResponse failed: %v", err)
	}
	if res.Count != 0 || len(res.Records) != 0 {
		t.Errorf("empty page decoded as %+v", res)
	}
}

func TestParseResponseProviderErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		code       string
		wantKind   Kind
		wantStatus int
	}{
		{"invalid access key", 401, CodeInvalidAccessKey, KindAuth, 401},
		{"missing access key", 401, CodeMissingAccessKey, KindAuth, 401},
		{"inactive user", 401, CodeInactiveUser, KindAuth, 401},
		{"https restricted", 403, CodeHTTPSAccessRestricted, KindAuth, 403},
		{"function restricted", 403, CodeFunctionAccessRestricted, KindAuth, 403},
		{"invalid function", 404, CodeInvalidAPIFunction, KindResponse, 404},
		{"not found", 404, CodeNotFound, KindResponse, 404},
		{"usage limit", 429, CodeUsageLimitReached, KindRateLimit, 429},
		{"rate limit", 429, CodeRateLimitReached, KindRateLimit, 429},
		{"internal error", 500, CodeInternalError, KindResponse, 500},
		{"unknown code unknown status", 418, "teapot_error", KindResponse, 418},
		{"auth code on odd status", 200, CodeInvalidAccessKey, KindAuth, 200},
		{"rate limit code on odd status", 200, CodeRateLimitReached, KindRateLimit, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"error": {"code": "` + tt.code + `", "message": "detail"}}`
			_, err := parseResponse(tt.status, []byte(body))
			if err == nil {
				t.Fatal("parseResponse succeeded, want error")
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", e.Kind, tt.wantKind)
			}
			if e.Code != tt.code {
				t.Errorf("Code = %q, want %q", e.Code, tt.code)
			}
			if e.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", e.StatusCode, tt.wantStatus)
			}
			if e.Message != "detail" {
				t.Errorf("Message = %q, want provider message preserved", e.Message)
			}
		})
	}
}

func TestParseResponseBareStatuses(t *testing.T) {
	// No decodable body; classification falls back to the status alone.
	tests := []struct {
		status   int
		wantKind Kind
	}{
		{401, KindAuth},
		{403, KindAuth},
		{429, KindRateLimit},
		{404, KindResponse},
		{500, KindResponse},
		{502, KindResponse},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			_, err := parseResponse(tt.status, []byte("<html>gateway</html>"))
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if e.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", e.Kind, tt.wantKind)
			}
			if e.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", e.StatusCode, tt.status)
			}
		})
	}
}

func TestParseResponseMalformed(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "not json",
			body:      `this is not json`,
			wantField: "",
		},
		{
			name:      "wrong typed pagination field",
			body:      `{"pagination": {"limit": "100", "offset": 0, "count": 0, "total": 0}, "data": []}`,
			wantField: "pagination.limit",
		},
		{
			name:      "missing pagination",
			body:      `{"data": []}`,
			wantField: "pagination",
		},
		{
			name:      "missing pagination total",
			body:      `{"pagination": {"limit": 100, "offset": 0, "count": 0}, "data": []}`,
			wantField: "pagination.total",
		},
		{
			name:      "missing data",
			body:      `{"pagination": {"limit": 100, "offset": 0, "count": 0, "total": 0}}`,
			wantField: "data",
		},
		{
			name:      "count disagrees with body",
			body:      `{"pagination": {"limit": 100, "offset": 0, "count": 3, "total": 3}, "data": []}`,
			wantField: "pagination.count",
		},
		{
			name: "row missing close",
			body: `{
				"pagination": {"limit": 100, "offset": 0, "count": 2, "total": 2},
				"data": [
					{"open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10, "symbol": "A", "date": "2021-04-09"},
					{"open": 1, "high": 2, "low": 0.5, "volume": 10, "symbol": "B", "date": "2021-04-09"}
				]
			}`,
			wantField: "data[1].close",
		},
		{
			name: "row missing symbol",
			body: `{
				"pagination": {"limit": 100, "offset": 0, "count": 1, "total": 1},
				"data": [{"open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10, "date": "2021-04-09"}]
			}`,
			wantField: "data[0].symbol",
		},
		{
			name: "row missing date",
			body: `{
				"pagination": {"limit": 100, "offset": 0, "count": 1, "total": 1},
				"data": [{"open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10, "symbol": "A"}]
			}`,
			wantField: "data[0].date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseResponse(http.StatusOK, []byte(tt.body))
			if err == nil {
				t.Fatal("parseResponse succeeded, want error")
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error type = %T, want *Error", err)
			}
			if e.Kind != KindValidation {
				t.Errorf("Kind = %q, want %q", e.Kind, KindValidation)
			}
			if e.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", e.Field, tt.wantField)
			}
		})
	}
}
