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
	"time"

	"financeflow/internal/core"
	"financeflow/internal/report"
)

const maxBodySize = 1 << 20

// errMalformedBody marks request bodies that are not the JSON a handler
// expects. It maps to 400.
var errMalformedBody = errors.New("malformed request body")

// ParseMonthParams extracts year and month from query parameters, using the
// month containing now for anything missing or out of range.
func ParseMonthParams(query url.Values, now time.Time) report.Period {
	p := report.PeriodOf(now)
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			p.Year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			p.Month = time.Month(m)
		}
	}
	return p
}

// ParseTransactionFilter reads month, type and q. Unlike the monthly views
// the transactions list spans every month unless one is named.
func ParseTransactionFilter(query url.Values) report.TransactionFilter {
	var f report.TransactionFilter
	if m, err := strconv.Atoi(strings.TrimSpace(query.Get("month"))); err == nil && m >= 1 && m <= 12 {
		f.Month = time.Month(m)
	}
	if k := core.TxKind(strings.TrimSpace(query.Get("type"))); k.Valid() {
		f.Kind = k
	}
	f.Search = sanitizeInput(query.Get("q"))
	return f
}

// decodeJSON strictly decodes one JSON value from the request body into v.
// Unknown fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if core.IsValidation(err) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: unexpected data after JSON value", errMalformedBody)
	}
	return nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizeOptional cleans a present string field of a patch.
func sanitizeOptional(o core.Optional[string]) core.Optional[string] {
	if v, ok := o.Get(); ok {
		return core.Some(sanitizeInput(v))
	}
	return o
}
