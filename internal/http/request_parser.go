// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// body parsing for JSON or form payloads, query dates and year/month pairs.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trainingclub/internal/core"
)

// maxBodyBytes bounds request bodies; payloads here are a few fields.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, defaulting
// to now. Present but non-numeric values are an error.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return params, core.Invalidf("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return params, core.Invalidf("invalid month %q", v)
		}
		params.Month = m
	}
	return params, nil
}

// ParseDateQuery parses an optional YYYY-MM-DD query parameter. A missing
// value yields the zero time so services apply their defaults.
func ParseDateQuery(query url.Values, key string, loc *time.Location) (time.Time, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return time.Time{}, nil
	}
	return core.ParseDate(v, loc)
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once and stores it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a trimmed, sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present in the body.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// Int returns key as an int; missing or malformed values are an error.
func (p *RequestBodyParser) Int(key string) (int, error) {
	v := p.Get(key)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Invalidf("invalid %s %q", key, v)
	}
	return n, nil
}

// Bool returns key as a bool; missing or malformed values are an error.
func (p *RequestBodyParser) Bool(key string) (bool, error) {
	v := p.Get(key)
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, core.Invalidf("invalid %s %q", key, v)
	}
	return b, nil
}

// Date returns key as a club-local date; missing values are an error.
func (p *RequestBodyParser) Date(key string, loc *time.Location) (time.Time, error) {
	v := p.Get(key)
	if v == "" {
		return time.Time{}, core.Invalidf("%s is required", key)
	}
	return core.ParseDate(v, loc)
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseBody reads and parses the request body, writing a 400 on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return nil, false
	}
	return p, true
}
