// Package testutil provides testing utilities for the rates proxy.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Currency is one entry of the mock provider's /currencies response.
type Currency struct {
	Code string
	Name string
}

// MockResponse defines a canned response for a path.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockProvider is a configurable fake exchange-rate provider exposing
// GET /latest?base=&symbols= and GET /currencies.
type MockProvider struct {
	server *httptest.Server

	mu         sync.RWMutex
	handlers   map[string]http.HandlerFunc
	rates      map[string]map[string]float64
	currencies []Currency
	requests   map[string]int
	queries    []url.Values
}

// NewMockProvider starts a mock provider with no rates and no currencies.
func NewMockProvider() *MockProvider {
	m := &MockProvider{
		handlers: make(map[string]http.HandlerFunc),
		rates:    make(map[string]map[string]float64),
		requests: make(map[string]int),
	}

	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests[r.URL.Path]++
		m.queries = append(m.queries, r.URL.Query())
		handler, exists := m.handlers[r.URL.Path]
		m.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case "/latest":
			m.latestHandler(w, r)
		case "/currencies":
			m.currenciesHandler(w, r)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		}
	}))

	return m
}

// URL returns the mock server URL.
func (m *MockProvider) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockProvider) Close() {
	m.server.Close()
}

// Reset clears request tracking.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.queries = nil
}

// SetRate configures the quote for base→target.
func (m *MockProvider) SetRate(base, target string, rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rates[base] == nil {
		m.rates[base] = make(map[string]float64)
	}
	m.rates[base][target] = rate
}

// SetCurrencies configures the /currencies response, preserving order.
func (m *MockProvider) SetCurrencies(currencies ...Currency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies = currencies
}

// SetHandler overrides the handler for a path.
func (m *MockProvider) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockProvider) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// ClearHandler removes an override installed by SetHandler or SetResponse.
func (m *MockProvider) ClearHandler(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, path)
}

// Requests returns the number of requests made to path.
func (m *MockProvider) Requests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[path]
}

// TotalRequests returns the number of requests made to any path.
func (m *MockProvider) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requests {
		total += n
	}
	return total
}

// Queries returns the query strings seen so far, in arrival order.
func (m *MockProvider) Queries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.queries))
	copy(out, m.queries)
	return out
}

func (m *MockProvider) latestHandler(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	if base == "" {
		base = "EUR"
	}

	m.mu.RLock()
	table, ok := m.rates[base]
	rates := make(map[string]float64)
	if ok {
		for _, symbol := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			if rate, found := table[symbol]; found {
				rates[symbol] = rate
			}
		}
	}
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"amount": 1.0,
		"base":   base,
		"date":   time.Now().UTC().Format("2006-01-02"),
		"rates":  rates,
	})
}

func (m *MockProvider) currenciesHandler(w http.ResponseWriter, _ *http.Request) {
	m.mu.RLock()
	currencies := m.currencies
	m.mu.RUnlock()

	// written by hand so key order follows SetCurrencies
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range currencies {
		if i > 0 {
			buf.WriteByte(',')
		}
		code, _ := json.Marshal(c.Code)
		name, _ := json.Marshal(c.Name)
		buf.Write(code)
		buf.WriteByte(':')
		buf.Write(name)
	}
	buf.WriteByte('}')

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// DefaultCurrencies is a small realistic currency list.
func DefaultCurrencies() []Currency {
	return []Currency{
		{Code: "EUR", Name: "Euro"},
		{Code: "GBP", Name: "British Pound"},
		{Code: "JPY", Name: "Japanese Yen"},
		{Code: "USD", Name: "United States Dollar"},
	}
}
