package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBreakers map[string]gobreaker.State

func (f fakeBreakers) BreakerStates() map[string]gobreaker.State { return f }

func TestHostHealthHandler(t *testing.T) {
	tests := []struct {
		name      string
		states    fakeBreakers
		wantCode  int
		wantHosts []HostStatus
	}{
		{
			name:      "no hosts seen yet",
			states:    fakeBreakers{},
			wantCode:  http.StatusOK,
			wantHosts: []HostStatus{},
		},
		{
			name: "all closed",
			states: fakeBreakers{
				"www.smbc-comics.com": gobreaker.StateClosed,
				"xkcd.com":            gobreaker.StateHalfOpen,
			},
			wantCode: http.StatusOK,
			wantHosts: []HostStatus{
				{Host: "www.smbc-comics.com", State: "closed"},
				{Host: "xkcd.com", State: "half-open"},
			},
		},
		{
			name: "one open",
			states: fakeBreakers{
				"xkcd.com":         gobreaker.StateClosed,
				"down.example.com": gobreaker.StateOpen,
			},
			wantCode: http.StatusServiceUnavailable,
			wantHosts: []HostStatus{
				{Host: "down.example.com", State: "open"},
				{Host: "xkcd.com", State: "closed"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			hostHealthHandler(tt.states)(rec, httptest.NewRequest(http.MethodGet, "/health/hosts", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			var body HostHealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode == http.StatusOK, body.Healthy)
			assert.Equal(t, tt.wantHosts, body.Hosts)
		})
	}
}
