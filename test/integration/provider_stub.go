package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// providerStub stands in for the strava API: one token endpoint, one
// activity-listing endpoint, canned responses.
type providerStub struct {
	server *httptest.Server

	mu          sync.Mutex
	activities  []map[string]any
	failRefresh bool

	exchangeCalls int
	refreshCalls  int
	listCalls     int
	lastAfter     string
}

func newProviderStub() *providerStub {
	stub := &providerStub{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", stub.handleToken)
	mux.HandleFunc("GET /athlete/activities", stub.handleActivities)
	stub.server = httptest.NewServer(mux)

	return stub
}

func (s *providerStub) setActivities(activities []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = activities
}

func (s *providerStub) setFailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

func (s *providerStub) stats() (exchange, refresh, list int, lastAfter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchangeCalls, s.refreshCalls, s.listCalls, s.lastAfter
}

func (s *providerStub) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.exchangeCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "stub-access",
			"refresh_token": "stub-refresh",
			"expires_at":    4102444800, // far future
			"athlete": map[string]any{
				"id":        4242,
				"firstname": "Tori",
				"lastname":  "Smith",
				"sex":       "F",
			},
		})
	case "refresh_token":
		s.refreshCalls++
		if s.failRefresh {
			http.Error(w, `{"message":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "stub-access-rotated",
			"refresh_token": "stub-refresh-rotated",
			"expires_at":    4102444800,
		})
	default:
		http.Error(w, "unsupported grant type", http.StatusBadRequest)
	}
}

func (s *providerStub) handleActivities(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++
	s.lastAfter = r.URL.Query().Get("after")

	if s.activities == nil {
		json.NewEncoder(w).Encode([]map[string]any{})
		return
	}
	json.NewEncoder(w).Encode(s.activities)
}
