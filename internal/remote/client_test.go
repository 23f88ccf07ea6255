package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL, "test-key", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestListBuildings(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("apikey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": 2, "name": "Grainger Library", "hours": "Monday: 9:00AM - 10:00PM", "sorted_id": 1, "favorites": 4},
			{"id": 7, "name": "Union", "description": null, "sorted_id": 2}
		]`))
	}))

	buildings, err := client.ListBuildings(context.Background(), 10, 20)
	if err != nil {
		t.Fatalf("ListBuildings returned error: %v", err)
	}
	if gotPath != "/rest/v1/buildings" {
		t.Errorf("request path = %q, want /rest/v1/buildings", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("apikey header = %q, want test-key", gotKey)
	}
	for _, want := range []string{"limit=10", "offset=20", "order=sorted_id.asc"} {
		if !containsParam(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
	if len(buildings) != 2 {
		t.Fatalf("got %d buildings, want 2", len(buildings))
	}
	if buildings[0].ID != 2 || buildings[0].Name != "Grainger Library" {
		t.Errorf("first building = %+v", buildings[0])
	}
	if buildings[0].Hours == nil || *buildings[0].Hours != "Monday: 9:00AM - 10:00PM" {
		t.Errorf("hours not decoded: %+v", buildings[0].Hours)
	}
	if buildings[0].Favorites != 4 {
		t.Errorf("favorites = %d, want 4", buildings[0].Favorites)
	}
	if buildings[1].Description != nil {
		t.Errorf("null description decoded as %v", *buildings[1].Description)
	}
}

func TestCountBuildings(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "count=exact" {
			t.Errorf("Prefer header = %q, want count=exact", r.Header.Get("Prefer"))
		}
		w.Header().Set("Content-Range", "0-0/113")
		_, _ = w.Write([]byte(`[{"id": 1}]`))
	}))

	total, err := client.CountBuildings(context.Background())
	if err != nil {
		t.Fatalf("CountBuildings returned error: %v", err)
	}
	if total != 113 {
		t.Errorf("total = %d, want 113", total)
	}
}

func TestCountBuildingsEmptySet(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "*/0")
		_, _ = w.Write([]byte(`[]`))
	}))

	total, err := client.CountBuildings(context.Background())
	if err != nil {
		t.Fatalf("CountBuildings returned error: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
}

func TestGetEvents(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"id": 1, "room_id": 5, "term_id": 9, "name": "CS 225", "start_time": "09:00:00", "end_time": "09:50:00", "days_of_week": "MWF"}
		]`))
	}))

	events, err := client.GetEvents(context.Background(), []int64{5, 6}, []int64{9})
	if err != nil {
		t.Fatalf("GetEvents returned error: %v", err)
	}
	if !containsParam(gotQuery, "room_id=in.%285%2C6%29") {
		t.Errorf("query %q missing room_id in-filter", gotQuery)
	}
	if !containsParam(gotQuery, "term_id=in.%289%29") {
		t.Errorf("query %q missing term_id in-filter", gotQuery)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].StartTime.Minutes() != 540 || events[0].EndTime.Minutes() != 590 {
		t.Errorf("event times = %d..%d, want 540..590", events[0].StartTime.Minutes(), events[0].EndTime.Minutes())
	}
	if events[0].DaysOfWeek != "MWF" {
		t.Errorf("days = %q, want MWF", events[0].DaysOfWeek)
	}
}

func TestGetEventsEmptyIDs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server for empty id sets")
	}))

	events, err := client.GetEvents(context.Background(), nil, []int64{1})
	if err != nil {
		t.Fatalf("GetEvents returned error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestGetCurrentTerms(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[
			{"id": 3, "year": 2025, "term": "Spring", "year_term": "2025-sp", "part_of_term": "1", "start_date": "2025-01-21", "end_date": "2025-05-15"},
			{"id": 4, "year": 2025, "term": "Spring", "year_term": "2025-sp", "part_of_term": "A", "start_date": "2025-01-21", "end_date": "2025-03-07"}
		]`))
	}))

	asOf := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	terms, err := client.GetCurrentTerms(context.Background(), asOf)
	if err != nil {
		t.Fatalf("GetCurrentTerms returned error: %v", err)
	}
	if !containsParam(gotQuery, "start_date=lte.2025-02-10") || !containsParam(gotQuery, "end_date=gte.2025-02-10") {
		t.Errorf("query %q missing date filters", gotQuery)
	}
	if len(terms) != 2 {
		t.Fatalf("got %d terms, want 2", len(terms))
	}
	if !terms[0].StartDate.Equal(time.Date(2025, time.January, 21, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start date = %v", terms[0].StartDate)
	}
}

func TestGetUserFavoritesNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	ids, err := client.GetUserFavorites(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUserFavorites returned error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("got %d ids, want 0", len(ids))
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.ListBuildings(context.Background(), 10, 0)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error %v is not a StatusError", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", statusErr.Code)
	}
}

func TestDeleteFavoriteIgnoresMissing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	if err := client.DeleteFavorite(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("DeleteFavorite returned error: %v", err)
	}
}

func containsParam(rawQuery, param string) bool {
	for _, part := range splitQuery(rawQuery) {
		if part == param {
			return true
		}
	}
	return false
}

func splitQuery(rawQuery string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(rawQuery); i++ {
		if i == len(rawQuery) || rawQuery[i] == '&' {
			parts = append(parts, rawQuery[start:i])
			start = i + 1
		}
	}
	return parts
}
