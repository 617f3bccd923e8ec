package search

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(t *testing.T, fn roundTripFunc) *elasticsearch.Client {
	t.Helper()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: fn,
	})
	require.NoError(t, err)
	return es
}

func jsonResponse(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{StatusCode: status, Header: h, Body: io.NopCloser(strings.NewReader(body))}
}

func TestCourseIndex_Index(t *testing.T) {
	var gotPath, gotBody string
	es := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		return jsonResponse(201, `{"result":"created"}`), nil
	})

	idx := NewCourseIndex(es, "courses")
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	err := idx.Index(context.Background(), &entity.Course{
		ID: "c-1", Title: "Go Basics", Capacity: 10, SeatsFilled: 3, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.Equal(t, "/courses/_doc/c-1", gotPath)
	assert.Contains(t, gotBody, `"title":"Go Basics"`)
	assert.Contains(t, gotBody, `"seats_filled":3`)
}

func TestCourseIndex_IndexErrorStatus(t *testing.T) {
	es := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"error":"bad"}`), nil
	})
	err := NewCourseIndex(es, "courses").Index(context.Background(), &entity.Course{ID: "c-1"})
	assert.Error(t, err)
}

func TestCourseIndex_Search(t *testing.T) {
	es := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "/courses/_search", r.URL.Path)
		return jsonResponse(200, `{"hits":{"hits":[{"_id":"c-2"},{"_id":"c-1"}]}}`), nil
	})
	ids, err := NewCourseIndex(es, "courses").Search(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"c-2", "c-1"}, ids)
}

func TestBuildSearchQuery(t *testing.T) {
	q := BuildSearchQuery("react", 7)
	assert.Equal(t, 7, q["size"])
	mm := q["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "react", mm["query"])
}

func TestCourseIndex_EnsureIndexCreatesWhenMissing(t *testing.T) {
	var calls []string
	es := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodHead {
			return jsonResponse(404, ``), nil
		}
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), `"seats_filled":{"type":"integer"}`)
		return jsonResponse(200, `{"acknowledged":true}`), nil
	})

	require.NoError(t, NewCourseIndex(es, "courses").EnsureIndex(context.Background()))
	assert.Equal(t, []string{"HEAD /courses", "PUT /courses"}, calls)
}

func TestCourseIndex_EnsureIndexExisting(t *testing.T) {
	calls := 0
	es := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(200, ``), nil
	})

	require.NoError(t, NewCourseIndex(es, "courses").EnsureIndex(context.Background()))
	assert.Equal(t, 1, calls)
}
