package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// CourseIndex keeps a searchable copy of courses in Elasticsearch.
type CourseIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewCourseIndex(es *elasticsearch.Client, index string) *CourseIndex {
	return &CourseIndex{es: es, index: index}
}

// CourseDocument is the indexed form of a course.
type CourseDocument struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	InstructorID   string  `json:"instructor_id"`
	InstructorName string  `json:"instructor_name"`
	Capacity       int     `json:"capacity"`
	SeatsFilled    int     `json:"seats_filled"`
	EnrollmentRate float64 `json:"enrollment_rate"`
	Price          int64   `json:"price"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toDocument(c *entity.Course) CourseDocument {
	return CourseDocument{
		ID:             c.ID,
		Title:          c.Title,
		InstructorID:   c.InstructorID,
		InstructorName: c.InstructorName,
		Capacity:       c.Capacity,
		SeatsFilled:    c.SeatsFilled,
		EnrollmentRate: c.EnrollmentRate,
		Price:          c.Price,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Index upserts the course document.
func (i *CourseIndex) Index(ctx context.Context, c *entity.Course) error {
	b, err := json.Marshal(toDocument(c))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: i.index, DocumentID: c.ID, Body: bytes.NewReader(b), Refresh: "false"}
	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(cctx, i.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index course %s: %s", c.ID, res.Status())
	}
	return nil
}

// BuildSearchQuery returns the query body for a title search.
func BuildSearchQuery(q string, size int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     q,
				"fields":    []string{"title^2", "instructor_name"},
				"fuzziness": "AUTO",
			},
		},
		"size":    size,
		"_source": false,
	}
}

// Search returns the ids of matching courses, best match first.
func (i *CourseIndex) Search(ctx context.Context, q string, size int) ([]string, error) {
	b, err := json.Marshal(BuildSearchQuery(q, size))
	if err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.es.Search(
		i.es.Search.WithContext(cctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(strings.NewReader(string(b))),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search courses: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.ID)
	}
	return out, nil
}

var courseMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":              map[string]any{"type": "keyword"},
			"title":           map[string]any{"type": "text"},
			"instructor_id":   map[string]any{"type": "keyword"},
			"instructor_name": map[string]any{"type": "text"},
			"capacity":        map[string]any{"type": "integer"},
			"seats_filled":    map[string]any{"type": "integer"},
			"enrollment_rate": map[string]any{"type": "float"},
			"price":           map[string]any{"type": "long"},
			"created_at":      map[string]any{"type": "date"},
			"updated_at":      map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with the course mapping unless it exists.
func (i *CourseIndex) EnsureIndex(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := i.es.Indices.Exists([]string{i.index}, i.es.Indices.Exists.WithContext(cctx))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	switch res.StatusCode {
	case 200:
		return nil
	case 404:
	default:
		return fmt.Errorf("check index %s: %s", i.index, res.Status())
	}

	b, err := json.Marshal(courseMapping)
	if err != nil {
		return err
	}
	res, err = i.es.Indices.Create(i.index,
		i.es.Indices.Create.WithContext(cctx),
		i.es.Indices.Create.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	// 400 resource_already_exists_exception when another instance won the race
	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("create index %s: %s", i.index, res.Status())
	}
	return nil
}
