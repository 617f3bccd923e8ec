package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/coursehub/enrollment-api/internal/domain/entity"
	repo "github.com/coursehub/enrollment-api/internal/domain/repository"
	"github.com/coursehub/enrollment-api/pkg/helpers"
)

// Sort keys accepted by List.
const (
	SortRecent  = "recent"
	SortPopular = "popular"
	SortRate    = "rate"
)

// UnknownInstructor is the name stored when the creating instructor has no
// user record.
const UnknownInstructor = "unknown instructor"

const (
	searchCacheTTL    = 30 * time.Second
	defaultSearchSize = 10
	maxSearchSize     = 50
	searchCachePrefix = "courses:search:"
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page    int
	Limit   int
	Total   int
	HasMore bool
}

// CoursePage is one page of courses plus its pagination.
type CoursePage struct {
	Items      []entity.Course
	Pagination Pagination
}

// CreateCourseInput carries the fields an instructor supplies.
type CreateCourseInput struct {
	Title    string
	Capacity int
	Price    int64
}

type CourseService struct {
	Users   repo.UserRepository
	Courses repo.CourseRepository
	Index   CourseIndex
	Redis   *redis.Client
	Logger  *logrus.Logger

	now   func() time.Time
	newID func() string
}

func NewCourseService(users repo.UserRepository, courses repo.CourseRepository, logger *logrus.Logger) *CourseService {
	return &CourseService{
		Users:   users,
		Courses: courses,
		Logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Create adds a course owned by the calling instructor.
func (s *CourseService) Create(ctx context.Context, caller Caller, in CreateCourseInput) (*entity.Course, error) {
	if caller.UserID == "" {
		return nil, ErrUnauthorized
	}
	if caller.Role != entity.RoleInstructor {
		return nil, ErrForbidden
	}

	name := UnknownInstructor
	u, err := s.Users.GetByID(ctx, caller.UserID)
	switch {
	case err == nil:
		name = u.Name
	case errors.Is(err, repo.ErrNotFound):
	default:
		return nil, fmt.Errorf("lookup instructor: %w", err)
	}

	now := s.now()
	c := &entity.Course{
		ID:             s.newID(),
		Title:          strings.TrimSpace(in.Title),
		Capacity:       in.Capacity,
		Price:          in.Price,
		InstructorID:   caller.UserID,
		InstructorName: name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Courses.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.Logger.WithFields(logrus.Fields{"course_id": c.ID, "instructor_id": c.InstructorID}).Info("course created")
	if s.Index != nil {
		if err := s.Index.Index(ctx, c); err != nil {
			s.Logger.WithError(err).WithField("course_id", c.ID).Warn("course index failed")
		}
	}
	return c, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*entity.Course, error) {
	c, err := s.Courses.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// List sorts every course by sortKey and returns the requested page.
// Unknown sort keys fall back to recent. Page and limit are expected to be
// at least 1; smaller values are raised to 1.
func (s *CourseService) List(ctx context.Context, page, limit int, sortKey string) (*CoursePage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	all, err := s.Courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	SortCourses(all, sortKey)
	return paginate(all, page, limit), nil
}

// SortCourses orders courses in place, keeping store order among equals.
func SortCourses(cs []entity.Course, sortKey string) {
	var less func(a, b *entity.Course) bool
	switch sortKey {
	case SortPopular:
		less = func(a, b *entity.Course) bool { return a.SeatsFilled > b.SeatsFilled }
	case SortRate:
		less = func(a, b *entity.Course) bool { return a.EnrollmentRate > b.EnrollmentRate }
	default:
		less = func(a, b *entity.Course) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(cs, func(i, j int) bool { return less(&cs[i], &cs[j]) })
}

func paginate(all []entity.Course, page, limit int) *CoursePage {
	total := len(all)
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	out := &CoursePage{
		Items:      []entity.Course{},
		Pagination: Pagination{Page: page, Limit: limit, Total: total},
	}
	// Checked before multiplying so huge page numbers cannot overflow.
	if page > pages {
		return out
	}
	start := (page - 1) * limit
	end := start + min(limit, total-start)
	out.Items = make([]entity.Course, end-start)
	copy(out.Items, all[start:end])
	out.Pagination.HasMore = end < total
	return out
}

// Search finds courses by title. It uses the full-text index when one is
// configured and falls back to a store scan otherwise or on index failure.
// Results are cached in Redis for a short time when Redis is available.
func (s *CourseService) Search(ctx context.Context, q string, size int) ([]entity.Course, error) {
	q = strings.TrimSpace(q)
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	if q == "" {
		return []entity.Course{}, nil
	}

	cacheKey := fmt.Sprintf("%s%d:%s", searchCachePrefix, size, strings.ToLower(q))
	if s.Redis != nil {
		var cached []entity.Course
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, cacheKey, &cached); err == nil && ok {
			return cached, nil
		} else if err != nil {
			s.Logger.WithError(err).WithField("key", cacheKey).Warn("search cache read failed")
		}
	}

	out, err := s.search(ctx, q, size)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, cacheKey, out, searchCacheTTL); err != nil {
			s.Logger.WithError(err).WithField("key", cacheKey).Warn("search cache write failed")
		}
	}
	return out, nil
}

func (s *CourseService) search(ctx context.Context, q string, size int) ([]entity.Course, error) {
	if s.Index != nil {
		ids, err := s.Index.Search(ctx, q, size)
		if err == nil {
			out := make([]entity.Course, 0, len(ids))
			for _, id := range ids {
				c, gErr := s.Courses.GetByID(ctx, id)
				if gErr != nil {
					continue
				}
				out = append(out, *c)
			}
			return out, nil
		}
		s.Logger.WithError(err).Warn("course index search failed, scanning store")
	}
	out, err := s.Courses.SearchByTitle(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	if out == nil {
		out = []entity.Course{}
	}
	return out, nil
}
