package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/learnhub/learnhub/internal/activity"
	"github.com/learnhub/learnhub/internal/cache"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory stand-in for repository.Repository.
type fakeStore struct {
	mu          sync.Mutex
	users       map[string]*model.User
	courses     []*model.Course
	enrollments map[string]*model.Enrollment
	daily       []*model.CourseDailyStats
	trending    []string
	calls       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]*model.User),
		enrollments: make(map[string]*model.Enrollment),
	}
}

func (f *fakeStore) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeStore) addCourse(id, category string, count int64, rating float64, tags ...string) *model.Course {
	c := &model.Course{
		ID:              id,
		Slug:            strings.ToLower(id),
		Title:           "Course " + id,
		Category:        category,
		Tags:            tags,
		Level:           model.LevelBeginner,
		Rating:          rating,
		EnrollmentCount: count,
		Published:       true,
		CreatedAt:       time.Now().UTC(),
	}
	f.courses = append(f.courses, c)
	return c
}

func enrollmentKey(userID, courseID string) string {
	return userID + "|" + courseID
}

func (f *fakeStore) CreateUser(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, user.Username) {
			return repository.ErrUsernameExists
		}
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByLogin(ctx context.Context, identifier string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier) {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeStore) UpdateInterests(ctx context.Context, userID string, interests []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Interests = interests
	return nil
}

func (f *fakeStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	f.record("UpdatePasswordHash")
	return nil
}

func (f *fakeStore) findCourse(idOrSlug string) *model.Course {
	for _, c := range f.courses {
		if c.ID == idOrSlug || c.Slug == idOrSlug {
			return c
		}
	}
	return nil
}

func (f *fakeStore) CreateCourse(ctx context.Context, course *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findCourse(course.Slug) != nil {
		return repository.ErrSlugExists
	}
	f.courses = append(f.courses, course)
	return nil
}

func (f *fakeStore) SeedCourses(ctx context.Context, courses []*model.Course) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, c := range courses {
		if f.findCourse(c.Slug) == nil {
			f.courses = append(f.courses, c)
			inserted++
		}
	}
	return inserted, nil
}

func (f *fakeStore) GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCourse")
	c := f.findCourse(idOrSlug)
	if c == nil || !c.Published {
		return nil, repository.ErrCourseNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeStore) GetCoursesByIDs(ctx context.Context, ids []string) ([]*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCoursesByIDs")
	var out []*model.Course
	for _, id := range ids {
		if c := f.findCourse(id); c != nil && c.Published {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListCourses(ctx context.Context, filter repository.CourseFilter, cursor string, limit int) ([]*model.Course, string, error) {
	if cursor == "bad" {
		return nil, "", repository.ErrInvalidCursor
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListCourses:" + filter.Sort)
	out := lo.Filter(f.courses, func(c *model.Course, _ int) bool {
		return c.Published && (filter.Category == "" || c.Category == filter.Category)
	})
	if len(out) > limit {
		return out[:limit], "next", nil
	}
	return out, "", nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListCategories")
	counts := lo.CountValuesBy(f.courses, func(c *model.Course) string { return c.Category })
	names := lo.Keys(counts)
	sort.Strings(names)
	return lo.Map(names, func(n string, _ int) model.Category {
		return model.Category{Name: n, CourseCount: int64(counts[n])}
	}), nil
}

// candidates mirrors the repository's stage queries.
func (f *fakeStore) candidates(match func(c *model.Course) bool, exclude []string, limit int) []*model.Course {
	out := lo.Filter(f.courses, func(c *model.Course, _ int) bool {
		return c.Published && !lo.Contains(exclude, c.ID) && match(c)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EnrollmentCount != out[j].EnrollmentCount {
			return out[i].EnrollmentCount > out[j].EnrollmentCount
		}
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f *fakeStore) CoursesMatchingLabels(ctx context.Context, labels, exclude []string, limit int) ([]*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("interest")
	return f.candidates(func(c *model.Course) bool { return c.MatchesAny(labels) }, exclude, limit), nil
}

func (f *fakeStore) CoursesInCategories(ctx context.Context, categories, exclude []string, limit int) ([]*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("category")
	return f.candidates(func(c *model.Course) bool { return lo.Contains(categories, c.Category) }, exclude, limit), nil
}

func (f *fakeStore) PopularCourses(ctx context.Context, exclude []string, limit int) ([]*model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("popular")
	return f.candidates(func(*model.Course) bool { return true }, exclude, limit), nil
}

func (f *fakeStore) GetEnrollmentHistory(ctx context.Context, userID string) (*repository.EnrollmentHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := &repository.EnrollmentHistory{CourseIDs: []string{}, Categories: []string{}}
	for _, e := range f.enrollments {
		if e.UserID != userID {
			continue
		}
		h.CourseIDs = append(h.CourseIDs, e.CourseID)
		if c := f.findCourse(e.CourseID); c != nil {
			h.Categories = append(h.Categories, c.Category)
		}
	}
	sort.Strings(h.CourseIDs)
	h.Categories = lo.Uniq(h.Categories)
	return h, nil
}

func (f *fakeStore) Enroll(ctx context.Context, userID, courseID string) (*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.findCourse(courseID)
	if c == nil || !c.Published {
		return nil, repository.ErrCourseNotFound
	}
	key := enrollmentKey(userID, courseID)
	if _, ok := f.enrollments[key]; ok {
		return nil, repository.ErrAlreadyEnrolled
	}
	e := &model.Enrollment{UserID: userID, CourseID: courseID, Status: model.EnrollmentStatusEnrolled, EnrolledAt: time.Now()}
	f.enrollments[key] = e
	c.EnrollmentCount++
	copied := *e
	return &copied, nil
}

func (f *fakeStore) CompleteEnrollment(ctx context.Context, userID, courseID string) (*model.Enrollment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return nil, false, repository.ErrEnrollmentNotFound
	}
	if e.IsCompleted() {
		copied := *e
		return &copied, false, nil
	}
	now := time.Now()
	e.Status = model.EnrollmentStatusCompleted
	e.Progress = 100
	e.CompletedAt = &now
	copied := *e
	return &copied, true, nil
}

func (f *fakeStore) UpdateProgress(ctx context.Context, userID, courseID string, progress int) (*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrollments[enrollmentKey(userID, courseID)]
	if !ok {
		return nil, repository.ErrEnrollmentNotFound
	}
	if !e.IsCompleted() {
		e.Progress = progress
	}
	copied := *e
	return &copied, nil
}

func (f *fakeStore) ListEnrollments(ctx context.Context, userID string, status model.EnrollmentStatus) ([]*model.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*model.Enrollment{}
	for _, e := range f.enrollments {
		if e.UserID == userID && (status == "" || e.Status == status) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeStore) GetDailyStats(ctx context.Context, courseID string, from, to time.Time) ([]*model.CourseDailyStats, error) {
	return lo.Filter(f.daily, func(s *model.CourseDailyStats, _ int) bool {
		return s.CourseID == courseID && !s.Date.Before(from) && !s.Date.After(to)
	}), nil
}

func (f *fakeStore) TrendingCourseIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	return f.trending, nil
}

// fakeCache is an in-memory stand-in for cache.Cache.
type fakeCache struct {
	mu          sync.Mutex
	courses     map[string]*model.Course
	negative    map[string]bool
	categories  []model.Category
	recs        map[string][]model.Recommendation
	recGen      map[string]int64
	popular     []string
	revoked     map[string]time.Duration
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		courses:  make(map[string]*model.Course),
		negative: make(map[string]bool),
		recs:     make(map[string][]model.Recommendation),
		recGen:   make(map[string]int64),
		revoked:  make(map[string]time.Duration),
	}
}

func (c *fakeCache) GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if course, ok := c.courses[idOrSlug]; ok {
		return course, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) SetCourse(ctx context.Context, course *model.Course) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *course
	c.courses[course.ID] = &copied
	c.courses[course.Slug] = &copied
	return nil
}

func (c *fakeCache) DeleteCourse(ctx context.Context, course *model.Course) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range []string{course.ID, course.Slug} {
		delete(c.courses, k)
		delete(c.negative, k)
	}
	return nil
}

func (c *fakeCache) IsNegativelyCached(ctx context.Context, idOrSlug string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.negative[idOrSlug], nil
}

func (c *fakeCache) SetNegativeCache(ctx context.Context, idOrSlug string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.negative[idOrSlug] = true
	return nil
}

func (c *fakeCache) GetCategories(ctx context.Context) ([]model.Category, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.categories == nil {
		return nil, cache.ErrCacheMiss
	}
	return c.categories, nil
}

func (c *fakeCache) SetCategories(ctx context.Context, categories []model.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = categories
	return nil
}

func (c *fakeCache) DeleteCategories(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = nil
	return nil
}

func recCacheKey(userID string, gen int64, limit int) string {
	return fmt.Sprintf("%s:%d:%d", userID, gen, limit)
}

func (c *fakeCache) RecommendationGeneration(ctx context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recGen[userID], nil
}

func (c *fakeCache) GetRecommendations(ctx context.Context, userID string, gen int64, limit int) ([]model.Recommendation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if recs, ok := c.recs[recCacheKey(userID, gen, limit)]; ok {
		return recs, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *fakeCache) SetRecommendations(ctx context.Context, userID string, gen int64, limit int, recs []model.Recommendation, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs[recCacheKey(userID, gen, limit)] = recs
	return nil
}

func (c *fakeCache) InvalidateRecommendations(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	c.recGen[userID]++
	for k := range c.recs {
		if strings.HasPrefix(k, userID+":") {
			delete(c.recs, k)
		}
	}
	return nil
}

func (c *fakeCache) GetPopularSnapshot(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.popular) == 0 {
		return nil, cache.ErrCacheMiss
	}
	return c.popular, nil
}

func (c *fakeCache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = ttl
	return nil
}

// fakePublisher captures published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []activity.EventPayload
}

func (p *fakePublisher) PublishAsync(event activity.EventPayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}
