package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/internal/auth"
	"github.com/learnhub/learnhub/internal/metrics"
	"github.com/learnhub/learnhub/internal/middleware"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/repository"
	"github.com/learnhub/learnhub/internal/scheduler"
	"github.com/learnhub/learnhub/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	learner = &model.User{ID: "01J0000000000000000000000A", Username: "ada", Email: "ada@example.com", Role: model.RoleLearner}
	admin   = &model.User{ID: "01J0000000000000000000000B", Username: "root", Email: "root@example.com", Role: model.RoleAdmin}
)

type fakeAccounts struct {
	registerErr error
	loginErr    error
	lastInput   service.RegisterInput
	loggedOut   string
	tokens      *auth.TokenManager
}

func (f *fakeAccounts) Register(ctx context.Context, input service.RegisterInput) (*service.AuthResult, error) {
	f.lastInput = input
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	user := &model.User{ID: learner.ID, Username: input.Username, Email: input.Email, Interests: input.Interests, Role: model.RoleLearner}
	token, exp, err := f.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &service.AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, identifier, password string) (*service.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	token, exp, err := f.tokens.Issue(learner)
	if err != nil {
		return nil, err
	}
	return &service.AuthResult{User: learner, Token: token, ExpiresAt: exp}, nil
}

func (f *fakeAccounts) Logout(ctx context.Context, principal *auth.Principal) error {
	f.loggedOut = principal.TokenID
	return nil
}

func (f *fakeAccounts) Me(ctx context.Context, userID string) (*service.Profile, error) {
	summary := model.CourseSummary{ID: "course-1", Slug: "go-basics", Title: "Go Basics"}
	return &service.Profile{
		User: &model.User{ID: userID, Username: "ada"},
		Enrollments: []*model.Enrollment{
			{UserID: userID, CourseID: "course-1", Status: model.EnrollmentStatusEnrolled, Progress: 40, Course: &summary},
		},
	}, nil
}

func (f *fakeAccounts) UpdateInterests(ctx context.Context, userID string, interests []string) (*model.User, error) {
	return &model.User{ID: userID, Username: "ada", Interests: model.NormalizeLabels(interests)}, nil
}

type fakeCatalog struct {
	courses     map[string]*model.Course
	lastList    service.ListCoursesInput
	lastDays    int
	createErr   error
	statsWindow [2]time.Time
}

func (f *fakeCatalog) ListCourses(ctx context.Context, input service.ListCoursesInput) (*service.ListCoursesOutput, error) {
	f.lastList = input
	if input.Sort != "" && input.Sort != "newest" && input.Sort != "popular" {
		return nil, service.ErrInvalidSort
	}
	return &service.ListCoursesOutput{Courses: []*model.Course{f.courses["go-basics"]}, NextCursor: "next", HasMore: true}, nil
}

func (f *fakeCatalog) GetCourse(ctx context.Context, idOrSlug string) (*model.Course, error) {
	if c, ok := f.courses[idOrSlug]; ok {
		return c, nil
	}
	return nil, service.ErrCourseNotFound
}

func (f *fakeCatalog) ListCategories(ctx context.Context) ([]model.Category, error) {
	return []model.Category{{Name: "programming", CourseCount: 1}}, nil
}

func (f *fakeCatalog) TrendingCourses(ctx context.Context, days, limit int) ([]*model.Course, error) {
	f.lastDays = days
	return nil, nil
}

func (f *fakeCatalog) CourseStats(ctx context.Context, idOrSlug string, from, to time.Time) (*model.CourseStatsResponse, error) {
	if _, ok := f.courses[idOrSlug]; !ok {
		return nil, service.ErrCourseNotFound
	}
	f.statsWindow = [2]time.Time{from, to}
	return &model.CourseStatsResponse{CourseID: idOrSlug, Daily: []model.DailyActivity{}}, nil
}

func (f *fakeCatalog) CreateCourse(ctx context.Context, input service.CreateCourseInput) (*model.Course, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return service.NewCourse(input, time.Now())
}

type fakeEnrollments struct {
	enrolled map[string]bool
	progress int
}

func (f *fakeEnrollments) Enroll(ctx context.Context, userID, idOrSlug string) (*model.Enrollment, error) {
	if idOrSlug == "missing" {
		return nil, service.ErrCourseNotFound
	}
	if f.enrolled[idOrSlug] {
		return nil, service.ErrAlreadyEnrolled
	}
	f.enrolled[idOrSlug] = true
	return &model.Enrollment{UserID: userID, CourseID: idOrSlug, Status: model.EnrollmentStatusEnrolled}, nil
}

func (f *fakeEnrollments) Complete(ctx context.Context, userID, idOrSlug string) (*model.Enrollment, error) {
	if !f.enrolled[idOrSlug] {
		return nil, service.ErrNotEnrolled
	}
	now := time.Now()
	return &model.Enrollment{UserID: userID, CourseID: idOrSlug, Status: model.EnrollmentStatusCompleted, Progress: 100, CompletedAt: &now}, nil
}

func (f *fakeEnrollments) UpdateProgress(ctx context.Context, userID, idOrSlug string, progress int) (*model.Enrollment, error) {
	f.progress = progress
	return &model.Enrollment{UserID: userID, CourseID: idOrSlug, Status: model.EnrollmentStatusEnrolled, Progress: progress}, nil
}

func (f *fakeEnrollments) ListEnrollments(ctx context.Context, userID, status string) ([]*model.Enrollment, error) {
	if status != "" && !model.EnrollmentStatus(status).IsValid() {
		return nil, service.ErrInvalidStatus
	}
	return nil, nil
}

type fakeRecommender struct {
	lastLimit int
}

func (f *fakeRecommender) Recommend(ctx context.Context, userID string, limit int) (*service.RecommendationsOutput, error) {
	f.lastLimit = limit
	return &service.RecommendationsOutput{
		Items: []model.Recommendation{
			{Course: model.CourseSummary{ID: "course-2", Title: "Data 101"}, Reason: model.ReasonInterest},
		},
		Limit: 10,
	}, nil
}

type fakeSeeder struct{ calls int }

func (f *fakeSeeder) Seed(ctx context.Context) (*service.SeedResult, error) {
	f.calls++
	return &service.SeedResult{Inserted: 14}, nil
}

type fakeJobs struct{ ran []string }

func (f *fakeJobs) Jobs() []scheduler.JobInfo {
	return []scheduler.JobInfo{{ID: scheduler.JobRefreshPopular, Status: scheduler.JobStatusCompleted}}
}

func (f *fakeJobs) RunNow(id string) error {
	if id != scheduler.JobRefreshPopular {
		return scheduler.ErrJobNotFound
	}
	f.ran = append(f.ran, id)
	return nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type noRevocations struct{}

func (noRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) { return false, nil }

type testAPI struct {
	router      http.Handler
	tokens      *auth.TokenManager
	accounts    *fakeAccounts
	catalog     *fakeCatalog
	enrollments *fakeEnrollments
	recommender *fakeRecommender
	seeder      *fakeSeeder
	jobs        *fakeJobs
	roles       fakeRoles
	recorder    *metrics.PrometheusRecorder
}

// fakeRoles is the stored role per user ID.
type fakeRoles map[string]model.Role

func (f fakeRoles) GetUserRole(ctx context.Context, userID string) (model.Role, error) {
	role, ok := f[userID]
	if !ok {
		return "", repository.ErrUserNotFound
	}
	return role, nil
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	tokens, err := auth.NewTokenManager(strings.Repeat("k", 32), "learnhub", time.Hour)
	require.NoError(t, err)

	api := &testAPI{
		tokens:   tokens,
		accounts: &fakeAccounts{tokens: tokens},
		catalog: &fakeCatalog{courses: map[string]*model.Course{
			"go-basics": {ID: "course-1", Slug: "go-basics", Title: "Go Basics", Category: "programming", Published: true},
		}},
		enrollments: &fakeEnrollments{enrolled: map[string]bool{}},
		recommender: &fakeRecommender{},
		seeder:      &fakeSeeder{},
		roles:       fakeRoles{learner.ID: model.RoleLearner, admin.ID: model.RoleAdmin},
		jobs:        &fakeJobs{},
		recorder:    metrics.NewPrometheus(),
	}

	logger := discardLogger()
	api.router = NewRouter(RouterConfig{
		Logger:             logger,
		Metrics:            api.recorder,
		MetricsHandler:     api.recorder.Handler(),
		IsDevelopment:      true,
		MaxRequestBodySize: 1 << 16,
		Auth:               middleware.AuthConfig{Logger: logger, Tokens: tokens, Revoked: noRevocations{}},
		RateLimit:          middleware.RateLimitConfig{Logger: logger},
		Roles:              api.roles,
		AuthRateLimit:      100,
		AuthRateWindow:     time.Minute,

		Root:            New("test"),
		Health:          NewHealthHandler(fakePinger{}, fakePinger{err: errors.New("connection refused")}),
		Accounts:        NewAuthHandler(api.accounts, api.enrollments, logger),
		Courses:         NewCourseHandler(api.catalog, api.enrollments, logger),
		Recommendations: NewRecommendationHandler(api.recommender, logger),
		Admin:           NewAdminHandler(api.seeder, api.jobs, logger),
	})
	return api
}

func (a *testAPI) tokenFor(t *testing.T, user *model.User) string {
	t.Helper()
	token, _, err := a.tokens.Issue(user)
	require.NoError(t, err)
	return token
}
