//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/learnhub/learnhub/internal/model"
	"github.com/learnhub/learnhub/internal/testutil"
	"github.com/learnhub/learnhub/migrations"
)

func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()

	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	unlock, err := testutil.AcquireDBLock(ctx, pool)
	if err != nil {
		pool.Close()
		t.Fatalf("lock: %v", err)
	}

	t.Cleanup(func() {
		_ = unlock()
		pool.Close()
	})

	if err := testutil.ResetSchema(ctx, pool); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, NewFromPool(pool)
}

func TestIntegrationMigrations_UpDown(t *testing.T) {
	ctx, repo := newTestEnv(t)

	migs, err := LoadMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}

	// Schema already exists from ResetSchema; MigrateUp must be idempotent
	// because every statement uses IF NOT EXISTS.
	if _, err := repo.MigrateUp(ctx, migs); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}
	applied, err := repo.MigrateUp(ctx, migs)
	if err != nil {
		t.Fatalf("MigrateUp (second): %v", err)
	}
	if applied != 0 {
		t.Errorf("second MigrateUp applied %d, want 0", applied)
	}

	reverted, err := repo.MigrateDown(ctx, migs, 1)
	if err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if reverted != 1 {
		t.Errorf("MigrateDown reverted %d, want 1", reverted)
	}

	applied, err = repo.MigrateUp(ctx, migs)
	if err != nil {
		t.Fatalf("MigrateUp (after down): %v", err)
	}
	if applied != 1 {
		t.Errorf("MigrateUp after down applied %d, want 1", applied)
	}
}

func TestIntegrationUser_CreateAndLookup(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := testutil.NewTestUser(t, "alice")
	user.Interests = []string{"go", "data"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	byLogin, err := repo.GetUserByLogin(ctx, "ALICE@example.com")
	if err != nil {
		t.Fatalf("GetUserByLogin(email): %v", err)
	}
	if byLogin.ID != user.ID {
		t.Errorf("ID = %s, want %s", byLogin.ID, user.ID)
	}
	if len(byLogin.Interests) != 2 || byLogin.Interests[0] != "go" {
		t.Errorf("Interests = %v", byLogin.Interests)
	}

	if _, err := repo.GetUserByLogin(ctx, "Alice"); err != nil {
		t.Fatalf("GetUserByLogin(username): %v", err)
	}

	dupName := testutil.NewTestUser(t, "alice")
	dupName.Email = "other@example.com"
	if err := repo.CreateUser(ctx, dupName); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got %v", err)
	}

	dupEmail := testutil.NewTestUser(t, "bob")
	dupEmail.Email = "Alice@Example.com"
	if err := repo.CreateUser(ctx, dupEmail); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}

	if err := repo.SetUserRole(ctx, "alice", model.RoleAdmin); err != nil {
		t.Fatalf("SetUserRole: %v", err)
	}
	got, _ := repo.GetUserByID(ctx, user.ID)
	if got.Role != model.RoleAdmin {
		t.Errorf("Role = %s, want admin", got.Role)
	}

	if role, err := repo.GetUserRole(ctx, user.ID); err != nil || role != model.RoleAdmin {
		t.Errorf("GetUserRole = %s, %v; want admin", role, err)
	}
	if _, err := repo.GetUserRole(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetUserRole: expected ErrUserNotFound, got %v", err)
	}

	if err := repo.UpdatePasswordHash(ctx, user.ID, "$argon2id$v=19$new"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ = repo.GetUserByID(ctx, user.ID)
	if got.PasswordHash != "$argon2id$v=19$new" {
		t.Errorf("PasswordHash = %q", got.PasswordHash)
	}

	if _, err := repo.GetUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationEnroll_TransactionalCount(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := testutil.NewTestUser(t, "learner")
	course := testutil.NewTestCourse(t, "Intro to Go", "programming", "go")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := repo.CreateCourse(ctx, course); err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}

	if _, err := repo.Enroll(ctx, user.ID, course.ID); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if _, err := repo.Enroll(ctx, user.ID, course.ID); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Fatalf("expected ErrAlreadyEnrolled, got %v", err)
	}
	if _, err := repo.Enroll(ctx, user.ID, "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}

	got, err := repo.GetCourse(ctx, course.Slug)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if got.EnrollmentCount != 1 {
		t.Errorf("EnrollmentCount = %d, want 1", got.EnrollmentCount)
	}

	e, changed, err := repo.CompleteEnrollment(ctx, user.ID, course.ID)
	if err != nil || !changed {
		t.Fatalf("CompleteEnrollment: changed=%v err=%v", changed, err)
	}
	if e.Progress != 100 || e.CompletedAt == nil {
		t.Errorf("unexpected completed enrollment: %+v", e)
	}

	_, changed, err = repo.CompleteEnrollment(ctx, user.ID, course.ID)
	if err != nil || changed {
		t.Errorf("second CompleteEnrollment: changed=%v err=%v", changed, err)
	}

	list, err := repo.ListEnrollments(ctx, user.ID, model.EnrollmentStatusCompleted)
	if err != nil {
		t.Fatalf("ListEnrollments: %v", err)
	}
	if len(list) != 1 || list[0].Course == nil || list[0].Course.Title != "Intro to Go" {
		t.Errorf("unexpected enrollments: %+v", list)
	}
}

func TestIntegrationRecommendationQueries(t *testing.T) {
	ctx, repo := newTestEnv(t)

	goCourse := testutil.NewTestCourse(t, "Go Basics", "programming", "go")
	goCourse.EnrollmentCount = 5
	sqlCourse := testutil.NewTestCourse(t, "SQL Basics", "data", "sql")
	sqlCourse.EnrollmentCount = 9
	design := testutil.NewTestCourse(t, "Design", "design")
	hidden := testutil.NewTestCourse(t, "Draft", "programming", "go")
	hidden.Published = false

	for _, c := range []*model.Course{goCourse, sqlCourse, design, hidden} {
		if err := repo.CreateCourse(ctx, c); err != nil {
			t.Fatalf("CreateCourse: %v", err)
		}
	}

	matched, err := repo.CoursesMatchingLabels(ctx, []string{"go", "data"}, nil, 10)
	if err != nil {
		t.Fatalf("CoursesMatchingLabels: %v", err)
	}
	if len(matched) != 2 || matched[0].ID != sqlCourse.ID {
		t.Errorf("unexpected interest candidates: %v", ids(matched))
	}

	inCat, err := repo.CoursesInCategories(ctx, []string{"programming"}, []string{goCourse.ID}, 10)
	if err != nil {
		t.Fatalf("CoursesInCategories: %v", err)
	}
	if len(inCat) != 0 {
		t.Errorf("expected no category candidates, got %v", ids(inCat))
	}

	popular, err := repo.PopularCourses(ctx, []string{sqlCourse.ID}, 2)
	if err != nil {
		t.Fatalf("PopularCourses: %v", err)
	}
	if len(popular) != 2 || popular[0].ID != goCourse.ID {
		t.Errorf("unexpected popular candidates: %v", ids(popular))
	}

	byIDs, err := repo.GetCoursesByIDs(ctx, []string{design.ID, hidden.ID, goCourse.ID})
	if err != nil {
		t.Fatalf("GetCoursesByIDs: %v", err)
	}
	if len(byIDs) != 2 || byIDs[0].ID != design.ID || byIDs[1].ID != goCourse.ID {
		t.Errorf("unexpected ordered courses: %v", ids(byIDs))
	}
}

func TestIntegrationSeedCourses_Idempotent(t *testing.T) {
	ctx, repo := newTestEnv(t)

	courses := []*model.Course{
		testutil.NewTestCourse(t, "One", "a"),
		testutil.NewTestCourse(t, "Two", "b"),
	}

	inserted, err := repo.SeedCourses(ctx, courses)
	if err != nil || inserted != 2 {
		t.Fatalf("first seed: inserted=%d err=%v", inserted, err)
	}

	inserted, err = repo.SeedCourses(ctx, courses)
	if err != nil || inserted != 0 {
		t.Fatalf("second seed: inserted=%d err=%v", inserted, err)
	}

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) != 2 || cats[0].Name != "a" || cats[0].CourseCount != 1 {
		t.Errorf("unexpected categories: %+v", cats)
	}
}

func TestIntegrationListCourses_Pagination(t *testing.T) {
	ctx, repo := newTestEnv(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		c := testutil.NewTestCourse(t, "Course", "programming")
		c.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.CreateCourse(ctx, c); err != nil {
			t.Fatalf("CreateCourse: %v", err)
		}
	}

	page1, cursor, err := repo.ListCourses(ctx, CourseFilter{Category: "Programming"}, "", 3)
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(page1) != 3 || cursor == "" {
		t.Fatalf("page1 len=%d cursor=%q", len(page1), cursor)
	}

	page2, cursor, err := repo.ListCourses(ctx, CourseFilter{Category: "programming"}, cursor, 3)
	if err != nil {
		t.Fatalf("ListCourses page2: %v", err)
	}
	if len(page2) != 2 || cursor != "" {
		t.Errorf("page2 len=%d cursor=%q", len(page2), cursor)
	}

	if _, _, err := repo.ListCourses(ctx, CourseFilter{}, "garbage", 3); !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func TestIntegrationEnrollmentEvents_DailyStats(t *testing.T) {
	ctx, repo := newTestEnv(t)
	events := NewEnrollmentEventRepository(repo)

	now := time.Now().UTC()
	batch := []*model.EnrollmentEvent{
		{ID: testutil.UniqueID("e"), EventID: "1-0", Type: model.EventEnrolled, UserID: "u1", CourseID: "c1", OccurredAt: now},
		{ID: testutil.UniqueID("e"), EventID: "2-0", Type: model.EventEnrolled, UserID: "u2", CourseID: "c1", OccurredAt: now},
		{ID: testutil.UniqueID("e"), EventID: "3-0", Type: model.EventCompleted, UserID: "u1", CourseID: "c1", OccurredAt: now},
	}

	for i := 0; i < 2; i++ { // replay must not double count
		if err := events.BulkInsert(ctx, batch); err != nil {
			t.Fatalf("BulkInsert: %v", err)
		}
		if err := events.UpdateDailyStats(ctx, batch); err != nil {
			t.Fatalf("UpdateDailyStats: %v", err)
		}
	}

	day := now.Truncate(24 * time.Hour)
	stats, err := events.GetDailyStats(ctx, "c1", day, day)
	if err != nil {
		t.Fatalf("GetDailyStats: %v", err)
	}
	if len(stats) != 1 || stats[0].Enrollments != 2 || stats[0].Completions != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	trending, err := events.TrendingCourseIDs(ctx, day.AddDate(0, 0, -7), 10)
	if err != nil {
		t.Fatalf("TrendingCourseIDs: %v", err)
	}
	if len(trending) != 1 || trending[0] != "c1" {
		t.Errorf("unexpected trending: %v", trending)
	}
}

func ids(courses []*model.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.ID
	}
	return out
}
