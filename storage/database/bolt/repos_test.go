package boltrepos_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/course"
	"github.com/trezcool/markbook/core/user"
	boltrepos "github.com/trezcool/markbook/storage/database/bolt"
	"github.com/trezcool/markbook/tests"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := boltrepos.NewUserRepository(testutil.OpenBolt(t))

	usr := testutil.CreateUser(t, repo, "alice", "s3cret-pwd")
	assert.NotZero(t, usr.ID)

	_, err := repo.CreateUser(ctx, user.User{Username: "alice"})
	assert.Equal(t, user.ErrUsernameExists, err)

	got, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NoError(t, got.CheckPassword("s3cret-pwd"))

	_, err = repo.GetUserByUsername(ctx, "bob")
	assert.Equal(t, user.ErrNotFound, err)
	_, err = repo.GetUserByID(ctx, usr.ID+100)
	assert.Equal(t, user.ErrNotFound, err)

	require.NoError(t, got.SetPassword("new-pwd-123"))
	got.UpdatedAt = time.Now().UTC()
	_, err = repo.UpdateUser(ctx, got)
	require.NoError(t, err)

	got, err = repo.GetUserByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("new-pwd-123"))
	assert.True(t, got.CreatedAt.Equal(usr.CreatedAt))
}

func TestCourseRepository_ordering(t *testing.T) {
	ctx := context.Background()
	repo := boltrepos.NewCourseRepository(testutil.OpenBolt(t))

	mk := func(userID int64, code string, sortOrder int) course.Course {
		c, err := repo.CreateCourse(ctx, course.Course{UserID: userID, Code: code, SortOrder: sortOrder})
		require.NoError(t, err)
		return c
	}
	a := mk(1, "A", 1)
	b := mk(1, "B", 2)
	mk(1, "C", 2) // ties with B: higher id first
	mk(2, "X", 9)

	courses, err := repo.QueryCourses(ctx, 1)
	require.NoError(t, err)
	codes := make([]string, 0, len(courses))
	for _, c := range courses {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"C", "B", "A"}, codes)

	max, err := repo.MaxCourseSortOrder(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, max)
	max, err = repo.MaxCourseSortOrder(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	applied, err := repo.SetCourseSortOrder(ctx, 1, a.ID, 10)
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = repo.SetCourseSortOrder(ctx, 2, b.ID, 10) // foreign
	require.NoError(t, err)
	assert.False(t, applied)
	applied, err = repo.SetCourseSortOrder(ctx, 1, 999, 10) // missing
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetCourse(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.SortOrder)
	got, err = repo.GetCourse(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SortOrder)
}

func TestCourseRepository_assignments(t *testing.T) {
	ctx := context.Background()
	repo := boltrepos.NewCourseRepository(testutil.OpenBolt(t))

	c1, err := repo.CreateCourse(ctx, course.Course{UserID: 1, Code: "MATH"})
	require.NoError(t, err)
	c2, err := repo.CreateCourse(ctx, course.Course{UserID: 1, Code: "PHYS"})
	require.NoError(t, err)

	_, err = repo.CreateAssignment(ctx, course.Assignment{CourseID: 999, Title: "orphan"})
	assert.Equal(t, course.ErrNotFound, err)

	for i, cid := range []int64{c1.ID, c1.ID, c2.ID} {
		_, err = repo.CreateAssignment(ctx, course.Assignment{CourseID: cid, Title: "hw", SortOrder: i + 1})
		require.NoError(t, err)
	}

	all, err := repo.QueryAssignments(ctx, c1.ID, c2.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	none, err := repo.QueryAssignments(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)

	n, err := repo.DeleteAssignmentsByCourse(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := repo.QueryAssignments(ctx, c1.ID, c2.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, c2.ID, left[0].CourseID)

	_, err = repo.GetAssignment(ctx, 999)
	assert.Equal(t, course.ErrAssignmentNotFound, err)
	assert.Equal(t, course.ErrAssignmentNotFound, repo.DeleteAssignment(ctx, 999))
	assert.Equal(t, course.ErrNotFound, repo.DeleteCourse(ctx, 999))
}

func TestDB_RunInTx(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenBolt(t)
	repo := boltrepos.NewCourseRepository(db)

	boom := errors.New("boom")
	err := db.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := repo.CreateCourse(ctx, course.Course{UserID: 1, Code: "GONE"}); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return db.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := repo.CreateCourse(ctx, course.Course{UserID: 1, Code: "GONE TOO"}); err != nil {
				return err
			}
			return boom
		})
	})
	assert.Equal(t, boom, err)

	courses, err := repo.QueryCourses(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, courses)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.CreateCourse(cctx, course.Course{UserID: 1, Code: "LATE"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDB_closed(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenBolt(t)
	usrRepo := boltrepos.NewUserRepository(db)
	courseRepo := boltrepos.NewCourseRepository(db)
	require.NoError(t, db.Close())

	_, err := usrRepo.GetUserByID(ctx, 1)
	assert.True(t, core.IsShutdown(err), "got %v", err)

	_, err = courseRepo.CreateCourse(ctx, course.Course{UserID: 1, Code: "LATE"})
	assert.True(t, core.IsShutdown(err), "got %v", err)

	err = db.RunInTx(ctx, func(ctx context.Context) error { return nil })
	assert.True(t, core.IsShutdown(err), "got %v", err)
}
