package course_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/course"
	"github.com/trezcool/markbook/core/user"
	boltrepos "github.com/trezcool/markbook/storage/database/bolt"
	"github.com/trezcool/markbook/tests"
)

type fixture struct {
	svc        course.Service
	repo       course.Repository
	alice, bob user.User
}

func setup(t *testing.T) fixture {
	db := testutil.OpenBolt(t)
	usrRepo := boltrepos.NewUserRepository(db)
	repo := boltrepos.NewCourseRepository(db)
	return fixture{
		svc:   course.NewService(repo, testutil.NopLogger{}),
		repo:  repo,
		alice: testutil.CreateUser(t, usrRepo, "alice", "s3cret-pwd"),
		bob:   testutil.CreateUser(t, usrRepo, "bob", "s3cret-pwd"),
	}
}

func courseIDs(summaries []course.Summary) []int64 {
	ids := make([]int64, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	return ids
}

func assignmentIDs(assignments []course.Assignment) []int64 {
	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	return ids
}

func TestService_unauthenticated(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx)
	assert.Equal(t, core.ErrUnauthenticated, err)
	_, err = f.svc.Create(ctx, course.NewCourse{Code: "MATH"})
	assert.Equal(t, core.ErrUnauthenticated, err)
	assert.Equal(t, core.ErrUnauthenticated, f.svc.Reorder(ctx, []int64{1}))
	_, err = f.svc.Get(ctx, 1)
	assert.Equal(t, core.ErrUnauthenticated, err)
}

func TestService_currentMarkAndOverview(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	math := testutil.CreateCourse(t, f.svc, f.alice, "MATH", 2)
	phys := testutil.CreateCourse(t, f.svc, f.alice, "PHYS", 1)
	testutil.CreateAssignment(t, f.svc, f.alice, math.ID, "Midterm", 80, 1)
	testutil.CreateAssignment(t, f.svc, f.alice, math.ID, "Final", 70, 2)

	detail, err := f.svc.Get(ctx, math.ID)
	require.NoError(t, err)
	assert.Equal(t, 73.33, detail.CurrentMark)
	assert.Len(t, detail.Assignments, 2)
	assert.Equal(t, "Final", detail.Assignments[0].Title) // newest on top

	// a course without assignments counts with a 0 mark
	overview, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{phys.ID, math.ID}, courseIDs(overview.Courses))
	assert.Equal(t, 0.0, overview.Courses[0].CurrentMark)
	assert.Equal(t, 48.89, overview.CumulativeAverage) // (73.33*2 + 0*1) / 3

	empty, err := f.svc.Overview(testutil.AsUser(f.bob))
	require.NoError(t, err)
	assert.Empty(t, empty.Courses)
	assert.NotNil(t, empty.Courses)
	assert.Equal(t, 0.0, empty.CumulativeAverage)
}

func TestService_zeroWeights(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c := testutil.CreateCourse(t, f.svc, f.alice, "ART", 0)
	testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "Sketch", 90, 0)

	detail, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, detail.CurrentMark)

	overview, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, overview.CumulativeAverage)
}

func TestService_createPlacesOnTop(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c1 := testutil.CreateCourse(t, f.svc, f.alice, "A", 1)
	c2 := testutil.CreateCourse(t, f.svc, f.alice, "B", 1)
	assert.Equal(t, 1, c1.SortOrder)
	assert.Equal(t, 2, c2.SortOrder)

	// bob's scope is independent
	other := testutil.CreateCourse(t, f.svc, f.bob, "C", 1)
	assert.Equal(t, 1, other.SortOrder)

	require.NoError(t, f.svc.Reorder(ctx, []int64{c2.ID, c1.ID}))
	c3 := testutil.CreateCourse(t, f.svc, f.alice, "D", 1)
	assert.Equal(t, 3, c3.SortOrder)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{c3.ID, c2.ID, c1.ID}, courseIDs(list))
}

func TestService_Reorder(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c1 := testutil.CreateCourse(t, f.svc, f.alice, "ONE", 1)
	c2 := testutil.CreateCourse(t, f.svc, f.alice, "TWO", 1)
	c3 := testutil.CreateCourse(t, f.svc, f.alice, "THREE", 1)
	foreign := testutil.CreateCourse(t, f.svc, f.bob, "BOB", 1)

	tests := []struct {
		name string
		ids  []int64
		want []int64
	}{
		{name: "reorder", ids: []int64{c3.ID, c1.ID, c2.ID}, want: []int64{c3.ID, c1.ID, c2.ID}},
		{name: "same order again", ids: []int64{c3.ID, c1.ID, c2.ID}, want: []int64{c3.ID, c1.ID, c2.ID}},
		{name: "foreign and unknown ids skipped", ids: []int64{c2.ID, foreign.ID, 999, c1.ID, c3.ID}, want: []int64{c2.ID, c1.ID, c3.ID}},
		{name: "empty list", ids: []int64{}, want: []int64{c2.ID, c1.ID, c3.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.svc.Reorder(ctx, tt.ids))
			list, err := f.svc.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, courseIDs(list))
		})
	}

	got, err := f.repo.GetCourse(context.Background(), foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.SortOrder, "foreign course left untouched")
}

func TestService_ownership(t *testing.T) {
	f := setup(t)
	bobCtx := testutil.AsUser(f.bob)

	c := testutil.CreateCourse(t, f.svc, f.alice, "MATH", 1)
	a := testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "Quiz", 50, 1)

	missing := func(err error) {
		t.Helper()
		assert.True(t, core.IsNotFound(err), "got %v", err)
	}

	_, err := f.svc.Get(bobCtx, c.ID)
	missing(err)
	_, err = f.svc.Get(bobCtx, 999)
	missing(err)
	_, err = f.svc.Update(bobCtx, c.ID, course.UpdateCourse{Code: "HACKED", Weight: 1})
	missing(err)
	missing(f.svc.Delete(bobCtx, c.ID))
	_, err = f.svc.ListAssignments(bobCtx, c.ID)
	missing(err)
	_, err = f.svc.CreateAssignment(bobCtx, c.ID, course.NewAssignment{Title: "x", Mark: 1, Weight: 1})
	missing(err)
	_, err = f.svc.UpdateAssignment(bobCtx, c.ID, a.ID, course.UpdateAssignment{Title: "x", Mark: 1, Weight: 1})
	missing(err)
	missing(f.svc.DeleteAssignment(bobCtx, c.ID, a.ID))
	missing(f.svc.ReorderAssignments(bobCtx, c.ID, []int64{a.ID}))

	// the same error for foreign and missing entities
	_, errForeign := f.svc.Get(bobCtx, c.ID)
	_, errMissing := f.svc.Get(bobCtx, 12345)
	assert.Equal(t, errMissing, errForeign)

	// an assignment addressed through another course
	other := testutil.CreateCourse(t, f.svc, f.alice, "PHYS", 1)
	missing(f.svc.DeleteAssignment(testutil.AsUser(f.alice), other.ID, a.ID))

	// nothing changed
	detail, err := f.svc.Get(testutil.AsUser(f.alice), c.ID)
	require.NoError(t, err)
	assert.Equal(t, "MATH", detail.Code)
	assert.Len(t, detail.Assignments, 1)
}

func TestService_updates(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c := testutil.CreateCourse(t, f.svc, f.alice, "MATH", 1)
	a := testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "Quiz", 50, 1)

	updated, err := f.svc.Update(ctx, c.ID, course.UpdateCourse{Code: "  MATH 101 ", Weight: 3})
	require.NoError(t, err)
	assert.Equal(t, "MATH 101", updated.Code)
	assert.Equal(t, 3.0, updated.Weight)
	assert.Equal(t, c.SortOrder, updated.SortOrder)

	ua, err := f.svc.UpdateAssignment(ctx, c.ID, a.ID, course.UpdateAssignment{Title: "Quiz 1", Mark: 95, Weight: 2})
	require.NoError(t, err)
	assert.Equal(t, 95.0, ua.Mark)

	detail, err := f.svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 95.0, detail.CurrentMark)

	require.NoError(t, f.svc.DeleteAssignment(ctx, c.ID, a.ID))
	assignments, err := f.svc.ListAssignments(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	assert.NotNil(t, assignments)
}

func TestService_DeleteCascades(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c := testutil.CreateCourse(t, f.svc, f.alice, "MATH", 1)
	keep := testutil.CreateCourse(t, f.svc, f.alice, "PHYS", 1)
	a1 := testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "Quiz", 50, 1)
	testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "Exam", 60, 1)
	kept := testutil.CreateAssignment(t, f.svc, f.alice, keep.ID, "Lab", 70, 1)

	require.NoError(t, f.svc.Delete(ctx, c.ID))

	_, err := f.svc.Get(ctx, c.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = f.repo.GetAssignment(context.Background(), a1.ID)
	assert.Equal(t, course.ErrAssignmentNotFound, err)

	left, err := f.svc.ListAssignments(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{kept.ID}, assignmentIDs(left))
}

func TestService_ReorderAssignments(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c := testutil.CreateCourse(t, f.svc, f.alice, "MATH", 1)
	other := testutil.CreateCourse(t, f.svc, f.alice, "PHYS", 1)
	a1 := testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "A1", 10, 1)
	a2 := testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "A2", 20, 1)
	a3 := testutil.CreateAssignment(t, f.svc, f.alice, c.ID, "A3", 30, 1)
	elsewhere := testutil.CreateAssignment(t, f.svc, f.alice, other.ID, "B1", 40, 1)

	list, err := f.svc.ListAssignments(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a3.ID, a2.ID, a1.ID}, assignmentIDs(list))

	require.NoError(t, f.svc.ReorderAssignments(ctx, c.ID, []int64{a1.ID, elsewhere.ID, a3.ID, a2.ID}))
	list, err = f.svc.ListAssignments(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{a1.ID, a3.ID, a2.ID}, assignmentIDs(list))

	got, err := f.repo.GetAssignment(context.Background(), elsewhere.ID)
	require.NoError(t, err)
	assert.Equal(t, elsewhere.SortOrder, got.SortOrder)
}

// failingRepo fails every sort order update after the first one.
type failingRepo struct {
	course.Repository
	calls int
}

func (r *failingRepo) SetCourseSortOrder(ctx context.Context, userID, id int64, sortOrder int) (bool, error) {
	r.calls++
	if r.calls > 1 {
		return false, errors.New("disk full")
	}
	return r.Repository.SetCourseSortOrder(ctx, userID, id, sortOrder)
}

func TestService_ReorderRollsBack(t *testing.T) {
	f := setup(t)
	ctx := testutil.AsUser(f.alice)

	c1 := testutil.CreateCourse(t, f.svc, f.alice, "ONE", 1)
	c2 := testutil.CreateCourse(t, f.svc, f.alice, "TWO", 1)
	c3 := testutil.CreateCourse(t, f.svc, f.alice, "THREE", 1)

	svc := course.NewService(&failingRepo{Repository: f.repo}, testutil.NopLogger{})
	err := svc.Reorder(ctx, []int64{c1.ID, c2.ID, c3.ID})
	var serr *core.StorageError
	require.True(t, errors.As(err, &serr), "got %v", err)
	assert.True(t, serr.Retryable())

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{c3.ID, c2.ID, c1.ID}, courseIDs(list), "order unchanged")
}
