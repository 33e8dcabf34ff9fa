package course

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/ordering"
)

var (
	// errors
	ErrNotFound           = core.NewNotFoundError("course not found")
	ErrAssignmentNotFound = core.NewNotFoundError("assignment not found")
)

type (
	Repository interface {
		core.Transactor

		CreateCourse(ctx context.Context, c Course) (Course, error)
		// GetCourse returns the course with the given ID whoever owns it, or ErrNotFound.
		GetCourse(ctx context.Context, id int64) (Course, error)
		// QueryCourses returns the user's courses ordered by (sort order DESC, id DESC).
		QueryCourses(ctx context.Context, userID int64) ([]Course, error)
		MaxCourseSortOrder(ctx context.Context, userID int64) (int, error)
		UpdateCourse(ctx context.Context, c Course) (Course, error)
		DeleteCourse(ctx context.Context, id int64) error
		// LockCourses blocks concurrent reorders of the user's courses until the transaction ends.
		LockCourses(ctx context.Context, userID int64) error
		// SetCourseSortOrder only touches the course if it belongs to userID.
		SetCourseSortOrder(ctx context.Context, userID, id int64, sortOrder int) (bool, error)

		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id int64) (Assignment, error)
		// QueryAssignments returns the assignments of the given courses
		// ordered by (sort order DESC, id DESC).
		QueryAssignments(ctx context.Context, courseIDs ...int64) ([]Assignment, error)
		MaxAssignmentSortOrder(ctx context.Context, courseID int64) (int, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int64) error
		DeleteAssignmentsByCourse(ctx context.Context, courseID int64) (int, error)
		// LockAssignments blocks concurrent reorders of the course's assignments until the transaction ends.
		LockAssignments(ctx context.Context, courseID int64) error
		// SetAssignmentSortOrder only touches the assignment if it belongs to courseID.
		SetAssignmentSortOrder(ctx context.Context, courseID, id int64, sortOrder int) (bool, error)
	}

	// Service exposes the courses and assignments of the user carried by the context.
	Service interface {
		Get(ctx context.Context, id int64) (Detail, error)
		List(ctx context.Context) ([]Summary, error)
		Overview(ctx context.Context) (Overview, error)
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Update(ctx context.Context, id int64, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id int64) error
		Reorder(ctx context.Context, ids []int64) error

		ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error)
		CreateAssignment(ctx context.Context, courseID int64, na NewAssignment) (Assignment, error)
		UpdateAssignment(ctx context.Context, courseID, id int64, ua UpdateAssignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, courseID, id int64) error
		ReorderAssignments(ctx context.Context, courseID int64, ids []int64) error
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger) Service {
	return &service{repo: repo, logger: logger}
}

// ownedCourse returns the course if it belongs to the context user.
// Missing and foreign courses both give ErrNotFound.
func (svc *service) ownedCourse(ctx context.Context, id int64) (Course, error) {
	userID, err := core.UserIDFrom(ctx)
	if err != nil {
		return Course{}, err
	}
	c, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Course{}, ErrNotFound
		}
		return Course{}, core.NewStorageError("finding course", err)
	}
	if !c.BelongsToUser(userID) {
		return Course{}, ErrNotFound
	}
	return c, nil
}

// ownedAssignment returns the assignment if it belongs to courseID and the course to the context user.
func (svc *service) ownedAssignment(ctx context.Context, courseID, id int64) (Assignment, error) {
	if _, err := svc.ownedCourse(ctx, courseID); err != nil {
		return Assignment{}, err
	}
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrAssignmentNotFound {
			return Assignment{}, ErrAssignmentNotFound
		}
		return Assignment{}, core.NewStorageError("finding assignment", err)
	}
	if a.CourseID != courseID {
		return Assignment{}, ErrAssignmentNotFound
	}
	return a, nil
}

func (svc *service) Get(ctx context.Context, id int64) (Detail, error) {
	c, err := svc.ownedCourse(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	assignments, err := svc.repo.QueryAssignments(ctx, c.ID)
	if err != nil {
		return Detail{}, core.NewStorageError("querying assignments", err)
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	return Detail{Summary: summarize(c, assignments), Assignments: assignments}, nil
}

func (svc *service) List(ctx context.Context) ([]Summary, error) {
	userID, err := core.UserIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := svc.repo.QueryCourses(ctx, userID)
	if err != nil {
		return nil, core.NewStorageError("querying courses", err)
	}
	summaries := make([]Summary, 0, len(courses))
	if len(courses) == 0 {
		return summaries, nil
	}

	ids := make([]int64, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	assignments, err := svc.repo.QueryAssignments(ctx, ids...)
	if err != nil {
		return nil, core.NewStorageError("querying assignments", err)
	}
	byCourse := make(map[int64][]Assignment, len(courses))
	for _, a := range assignments {
		byCourse[a.CourseID] = append(byCourse[a.CourseID], a)
	}

	for _, c := range courses {
		summaries = append(summaries, summarize(c, byCourse[c.ID]))
	}
	return summaries, nil
}

func (svc *service) Overview(ctx context.Context) (Overview, error) {
	courses, err := svc.List(ctx)
	if err != nil {
		return Overview{}, err
	}
	return Overview{Courses: courses, CumulativeAverage: CumulativeAverage(courses)}, nil
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	userID, err := core.UserIDFrom(ctx)
	if err != nil {
		return Course{}, err
	}

	var c Course
	err = svc.repo.RunInTx(ctx, func(ctx context.Context) error {
		max, err := svc.repo.MaxCourseSortOrder(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "finding max sort order")
		}
		now := time.Now().UTC()
		c, err = svc.repo.CreateCourse(ctx, Course{
			UserID:    userID,
			Code:      core.CleanString(nc.Code),
			Weight:    nc.Weight,
			SortOrder: ordering.Next(max),
			CreatedAt: now,
			UpdatedAt: now,
		})
		return errors.Wrap(err, "inserting course")
	})
	if err != nil {
		return Course{}, core.NewStorageError("creating course", err)
	}
	return c, nil
}

func (svc *service) Update(ctx context.Context, id int64, uc UpdateCourse) (Course, error) {
	c, err := svc.ownedCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	c.Code = core.CleanString(uc.Code)
	c.Weight = uc.Weight
	c.UpdatedAt = time.Now().UTC()
	if c, err = svc.repo.UpdateCourse(ctx, c); err != nil {
		return Course{}, core.NewStorageError("updating course", err)
	}
	return c, nil
}

// Delete removes the course and all of its assignments in a single transaction.
func (svc *service) Delete(ctx context.Context, id int64) error {
	c, err := svc.ownedCourse(ctx, id)
	if err != nil {
		return err
	}
	err = svc.repo.RunInTx(ctx, func(ctx context.Context) error {
		n, err := svc.repo.DeleteAssignmentsByCourse(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "deleting assignments")
		}
		if err = svc.repo.DeleteCourse(ctx, c.ID); err != nil {
			return errors.Wrap(err, "deleting course")
		}
		svc.logger.Debug(fmt.Sprintf("course %d deleted with %d assignments", c.ID, n))
		return nil
	})
	return core.NewStorageError("deleting course", err)
}

// Reorder persists ids as the display order of the context user's courses.
func (svc *service) Reorder(ctx context.Context, ids []int64) error {
	userID, err := core.UserIDFrom(ctx)
	if err != nil {
		return err
	}
	coll := collection{lock: svc.repo.LockCourses, set: svc.repo.SetCourseSortOrder}
	n, err := ordering.Apply(ctx, svc.repo, coll, userID, ids)
	if err != nil {
		svc.logger.Warn("reordering courses rolled back", err)
		return err
	}
	if skipped := len(ids) - n; skipped > 0 {
		svc.logger.Debug(fmt.Sprintf("reordering courses of user %d: %d ids skipped", userID, skipped))
	}
	return nil
}

func (svc *service) ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	c, err := svc.ownedCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	assignments, err := svc.repo.QueryAssignments(ctx, c.ID)
	if err != nil {
		return nil, core.NewStorageError("querying assignments", err)
	}
	if assignments == nil {
		assignments = []Assignment{}
	}
	return assignments, nil
}

func (svc *service) CreateAssignment(ctx context.Context, courseID int64, na NewAssignment) (Assignment, error) {
	c, err := svc.ownedCourse(ctx, courseID)
	if err != nil {
		return Assignment{}, err
	}

	var a Assignment
	err = svc.repo.RunInTx(ctx, func(ctx context.Context) error {
		max, err := svc.repo.MaxAssignmentSortOrder(ctx, c.ID)
		if err != nil {
			return errors.Wrap(err, "finding max sort order")
		}
		now := time.Now().UTC()
		a, err = svc.repo.CreateAssignment(ctx, Assignment{
			CourseID:  c.ID,
			Title:     core.CleanString(na.Title),
			Mark:      na.Mark,
			Weight:    na.Weight,
			SortOrder: ordering.Next(max),
			CreatedAt: now,
			UpdatedAt: now,
		})
		return errors.Wrap(err, "inserting assignment")
	})
	if err != nil {
		return Assignment{}, core.NewStorageError("creating assignment", err)
	}
	return a, nil
}

func (svc *service) UpdateAssignment(ctx context.Context, courseID, id int64, ua UpdateAssignment) (Assignment, error) {
	a, err := svc.ownedAssignment(ctx, courseID, id)
	if err != nil {
		return Assignment{}, err
	}
	a.Title = core.CleanString(ua.Title)
	a.Mark = ua.Mark
	a.Weight = ua.Weight
	a.UpdatedAt = time.Now().UTC()
	if a, err = svc.repo.UpdateAssignment(ctx, a); err != nil {
		return Assignment{}, core.NewStorageError("updating assignment", err)
	}
	return a, nil
}

func (svc *service) DeleteAssignment(ctx context.Context, courseID, id int64) error {
	a, err := svc.ownedAssignment(ctx, courseID, id)
	if err != nil {
		return err
	}
	return core.NewStorageError("deleting assignment", svc.repo.DeleteAssignment(ctx, a.ID))
}

// ReorderAssignments persists ids as the display order of the course's assignments.
func (svc *service) ReorderAssignments(ctx context.Context, courseID int64, ids []int64) error {
	c, err := svc.ownedCourse(ctx, courseID)
	if err != nil {
		return err
	}
	coll := collection{lock: svc.repo.LockAssignments, set: svc.repo.SetAssignmentSortOrder}
	n, err := ordering.Apply(ctx, svc.repo, coll, c.ID, ids)
	if err != nil {
		svc.logger.Warn("reordering assignments rolled back", err)
		return err
	}
	if skipped := len(ids) - n; skipped > 0 {
		svc.logger.Debug(fmt.Sprintf("reordering assignments of course %d: %d ids skipped", c.ID, skipped))
	}
	return nil
}

// collection adapts a pair of repository methods to ordering.Collection.
type collection struct {
	lock func(ctx context.Context, scopeID int64) error
	set  func(ctx context.Context, scopeID, id int64, sortOrder int) (bool, error)
}

func (c collection) LockScope(ctx context.Context, scopeID int64) error {
	return c.lock(ctx, scopeID)
}

func (c collection) SetSortOrder(ctx context.Context, scopeID, id int64, sortOrder int) (bool, error) {
	return c.set(ctx, scopeID, id, sortOrder)
}
