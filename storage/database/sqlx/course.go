package sqlxrepos

import (
	"context"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/markbook/core/course"
)

const (
	courseColumns     = "id, user_id, code, weight, sort_order, created_at, updated_at"
	assignmentColumns = "id, course_id, title, mark, weight, sort_order, created_at, updated_at"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return repo.db.RunInTx(ctx, fn)
}

// Courses

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.conn(ctx).GetContext(ctx, &c.ID,
		`INSERT INTO courses (user_id, code, weight, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		c.UserID, c.Code, c.Weight, c.SortOrder, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var c course.Course
	err := repo.db.conn(ctx).GetContext(ctx, &c, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course by ID")
	}
	return c, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, userID int64) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.db.conn(ctx).SelectContext(ctx, &courses,
		`SELECT `+courseColumns+` FROM courses WHERE user_id = $1 ORDER BY sort_order DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo courseRepository) MaxCourseSortOrder(ctx context.Context, userID int64) (int, error) {
	var max int
	err := repo.db.conn(ctx).GetContext(ctx, &max,
		`SELECT COALESCE(MAX(sort_order), 0) FROM courses WHERE user_id = $1`, userID,
	)
	return max, errors.Wrap(err, "finding max course sort order")
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.conn(ctx).GetContext(ctx, &c,
		`UPDATE courses SET code = $1, weight = $2, updated_at = $3 WHERE id = $4 RETURNING `+courseColumns,
		c.Code, c.Weight, c.UpdatedAt.UTC(), c.ID,
	)
	if err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "updating course")
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int64) error {
	res, err := repo.db.conn(ctx).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrNotFound
	}
	return nil
}

// LockCourses locks the owner's row until the transaction ends.
// FOR NO KEY UPDATE does not block inserts referencing the row.
func (repo courseRepository) LockCourses(ctx context.Context, userID int64) error {
	_, err := repo.db.conn(ctx).ExecContext(ctx, `SELECT id FROM users WHERE id = $1 FOR NO KEY UPDATE`, userID)
	return errors.Wrap(err, "locking courses")
}

func (repo courseRepository) SetCourseSortOrder(ctx context.Context, userID, id int64, sortOrder int) (bool, error) {
	res, err := repo.db.conn(ctx).ExecContext(ctx,
		`UPDATE courses SET sort_order = $1 WHERE id = $2 AND user_id = $3`, sortOrder, id, userID,
	)
	if err != nil {
		return false, errors.Wrap(err, "updating course sort order")
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

// Assignments

func (repo courseRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	err := repo.db.conn(ctx).GetContext(ctx, &a.ID,
		`INSERT INTO assignments (course_id, title, mark, weight, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		a.CourseID, a.Title, a.Mark, a.Weight, a.SortOrder, a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo courseRepository) GetAssignment(ctx context.Context, id int64) (course.Assignment, error) {
	var a course.Assignment
	err := repo.db.conn(ctx).GetContext(ctx, &a, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	if err != nil {
		return course.Assignment{}, trapNoRowsErr(err, course.ErrAssignmentNotFound, "finding assignment by ID")
	}
	return a, nil
}

func (repo courseRepository) QueryAssignments(ctx context.Context, courseIDs ...int64) ([]course.Assignment, error) {
	assignments := make([]course.Assignment, 0)
	if len(courseIDs) == 0 {
		return assignments, nil
	}
	err := repo.db.conn(ctx).SelectContext(ctx, &assignments,
		`SELECT `+assignmentColumns+` FROM assignments WHERE course_id = ANY($1) ORDER BY sort_order DESC, id DESC`,
		pq.Array(courseIDs),
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return assignments, nil
}

func (repo courseRepository) MaxAssignmentSortOrder(ctx context.Context, courseID int64) (int, error) {
	var max int
	err := repo.db.conn(ctx).GetContext(ctx, &max,
		`SELECT COALESCE(MAX(sort_order), 0) FROM assignments WHERE course_id = $1`, courseID,
	)
	return max, errors.Wrap(err, "finding max assignment sort order")
}

func (repo courseRepository) UpdateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	err := repo.db.conn(ctx).GetContext(ctx, &a,
		`UPDATE assignments SET title = $1, mark = $2, weight = $3, updated_at = $4 WHERE id = $5 RETURNING `+assignmentColumns,
		a.Title, a.Mark, a.Weight, a.UpdatedAt.UTC(), a.ID,
	)
	if err != nil {
		return course.Assignment{}, trapNoRowsErr(err, course.ErrAssignmentNotFound, "updating assignment")
	}
	return a, nil
}

func (repo courseRepository) DeleteAssignment(ctx context.Context, id int64) error {
	res, err := repo.db.conn(ctx).ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return course.ErrAssignmentNotFound
	}
	return nil
}

func (repo courseRepository) DeleteAssignmentsByCourse(ctx context.Context, courseID int64) (int, error) {
	res, err := repo.db.conn(ctx).ExecContext(ctx, `DELETE FROM assignments WHERE course_id = $1`, courseID)
	if err != nil {
		return 0, errors.Wrap(err, "deleting course assignments")
	}
	return rowsAffected(res)
}

// LockAssignments locks the course row; see LockCourses.
func (repo courseRepository) LockAssignments(ctx context.Context, courseID int64) error {
	_, err := repo.db.conn(ctx).ExecContext(ctx, `SELECT id FROM courses WHERE id = $1 FOR NO KEY UPDATE`, courseID)
	return errors.Wrap(err, "locking assignments")
}

func (repo courseRepository) SetAssignmentSortOrder(ctx context.Context, courseID, id int64, sortOrder int) (bool, error) {
	res, err := repo.db.conn(ctx).ExecContext(ctx,
		`UPDATE assignments SET sort_order = $1 WHERE id = $2 AND course_id = $3`, sortOrder, id, courseID,
	)
	if err != nil {
		return false, errors.Wrap(err, "updating assignment sort order")
	}
	n, err := rowsAffected(res)
	return n > 0, err
}
