package boltrepos

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/markbook/core/course"
)

type courseRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Code      string    `json:"code"`
	Weight    float64   `json:"weight"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type assignmentRecord struct {
	ID        int64     `json:"id"`
	CourseID  int64     `json:"course_id"`
	Title     string    `json:"title"`
	Mark      float64   `json:"mark"`
	Weight    float64   `json:"weight"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCourseRecord(c course.Course) courseRecord {
	return courseRecord{
		ID:        c.ID,
		UserID:    c.UserID,
		Code:      c.Code,
		Weight:    c.Weight,
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func (r courseRecord) course() course.Course {
	return course.Course{
		ID:        r.ID,
		UserID:    r.UserID,
		Code:      r.Code,
		Weight:    r.Weight,
		SortOrder: r.SortOrder,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newAssignmentRecord(a course.Assignment) assignmentRecord {
	return assignmentRecord{
		ID:        a.ID,
		CourseID:  a.CourseID,
		Title:     a.Title,
		Mark:      a.Mark,
		Weight:    a.Weight,
		SortOrder: a.SortOrder,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (r assignmentRecord) assignment() course.Assignment {
	return course.Assignment{
		ID:        r.ID,
		CourseID:  r.CourseID,
		Title:     r.Title,
		Mark:      r.Mark,
		Weight:    r.Weight,
		SortOrder: r.SortOrder,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

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
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(coursesBucket)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		c.ID = id
		return put(b, id, newCourseRecord(c))
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo courseRepository) getCourse(tx *bbolt.Tx, id int64) (courseRecord, error) {
	var rec courseRecord
	found, err := get(tx.Bucket(coursesBucket), id, &rec)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, course.ErrNotFound
	}
	return rec, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id int64) (course.Course, error) {
	var rec courseRecord
	err := repo.db.view(ctx, func(tx *bbolt.Tx) (err error) {
		rec, err = repo.getCourse(tx, id)
		return err
	})
	if err != nil {
		return course.Course{}, err
	}
	return rec.course(), nil
}

// eachCourse decodes every course of the user and calls fn with it.
func (repo courseRepository) eachCourse(tx *bbolt.Tx, userID int64, fn func(r courseRecord) error) error {
	return tx.Bucket(coursesBucket).ForEach(func(_, v []byte) error {
		var rec courseRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return errors.Wrap(err, "decoding course")
		}
		if rec.UserID != userID {
			return nil
		}
		return fn(rec)
	})
}

func (repo courseRepository) QueryCourses(ctx context.Context, userID int64) ([]course.Course, error) {
	courses := make([]course.Course, 0)
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		return repo.eachCourse(tx, userID, func(r courseRecord) error {
			courses = append(courses, r.course())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(courses, func(i, j int) bool {
		if courses[i].SortOrder != courses[j].SortOrder {
			return courses[i].SortOrder > courses[j].SortOrder
		}
		return courses[i].ID > courses[j].ID
	})
	return courses, nil
}

func (repo courseRepository) MaxCourseSortOrder(ctx context.Context, userID int64) (int, error) {
	var max int
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		return repo.eachCourse(tx, userID, func(r courseRecord) error {
			if r.SortOrder > max {
				max = r.SortOrder
			}
			return nil
		})
	})
	return max, err
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course) (course.Course, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		orig, err := repo.getCourse(tx, c.ID)
		if err != nil {
			return err
		}
		c.UserID = orig.UserID
		c.SortOrder = orig.SortOrder
		c.CreatedAt = orig.CreatedAt
		return put(tx.Bucket(coursesBucket), c.ID, newCourseRecord(c))
	})
	if err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int64) error {
	return repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := repo.getCourse(tx, id); err != nil {
			return err
		}
		return tx.Bucket(coursesBucket).Delete(itob(id))
	})
}

// LockCourses is a no-op: bolt runs one read-write transaction at a time.
func (repo courseRepository) LockCourses(context.Context, int64) error {
	return nil
}

func (repo courseRepository) SetCourseSortOrder(ctx context.Context, userID, id int64, sortOrder int) (bool, error) {
	var applied bool
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		rec, err := repo.getCourse(tx, id)
		if err != nil {
			if err == course.ErrNotFound {
				return nil
			}
			return err
		}
		if rec.UserID != userID {
			return nil
		}
		rec.SortOrder = sortOrder
		applied = true
		return put(tx.Bucket(coursesBucket), id, rec)
	})
	return applied, err
}

// Assignments

func (repo courseRepository) CreateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := repo.getCourse(tx, a.CourseID); err != nil {
			return err
		}
		b := tx.Bucket(assignmentsBucket)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		a.ID = id
		return put(b, id, newAssignmentRecord(a))
	})
	if err != nil {
		return course.Assignment{}, err
	}
	return a, nil
}

func (repo courseRepository) getAssignment(tx *bbolt.Tx, id int64) (assignmentRecord, error) {
	var rec assignmentRecord
	found, err := get(tx.Bucket(assignmentsBucket), id, &rec)
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, course.ErrAssignmentNotFound
	}
	return rec, nil
}

func (repo courseRepository) GetAssignment(ctx context.Context, id int64) (course.Assignment, error) {
	var rec assignmentRecord
	err := repo.db.view(ctx, func(tx *bbolt.Tx) (err error) {
		rec, err = repo.getAssignment(tx, id)
		return err
	})
	if err != nil {
		return course.Assignment{}, err
	}
	return rec.assignment(), nil
}

// eachAssignment decodes every assignment of the given courses and calls fn with it.
func (repo courseRepository) eachAssignment(tx *bbolt.Tx, courseIDs []int64, fn func(r assignmentRecord) error) error {
	wanted := make(map[int64]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = struct{}{}
	}
	return tx.Bucket(assignmentsBucket).ForEach(func(_, v []byte) error {
		var rec assignmentRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return errors.Wrap(err, "decoding assignment")
		}
		if _, ok := wanted[rec.CourseID]; !ok {
			return nil
		}
		return fn(rec)
	})
}

func (repo courseRepository) QueryAssignments(ctx context.Context, courseIDs ...int64) ([]course.Assignment, error) {
	assignments := make([]course.Assignment, 0)
	if len(courseIDs) == 0 {
		return assignments, nil
	}
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		return repo.eachAssignment(tx, courseIDs, func(r assignmentRecord) error {
			assignments = append(assignments, r.assignment())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].SortOrder != assignments[j].SortOrder {
			return assignments[i].SortOrder > assignments[j].SortOrder
		}
		return assignments[i].ID > assignments[j].ID
	})
	return assignments, nil
}

func (repo courseRepository) MaxAssignmentSortOrder(ctx context.Context, courseID int64) (int, error) {
	var max int
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		return repo.eachAssignment(tx, []int64{courseID}, func(r assignmentRecord) error {
			if r.SortOrder > max {
				max = r.SortOrder
			}
			return nil
		})
	})
	return max, err
}

func (repo courseRepository) UpdateAssignment(ctx context.Context, a course.Assignment) (course.Assignment, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		orig, err := repo.getAssignment(tx, a.ID)
		if err != nil {
			return err
		}
		a.CourseID = orig.CourseID
		a.SortOrder = orig.SortOrder
		a.CreatedAt = orig.CreatedAt
		return put(tx.Bucket(assignmentsBucket), a.ID, newAssignmentRecord(a))
	})
	if err != nil {
		return course.Assignment{}, err
	}
	return a, nil
}

func (repo courseRepository) DeleteAssignment(ctx context.Context, id int64) error {
	return repo.db.update(ctx, func(tx *bbolt.Tx) error {
		if _, err := repo.getAssignment(tx, id); err != nil {
			return err
		}
		return tx.Bucket(assignmentsBucket).Delete(itob(id))
	})
}

func (repo courseRepository) DeleteAssignmentsByCourse(ctx context.Context, courseID int64) (int, error) {
	var ids []int64
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		err := repo.eachAssignment(tx, []int64{courseID}, func(r assignmentRecord) error {
			ids = append(ids, r.ID)
			return nil
		})
		if err != nil {
			return err
		}

		// keys are collected first: bbolt cursors must not be mutated while iterating
		b := tx.Bucket(assignmentsBucket)
		for _, id := range ids {
			if err = b.Delete(itob(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// LockAssignments is a no-op: bolt runs one read-write transaction at a time.
func (repo courseRepository) LockAssignments(context.Context, int64) error {
	return nil
}

func (repo courseRepository) SetAssignmentSortOrder(ctx context.Context, courseID, id int64, sortOrder int) (bool, error) {
	var applied bool
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		rec, err := repo.getAssignment(tx, id)
		if err != nil {
			if err == course.ErrAssignmentNotFound {
				return nil
			}
			return err
		}
		if rec.CourseID != courseID {
			return nil
		}
		rec.SortOrder = sortOrder
		applied = true
		return put(tx.Bucket(assignmentsBucket), id, rec)
	})
	return applied, err
}
