package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/grade"
)

type Course struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"-" db:"user_id"`
	Code      string    `json:"code" db:"code"`
	Weight    float64   `json:"weight" db:"weight"`
	SortOrder int       `json:"-" db:"sort_order"`
	CreatedAt time.Time `json:"-" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"-" db:"updated_at"` // UTC
}

// BelongsToUser is the ownership predicate checked before any read or write of a course
// and, through their course, of its assignments.
func (c Course) BelongsToUser(userID int64) bool {
	return c.ID != 0 && userID != 0 && c.UserID == userID
}

type Assignment struct {
	ID        int64     `json:"id" db:"id"`
	CourseID  int64     `json:"-" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	Mark      float64   `json:"mark" db:"mark"`
	Weight    float64   `json:"weight" db:"weight"`
	SortOrder int       `json:"-" db:"sort_order"`
	CreatedAt time.Time `json:"-" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"-" db:"updated_at"` // UTC
}

// Summary is a Course with its current mark.
type Summary struct {
	ID          int64   `json:"id"`
	Code        string  `json:"code"`
	Weight      float64 `json:"weight"`
	CurrentMark float64 `json:"currentMark"`
}

// Detail is a Course with its current mark and ordered assignments.
type Detail struct {
	Summary
	Assignments []Assignment `json:"assignments"`
}

// Overview lists all courses of a user with their cumulative average.
type Overview struct {
	Courses           []Summary `json:"courses"`
	CumulativeAverage float64   `json:"cumulativeAverage"`
}

// CurrentMark is the weighted average of the assignments' marks.
func CurrentMark(assignments []Assignment) float64 {
	items := make([]grade.Item, 0, len(assignments))
	for _, a := range assignments {
		items = append(items, grade.Item{Value: a.Mark, Weight: a.Weight})
	}
	return grade.WeightedAverage(items)
}

// CumulativeAverage is the weighted average of the courses' current marks.
func CumulativeAverage(courses []Summary) float64 {
	items := make([]grade.Item, 0, len(courses))
	for _, c := range courses {
		items = append(items, grade.Item{Value: c.CurrentMark, Weight: c.Weight})
	}
	return grade.WeightedAverage(items)
}

func summarize(c Course, assignments []Assignment) Summary {
	return Summary{
		ID:          c.ID,
		Code:        c.Code,
		Weight:      c.Weight,
		CurrentMark: CurrentMark(assignments),
	}
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Code   string  `json:"code" validate:"notblank,max=100"`
	Weight float64 `json:"weight" validate:"min=0,max=1000"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code)
	return validate.Struct(nc)
}

// UpdateCourse replaces the editable fields of a Course.
type UpdateCourse struct {
	Code   string  `json:"code" validate:"notblank,max=100"`
	Weight float64 `json:"weight" validate:"min=0,max=1000"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Code = core.CleanString(uc.Code)
	return validate.Struct(uc)
}

// NewAssignment contains information needed to create a new Assignment.
type NewAssignment struct {
	Title  string  `json:"title" validate:"notblank,max=255"`
	Mark   float64 `json:"mark" validate:"min=0,max=100"`
	Weight float64 `json:"weight" validate:"min=0,max=1000"`
}

func (na *NewAssignment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

// UpdateAssignment replaces the editable fields of an Assignment.
type UpdateAssignment struct {
	Title  string  `json:"title" validate:"notblank,max=255"`
	Mark   float64 `json:"mark" validate:"min=0,max=100"`
	Weight float64 `json:"weight" validate:"min=0,max=1000"`
}

func (ua *UpdateAssignment) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	return validate.Struct(ua)
}

// Order is the full list of ids of a collection, top first.
type Order struct {
	IDs []int64 `json:"order" validate:"required"`
}

func (o *Order) Validate(validate *validator.Validate) error {
	return validate.Struct(o)
}
