package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/trezcool/markbook/core"
	"github.com/trezcool/markbook/core/course"
	"github.com/trezcool/markbook/core/user"
	boltrepos "github.com/trezcool/markbook/storage/database/bolt"
)

// OpenBolt opens a fresh bolt database in a temporary directory removed at the end of the test.
func OpenBolt(t *testing.T) *boltrepos.DB {
	t.Helper()
	db, err := boltrepos.Open(filepath.Join(t.TempDir(), "markbook.db"))
	if err != nil {
		t.Fatalf("OpenBolt() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// AsUser returns a context authenticated as usr.
func AsUser(usr user.User) context.Context {
	return core.WithUserID(context.Background(), usr.ID)
}

func CreateUser(t *testing.T, repo user.Repository, uname, pwd string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, svc course.Service, owner user.User, code string, weight float64) course.Course {
	t.Helper()
	c, err := svc.Create(AsUser(owner), course.NewCourse{Code: code, Weight: weight})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	return c
}

func CreateAssignment(
	t *testing.T,
	svc course.Service,
	owner user.User,
	courseID int64,
	title string,
	mark, weight float64,
) course.Assignment {
	t.Helper()
	a, err := svc.CreateAssignment(AsUser(owner), courseID, course.NewAssignment{Title: title, Mark: mark, Weight: weight})
	if err != nil {
		t.Fatalf("createAssignment() failed: %v", err)
	}
	return a
}

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
