package core

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	assert.Equal(t, "MATH 101", CleanString("  MATH 101\t"))
	assert.Equal(t, "awe", CleanString(" AwE ", true /* lower */))
	assert.Equal(t, "", CleanString("   "))
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOk bool
	}{
		{in: "1", want: 1, wantOk: true},
		{in: " 42 ", want: 42, wantOk: true},
		{in: "0"},
		{in: "-3"},
		{in: "abc"},
		{in: ""},
		{in: "99999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, ok := ParseID(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestUserIDFrom(t *testing.T) {
	_, err := UserIDFrom(context.Background())
	assert.Equal(t, ErrUnauthenticated, err)

	id, err := UserIDFrom(WithUserID(context.Background(), 7))
	assert.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestNewStorageError(t *testing.T) {
	assert.Nil(t, NewStorageError("op", nil))

	err := NewStorageError("committing", context.Canceled)
	serr, ok := err.(*StorageError)
	if assert.True(t, ok) {
		assert.True(t, serr.Retryable())
		assert.Equal(t, "committing: context canceled", serr.Error())
	}
	// not wrapped twice
	assert.Same(t, err, NewStorageError("again", err))

	notFound := NewNotFoundError("gone")
	assert.Same(t, notFound, NewStorageError("deleting", errors.Wrap(notFound, "deleting row")))

	invalid := NewValidationError(errors.New("too long"), FieldError{Field: "password", Error: "too long"})
	assert.Same(t, invalid, NewStorageError("hashing", errors.Wrap(invalid, "hashing password")))

	closed := NewShutdownError("database is closed")
	err = NewStorageError("reading", errors.Wrap(closed, "reading user"))
	assert.Same(t, closed, err)
	assert.True(t, IsShutdown(err))
}
