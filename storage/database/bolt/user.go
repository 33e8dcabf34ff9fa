package boltrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/markbook/core/user"
)

type userRecord struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) toRecord(usr user.User) userRecord {
	return userRecord{
		ID:           usr.ID,
		Username:     usr.Username,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
}

func (repo userRepository) fromRecord(r userRecord) user.User {
	return user.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		if names.Get([]byte(usr.Username)) != nil {
			return user.ErrUsernameExists
		}

		b := tx.Bucket(usersBucket)
		id, err := nextID(b)
		if err != nil {
			return err
		}
		usr.ID = id
		if err = put(b, id, repo.toRecord(usr)); err != nil {
			return errors.Wrap(err, "inserting user")
		}
		return names.Put([]byte(usr.Username), itob(id))
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var rec userRecord
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		found, err := get(tx.Bucket(usersBucket), id, &rec)
		if err != nil {
			return err
		}
		if !found {
			return user.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return repo.fromRecord(rec), nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var id int64
	err := repo.db.view(ctx, func(tx *bbolt.Tx) error {
		v := tx.Bucket(usernamesBucket).Get([]byte(username))
		if v == nil {
			return user.ErrNotFound
		}
		id = btoi(v)
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return repo.GetUserByID(ctx, id)
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := repo.db.update(ctx, func(tx *bbolt.Tx) error {
		b := tx.Bucket(usersBucket)
		var orig userRecord
		found, err := get(b, usr.ID, &orig)
		if err != nil {
			return err
		}
		if !found {
			return user.ErrNotFound
		}

		names := tx.Bucket(usernamesBucket)
		if usr.Username != orig.Username {
			if names.Get([]byte(usr.Username)) != nil {
				return user.ErrUsernameExists
			}
			if err = names.Delete([]byte(orig.Username)); err != nil {
				return err
			}
			if err = names.Put([]byte(usr.Username), itob(usr.ID)); err != nil {
				return err
			}
		}
		usr.CreatedAt = orig.CreatedAt
		return put(b, usr.ID, repo.toRecord(usr))
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}
