package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
)

type ErrorClass int

const (
	ErrorClassUnknown ErrorClass = iota
	ErrorClassNotFound
	ErrorClassDuplicate
	ErrorClassInvalid
)

// ClassifyError maps driver errors from either backend onto the few
// outcomes the stores distinguish.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}

	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, mongo.ErrNoDocuments) {
		return ErrorClassNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrorClassDuplicate
		case "22P02", "23502", "23514":
			return ErrorClassInvalid
		}
	}

	if mongo.IsDuplicateKeyError(err) {
		return ErrorClassDuplicate
	}

	return ErrorClassUnknown
}

func IsNotFound(err error) bool {
	return ClassifyError(err) == ErrorClassNotFound
}

func IsDuplicate(err error) bool {
	return ClassifyError(err) == ErrorClassDuplicate
}
