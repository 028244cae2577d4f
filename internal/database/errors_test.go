package database

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ErrorClassUnknown},
		{"sql no rows", sql.ErrNoRows, ErrorClassNotFound},
		{"wrapped no rows", fmt.Errorf("get order: %w", sql.ErrNoRows), ErrorClassNotFound},
		{"mongo no documents", mongo.ErrNoDocuments, ErrorClassNotFound},
		{"pq unique", &pq.Error{Code: "23505"}, ErrorClassDuplicate},
		{"pq invalid text", &pq.Error{Code: "22P02"}, ErrorClassInvalid},
		{"pq check", &pq.Error{Code: "23514"}, ErrorClassInvalid},
		{"pq other", &pq.Error{Code: "40001"}, ErrorClassUnknown},
		{"mongo duplicate", mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}, ErrorClassDuplicate},
		{"other", errors.New("boom"), ErrorClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestHelpers(t *testing.T) {
	assert.True(t, IsNotFound(sql.ErrNoRows))
	assert.False(t, IsNotFound(errors.New("x")))
	assert.True(t, IsDuplicate(&pq.Error{Code: "23505"}))
}
