package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestConstraintClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "wallets_user_id_key"})
	fk := &pgconn.PgError{Code: "23503"}
	excl := &pgconn.PgError{Code: "23P01"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsDuplicateConstraintError(unique, "wallets_user_id_key"))
	assert.False(t, IsDuplicateConstraintError(unique, "users_email_key"))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsExclusionViolation(excl))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}
