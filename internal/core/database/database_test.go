package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("Error 1062 (23000): Duplicate entry 'a@b.c' for key 'idx_profiles_email'")))
	assert.True(t, IsUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: profiles.email (2067)")))
}

func TestNewGormUnsupportedDriver(t *testing.T) {
	_, err := NewGorm(Opts{Driver: "oracle"})
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestNormalizeMySQLDSN(t *testing.T) {
	got := normalizeMySQLDSN("jdbc:mysql://root:pw@127.0.0.1:3306/crm?user=other", "", "")
	assert.Equal(t, "other:pw@tcp(127.0.0.1:3306)/crm?charset=utf8mb4&parseTime=true", got)

	raw := "crm:crm@tcp(db:3306)/crm?parseTime=true"
	assert.Equal(t, raw, normalizeMySQLDSN(raw, "x", "y"))

	got = normalizeMySQLDSN("mysql://db:3306/crm", "u", "p")
	assert.Equal(t, "u:p@tcp(db:3306)/crm?charset=utf8mb4&parseTime=true", got)
}

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "u:****@tcp(db)/x", maskDSN("u:secret@tcp(db)/x"))
	assert.Equal(t, "host=db", maskDSN("host=db"))
}
