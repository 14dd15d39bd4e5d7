package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"franchise-crm/internal/domain"
)

// Models 需要迁移的全部表
func Models() []any {
	return []any{
		&domain.Profile{},
		&domain.Lead{},
		&domain.LeadDetail{},
		&domain.StatusEntry{},
		&domain.Task{},
		&domain.Communication{},
		&domain.Franchise{},
		&domain.EmailSettings{},
	}
}

func Migrate(db *gorm.DB, extra ...any) error {
	return db.AutoMigrate(append(Models(), extra...)...)
}

const pgUniqueViolation = "23505"

// IsUniqueViolation 兼容 postgres (SQLSTATE 23505)、mysql 1062 以及 gorm 翻译后的错误
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
