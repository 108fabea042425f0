package convert

import (
	"database/sql"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	apperrors "github.com/kbukum/faultkit/errors"
)

// StorageRule claims "no such record" results from the supported storage
// clients (database/sql, pgx, gorm and go-redis) as ENTITY_NOT_FOUND.
func StorageRule(err error) (*apperrors.BusinessError, bool) {
	switch {
	case stderrors.Is(err, sql.ErrNoRows),
		stderrors.Is(err, pgx.ErrNoRows),
		stderrors.Is(err, gorm.ErrRecordNotFound),
		stderrors.Is(err, redis.Nil):
		return apperrors.Wrap(apperrors.KindEntityNotFound, "", err), true
	}
	return nil, false
}
