package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey 唯一约束冲突（SQLSTATE 23505）
var ErrDuplicateKey = errors.New("唯一约束冲突")

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db               *gorm.DB
	Lecture          LectureRepository
	Timetable        TimetableRepository
	TimetableLecture TimetableLectureRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		Lecture:          NewLectureRepo(db),
		Timetable:        NewTimetableRepo(db),
		TimetableLecture: NewTimetableLectureRepo(db),
	}
}

// WithTx 返回绑定到指定事务的 Repository
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务内执行 fn，fn 返回错误时整体回滚
// 未绑定数据库（单元测试中的内存实现）时直接执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// translateError 将驱动层的唯一约束冲突转换为 ErrDuplicateKey
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateKey
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}
