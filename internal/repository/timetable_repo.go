package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sugang-timetable/backend/internal/model"
)

// TimetableRepository 时间表数据访问接口
type TimetableRepository interface {
	Create(ctx context.Context, timetable *model.Timetable) error
	GetByID(ctx context.Context, id int64) (*model.Timetable, error)
	// GetByIDForUpdate 读取并加行锁（SELECT ... FOR UPDATE），须在事务内调用
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Timetable, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Timetable, error)
	ExistsByTitleAndOwner(ctx context.Context, title string, ownerID int64) (bool, error)
	Update(ctx context.Context, timetable *model.Timetable) error
	Delete(ctx context.Context, id int64) error
}

// TimetableLectureRepository 时间表选课关系数据访问接口
type TimetableLectureRepository interface {
	Create(ctx context.Context, link *model.TimetableLecture) error
	// Delete 返回实际删除的行数，0 表示该课程不在时间表中
	Delete(ctx context.Context, timetableID, lectureID int64) (int64, error)
	ListLectureIDs(ctx context.Context, timetableID int64) ([]int64, error)
	DeleteByTimetable(ctx context.Context, timetableID int64) error
}

// ── Timetable Repository 实现 ──

type timetableRepo struct {
	db *gorm.DB
}

func NewTimetableRepo(db *gorm.DB) TimetableRepository {
	return &timetableRepo{db: db}
}

func (r *timetableRepo) Create(ctx context.Context, timetable *model.Timetable) error {
	return translateError(r.db.WithContext(ctx).Create(timetable).Error)
}

func (r *timetableRepo) GetByID(ctx context.Context, id int64) (*model.Timetable, error) {
	var timetable model.Timetable
	err := r.db.WithContext(ctx).
		Where("timetable_id = ?", id).
		First(&timetable).Error
	if err != nil {
		return nil, err
	}
	return &timetable, nil
}

func (r *timetableRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Timetable, error) {
	var timetable model.Timetable
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("timetable_id = ?", id).
		First(&timetable).Error
	if err != nil {
		return nil, err
	}
	return &timetable, nil
}

func (r *timetableRepo) ListByOwner(ctx context.Context, ownerID int64) ([]model.Timetable, error) {
	var timetables []model.Timetable
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("year DESC, semester DESC, timetable_id ASC").
		Find(&timetables).Error
	return timetables, err
}

func (r *timetableRepo) ExistsByTitleAndOwner(ctx context.Context, title string, ownerID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Timetable{}).
		Where("owner_id = ? AND title = ?", ownerID, title).
		Count(&count).Error
	return count > 0, err
}

func (r *timetableRepo) Update(ctx context.Context, timetable *model.Timetable) error {
	return translateError(r.db.WithContext(ctx).Save(timetable).Error)
}

func (r *timetableRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Where("timetable_id = ?", id).
		Delete(&model.Timetable{}).Error
}

// ── TimetableLecture Repository 实现 ──

type timetableLectureRepo struct {
	db *gorm.DB
}

func NewTimetableLectureRepo(db *gorm.DB) TimetableLectureRepository {
	return &timetableLectureRepo{db: db}
}

func (r *timetableLectureRepo) Create(ctx context.Context, link *model.TimetableLecture) error {
	return translateError(r.db.WithContext(ctx).Create(link).Error)
}

func (r *timetableLectureRepo) Delete(ctx context.Context, timetableID, lectureID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timetable_id = ? AND lecture_id = ?", timetableID, lectureID).
		Delete(&model.TimetableLecture{})
	return result.RowsAffected, result.Error
}

func (r *timetableLectureRepo) ListLectureIDs(ctx context.Context, timetableID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.TimetableLecture{}).
		Where("timetable_id = ?", timetableID).
		Order("created_at ASC, lecture_id ASC").
		Pluck("lecture_id", &ids).Error
	return ids, err
}

func (r *timetableLectureRepo) DeleteByTimetable(ctx context.Context, timetableID int64) error {
	return r.db.WithContext(ctx).
		Where("timetable_id = ?", timetableID).
		Delete(&model.TimetableLecture{}).Error
}
