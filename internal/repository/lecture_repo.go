package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sugang-timetable/backend/internal/model"
)

// 单条 INSERT 的最大行数，避免超出 PostgreSQL 参数上限（65535）
const lectureBatchSize = 500

// 覆盖更新时写入的列（自然键与主键不变）
var lectureUpdateColumns = []string{
	"classification", "college", "department", "academic_course", "academic_year",
	"course_title", "course_subtitle", "credit",
	"class_time_text", "class_type_text", "location",
	"instructor", "remark", "is_active", "updated_at",
}

// LectureRepository 课程数据访问接口
type LectureRepository interface {
	ListByYearAndSemester(ctx context.Context, year int, semester model.Semester, activeOnly bool) ([]model.Lecture, error)
	ListNaturalKeys(ctx context.Context, year int, semester model.Semester) ([]model.LectureKey, error)
	GetByID(ctx context.Context, id int64) (*model.Lecture, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Lecture, error)
	// UpsertBatch 批量写入：LectureID 非零的按主键覆盖，零值的新建；每门课程的时段整体替换
	UpsertBatch(ctx context.Context, lectures []model.Lecture) error
	SetActive(ctx context.Context, ids []int64, active bool) (int64, error)
}

// lectureRepo LectureRepository 的 GORM 实现
type lectureRepo struct {
	db *gorm.DB
}

// NewLectureRepo 创建 LectureRepository 实例
func NewLectureRepo(db *gorm.DB) LectureRepository {
	return &lectureRepo{db: db}
}

func (r *lectureRepo) ListByYearAndSemester(ctx context.Context, year int, semester model.Semester, activeOnly bool) ([]model.Lecture, error) {
	var lectures []model.Lecture
	q := r.db.WithContext(ctx).
		Preload("Times", func(db *gorm.DB) *gorm.DB {
			return db.Order("lecture_time_id ASC")
		}).
		Where("year = ? AND semester = ?", year, semester)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("lecture_id ASC").Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepo) ListNaturalKeys(ctx context.Context, year int, semester model.Semester) ([]model.LectureKey, error) {
	var keys []model.LectureKey
	err := r.db.WithContext(ctx).
		Model(&model.Lecture{}).
		Select("lecture_id, course_number, lecture_number, is_active").
		Where("year = ? AND semester = ?", year, semester).
		Scan(&keys).Error
	return keys, err
}

func (r *lectureRepo) GetByID(ctx context.Context, id int64) (*model.Lecture, error) {
	var lecture model.Lecture
	err := r.db.WithContext(ctx).
		Preload("Times", func(db *gorm.DB) *gorm.DB {
			return db.Order("lecture_time_id ASC")
		}).
		Where("lecture_id = ?", id).
		First(&lecture).Error
	if err != nil {
		return nil, err
	}
	return &lecture, nil
}

func (r *lectureRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Lecture, error) {
	if len(ids) == 0 {
		return []model.Lecture{}, nil
	}
	var lectures []model.Lecture
	err := r.db.WithContext(ctx).
		Preload("Times", func(db *gorm.DB) *gorm.DB {
			return db.Order("lecture_time_id ASC")
		}).
		Where("lecture_id IN ?", ids).
		Order("lecture_id ASC").
		Find(&lectures).Error
	return lectures, err
}

func (r *lectureRepo) UpsertBatch(ctx context.Context, lectures []model.Lecture) error {
	if len(lectures) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing, fresh []*model.Lecture
		for i := range lectures {
			if lectures[i].LectureID != 0 {
				existing = append(existing, &lectures[i])
			} else {
				fresh = append(fresh, &lectures[i])
			}
		}

		// ── 已存在：按主键覆盖 ──
		if len(existing) > 0 {
			err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "lecture_id"}},
					DoUpdates: clause.AssignmentColumns(lectureUpdateColumns),
				}).
				CreateInBatches(existing, lectureBatchSize).Error
			if err != nil {
				return fmt.Errorf("覆盖课程失败: %w", translateError(err))
			}
		}

		// ── 新课程：插入并回填主键 ──
		if len(fresh) > 0 {
			if err := tx.Omit(clause.Associations).CreateInBatches(fresh, lectureBatchSize).Error; err != nil {
				return fmt.Errorf("新建课程失败: %w", translateError(err))
			}
		}

		// ── 时段整体替换 ──
		ids := make([]int64, 0, len(lectures))
		var times []model.LectureTime
		for i := range lectures {
			ids = append(ids, lectures[i].LectureID)
			for j := range lectures[i].Times {
				lectures[i].Times[j].LectureTimeID = 0
				lectures[i].Times[j].LectureID = lectures[i].LectureID
				times = append(times, lectures[i].Times[j])
			}
		}
		for start := 0; start < len(ids); start += lectureBatchSize {
			end := min(start+lectureBatchSize, len(ids))
			if err := tx.Where("lecture_id IN ?", ids[start:end]).Delete(&model.LectureTime{}).Error; err != nil {
				return fmt.Errorf("清理课程时段失败: %w", err)
			}
		}
		if len(times) > 0 {
			if err := tx.CreateInBatches(times, lectureBatchSize).Error; err != nil {
				return fmt.Errorf("写入课程时段失败: %w", err)
			}
			// 回写生成的主键，调用方持有的切片与数据库保持一致
			k := 0
			for i := range lectures {
				for j := range lectures[i].Times {
					lectures[i].Times[j].LectureTimeID = times[k].LectureTimeID
					k++
				}
			}
		}
		return nil
	})
}

func (r *lectureRepo) SetActive(ctx context.Context, ids []int64, active bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Lecture{}).
		Where("lecture_id IN ? AND is_active <> ?", ids, active).
		Update("is_active", active)
	return result.RowsAffected, result.Error
}
