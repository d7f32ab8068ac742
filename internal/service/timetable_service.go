package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/metrics"
	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/repository"
	apperrors "sugang-timetable/backend/pkg/errors"
)

// ── 时间表模块业务错误 ──

var (
	ErrTimetableNotFound         = apperrors.New(apperrors.KindTimetableNotFound, "时间表不存在")
	ErrTimetableUpdateForbidden  = apperrors.New(apperrors.KindTimetableUpdateForbidden, "无权修改他人的时间表")
	ErrTimetableBlankTitle       = apperrors.New(apperrors.KindTimetableBlankTitle, "时间表标题不能为空")
	ErrTimetableDuplicateTitle   = apperrors.New(apperrors.KindTimetableDuplicateTitle, "已存在同名时间表")
	ErrTimetableWrongSemester    = apperrors.New(apperrors.KindTimetableWrongSemester, "课程与时间表的学年学期不一致")
	ErrTimetableDuplicateLecture = apperrors.New(apperrors.KindTimetableDuplicateLecture, "该课程已在时间表中")
	ErrTimetableDuplicateTime    = apperrors.New(apperrors.KindTimetableDuplicateTime, "与时间表中已有课程时间冲突")
	ErrTimetableLectureNotFound  = apperrors.New(apperrors.KindTimetableLectureNotFound, "该课程不在时间表中")
)

// ── TimetableService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 查看时间表不限本人；创建之外的写操作只允许所有者执行。
//   - AddLecture 在单个事务内先对时间表行加锁（SELECT ... FOR UPDATE），
//     同一时间表的并发选课因此串行执行，冲突检测与写入之间不会被插入。
//   - (timetable_id, lecture_id) 联合主键兜底重复选课。
// ─────────────────────────────────────────────────────────────

// TimetableService 时间表模块业务接口
type TimetableService interface {
	Create(ctx context.Context, ownerID int64, req *dto.CreateTimetableRequest) (*dto.TimetableResponse, error)
	List(ctx context.Context, ownerID int64) ([]dto.TimetableResponse, error)
	// Get 时间表详情（含课程与总学分），任何已登录用户均可查看
	Get(ctx context.Context, id int64) (*dto.TimetableDetailResponse, error)
	Update(ctx context.Context, id, ownerID int64, req *dto.UpdateTimetableRequest) (*dto.TimetableResponse, error)
	// Delete 删除时间表及其全部选课记录，课程本身保留
	Delete(ctx context.Context, id, ownerID int64) error
	AddLecture(ctx context.Context, timetableID, lectureID, requesterID int64) (*dto.TimetableResponse, error)
	RemoveLecture(ctx context.Context, timetableID, lectureID, requesterID int64) error
}

type timetableService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// 时间表 CRUD
// ════════════════════════════════════════════════════════════

func (s *timetableService) Create(ctx context.Context, ownerID int64, req *dto.CreateTimetableRequest) (*dto.TimetableResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrTimetableBlankTitle
	}
	semester, err := model.ParseSemester(req.Semester)
	if err != nil {
		return nil, ErrInvalidSemester
	}

	exists, err := s.repo.Timetable.ExistsByTitleAndOwner(ctx, req.Title, ownerID)
	if err != nil {
		return nil, fmt.Errorf("检查时间表标题失败: %w", err)
	}
	if exists {
		return nil, ErrTimetableDuplicateTitle
	}

	timetable := &model.Timetable{
		OwnerID:  ownerID,
		Year:     req.Year,
		Semester: semester,
		Title:    req.Title,
	}
	if err := s.repo.Timetable.Create(ctx, timetable); err != nil {
		// 并发创建同名时间表由唯一索引拦截
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrTimetableDuplicateTitle
		}
		s.logger.Error("创建时间表失败", zap.Int64("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("创建时间表失败: %w", err)
	}

	s.logger.Info("时间表已创建",
		zap.Int64("timetable_id", timetable.TimetableID),
		zap.Int64("owner_id", ownerID),
	)
	resp := dto.NewTimetableResponse(timetable)
	return &resp, nil
}

func (s *timetableService) List(ctx context.Context, ownerID int64) ([]dto.TimetableResponse, error) {
	timetables, err := s.repo.Timetable.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("查询时间表列表失败: %w", err)
	}
	result := make([]dto.TimetableResponse, 0, len(timetables))
	for i := range timetables {
		result = append(result, dto.NewTimetableResponse(&timetables[i]))
	}
	return result, nil
}

func (s *timetableService) Get(ctx context.Context, id int64) (*dto.TimetableDetailResponse, error) {
	timetable, err := findTimetable(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}

	lectures, err := loadEnrolledLectures(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	resp := &dto.TimetableDetailResponse{
		TimetableResponse: dto.NewTimetableResponse(timetable),
		Lectures:          make([]dto.LectureResponse, 0, len(lectures)),
	}
	for i := range lectures {
		resp.Lectures = append(resp.Lectures, dto.NewLectureResponse(&lectures[i]))
		resp.TotalCredits += lectures[i].Credit
	}
	return resp, nil
}

func (s *timetableService) Update(ctx context.Context, id, ownerID int64, req *dto.UpdateTimetableRequest) (*dto.TimetableResponse, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, ErrTimetableBlankTitle
	}

	timetable, err := findTimetable(ctx, s.repo, id, false)
	if err != nil {
		return nil, err
	}
	if timetable.OwnerID != ownerID {
		return nil, ErrTimetableUpdateForbidden
	}

	if req.Title != nil && *req.Title != timetable.Title {
		exists, err := s.repo.Timetable.ExistsByTitleAndOwner(ctx, *req.Title, ownerID)
		if err != nil {
			return nil, fmt.Errorf("检查时间表标题失败: %w", err)
		}
		if exists {
			return nil, ErrTimetableDuplicateTitle
		}
		timetable.Title = *req.Title
		if err := s.repo.Timetable.Update(ctx, timetable); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return nil, ErrTimetableDuplicateTitle
			}
			return nil, fmt.Errorf("更新时间表失败: %w", err)
		}
	}

	resp := dto.NewTimetableResponse(timetable)
	return &resp, nil
}

func (s *timetableService) Delete(ctx context.Context, id, ownerID int64) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		timetable, err := findTimetable(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if timetable.OwnerID != ownerID {
			return ErrTimetableUpdateForbidden
		}

		if err := tx.TimetableLecture.DeleteByTimetable(ctx, id); err != nil {
			return fmt.Errorf("删除选课记录失败: %w", err)
		}
		if err := tx.Timetable.Delete(ctx, id); err != nil {
			return fmt.Errorf("删除时间表失败: %w", err)
		}

		s.logger.Info("时间表已删除", zap.Int64("timetable_id", id), zap.Int64("owner_id", ownerID))
		return nil
	})
}

// ════════════════════════════════════════════════════════════
// 选课与退课
// ════════════════════════════════════════════════════════════
//
// 检查顺序：
//   1. 时间表存在（加行锁）
//   2. 课程存在
//   3. 请求者为所有者
//   4. 学年学期一致
//   5. 未重复选课
//   6. 与已选课程无时间冲突

func (s *timetableService) AddLecture(ctx context.Context, timetableID, lectureID, requesterID int64) (*dto.TimetableResponse, error) {
	var timetable *model.Timetable

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		timetable, err = findTimetable(ctx, tx, timetableID, true)
		if err != nil {
			return err
		}

		lecture, err := tx.Lecture.GetByID(ctx, lectureID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLectureNotFound
			}
			return fmt.Errorf("查询课程失败: %w", err)
		}

		if timetable.OwnerID != requesterID {
			return ErrTimetableUpdateForbidden
		}
		if timetable.Year != lecture.Year || timetable.Semester != lecture.Semester {
			return ErrTimetableWrongSemester
		}

		enrolledIDs, err := tx.TimetableLecture.ListLectureIDs(ctx, timetableID)
		if err != nil {
			return fmt.Errorf("查询已选课程失败: %w", err)
		}
		if slices.Contains(enrolledIDs, lectureID) {
			return ErrTimetableDuplicateLecture
		}

		enrolled, err := tx.Lecture.ListByIDs(ctx, enrolledIDs)
		if err != nil {
			return fmt.Errorf("查询已选课程失败: %w", err)
		}
		for i := range enrolled {
			if LecturesOverlap(&enrolled[i], lecture) {
				s.logger.Debug("选课时间冲突",
					zap.Int64("timetable_id", timetableID),
					zap.Int64("lecture_id", lectureID),
					zap.Int64("conflict_lecture_id", enrolled[i].LectureID),
				)
				return ErrTimetableDuplicateTime
			}
		}

		link := &model.TimetableLecture{TimetableID: timetableID, LectureID: lectureID}
		if err := tx.TimetableLecture.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return ErrTimetableDuplicateLecture
			}
			return fmt.Errorf("写入选课记录失败: %w", err)
		}
		return nil
	})
	if err != nil {
		if kind := apperrors.KindOf(err); kind != "" {
			metrics.EnrollmentRejections.WithLabelValues(string(kind)).Inc()
		}
		return nil, err
	}

	resp := dto.NewTimetableResponse(timetable)
	return &resp, nil
}

// RemoveLecture 退选
func (s *timetableService) RemoveLecture(ctx context.Context, timetableID, lectureID, requesterID int64) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		timetable, err := findTimetable(ctx, tx, timetableID, true)
		if err != nil {
			return err
		}
		if timetable.OwnerID != requesterID {
			return ErrTimetableUpdateForbidden
		}

		affected, err := tx.TimetableLecture.Delete(ctx, timetableID, lectureID)
		if err != nil {
			return fmt.Errorf("删除选课记录失败: %w", err)
		}
		if affected == 0 {
			return ErrTimetableLectureNotFound
		}
		return nil
	})
}

// ── 辅助函数 ──

func findTimetable(ctx context.Context, repo *repository.Repository, id int64, forUpdate bool) (*model.Timetable, error) {
	var (
		timetable *model.Timetable
		err       error
	)
	if forUpdate {
		timetable, err = repo.Timetable.GetByIDForUpdate(ctx, id)
	} else {
		timetable, err = repo.Timetable.GetByID(ctx, id)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimetableNotFound
		}
		return nil, fmt.Errorf("查询时间表失败: %w", err)
	}
	return timetable, nil
}

// loadEnrolledLectures 按选课顺序返回时间表中的课程
func loadEnrolledLectures(ctx context.Context, repo *repository.Repository, timetableID int64) ([]model.Lecture, error) {
	ids, err := repo.TimetableLecture.ListLectureIDs(ctx, timetableID)
	if err != nil {
		return nil, fmt.Errorf("查询已选课程失败: %w", err)
	}
	lectures, err := repo.Lecture.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询已选课程失败: %w", err)
	}

	byID := make(map[int64]model.Lecture, len(lectures))
	for _, l := range lectures {
		byID[l.LectureID] = l
	}
	ordered := make([]model.Lecture, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			ordered = append(ordered, l)
		}
	}
	return ordered, nil
}
