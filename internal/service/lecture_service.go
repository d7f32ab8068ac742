package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/repository"
	apperrors "sugang-timetable/backend/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrLectureNotFound = apperrors.New(apperrors.KindLectureNotFound, "课程不存在")
	ErrInvalidSemester = apperrors.New(apperrors.KindInvalidArgument, "学期无效")
)

// LectureService 课程检索业务接口
type LectureService interface {
	// Search 在指定学年学期的有效课程中按关键字检索（课程名或教师），先过滤后分页
	Search(ctx context.Context, req *dto.SearchLecturesRequest) ([]dto.LectureResponse, int64, error)
	// GetByID 课程详情
	GetByID(ctx context.Context, id int64) (*dto.LectureResponse, error)
}

type lectureService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLectureService 创建 LectureService 实例
func NewLectureService(repo *repository.Repository, logger *zap.Logger) LectureService {
	return &lectureService{repo: repo, logger: logger}
}

func (s *lectureService) Search(ctx context.Context, req *dto.SearchLecturesRequest) ([]dto.LectureResponse, int64, error) {
	semester, err := model.ParseSemester(req.Semester)
	if err != nil {
		return nil, 0, ErrInvalidSemester
	}

	lectures, err := s.repo.Lecture.ListByYearAndSemester(ctx, req.Year, semester, true)
	if err != nil {
		s.logger.Error("查询课程列表失败", zap.Int("year", req.Year), zap.Stringer("semester", semester), zap.Error(err))
		return nil, 0, fmt.Errorf("查询课程列表失败: %w", err)
	}

	matched := lectures
	if keyword := strings.TrimSpace(req.Keyword); keyword != "" {
		matcher := newKeywordMatcher(keyword)
		matched = make([]model.Lecture, 0, len(lectures))
		for i := range lectures {
			if matcher.match(lectures[i].CourseTitle) || matcher.match(lectures[i].Instructor) {
				matched = append(matched, lectures[i])
			}
		}
	}

	total := int64(len(matched))
	from, to := req.Window(len(matched))
	if from >= to {
		return []dto.LectureResponse{}, total, nil
	}

	result := make([]dto.LectureResponse, 0, to-from)
	for i := from; i < to; i++ {
		result = append(result, dto.NewLectureResponse(&matched[i]))
	}
	return result, total, nil
}

func (s *lectureService) GetByID(ctx context.Context, id int64) (*dto.LectureResponse, error) {
	lecture, err := s.repo.Lecture.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLectureNotFound
		}
		return nil, fmt.Errorf("查询课程失败: %w", err)
	}
	resp := dto.NewLectureResponse(lecture)
	return &resp, nil
}

// ── 关键字匹配 ──

// keywordMatcher 大小写不敏感的子串匹配；先做 NFC 归一化，
// 使目录中分解形式的韩文与用户输入的组合形式一致
type keywordMatcher struct {
	caser  cases.Caser
	needle string
}

func newKeywordMatcher(keyword string) *keywordMatcher {
	m := &keywordMatcher{caser: cases.Fold()}
	m.needle = m.fold(keyword)
	return m
}

func (m *keywordMatcher) fold(s string) string {
	return m.caser.String(norm.NFC.String(s))
}

func (m *keywordMatcher) match(s string) bool {
	return strings.Contains(m.fold(s), m.needle)
}
