package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/catalog"
	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/metrics"
	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/repository"
)

// CatalogFetcher 下载课程目录原始文件
type CatalogFetcher interface {
	Fetch(ctx context.Context, year int, semester model.Semester) ([]byte, error)
}

// ── CatalogService 接口 ────────────────────────────────────
//
// 设计说明：
//   - 刷新流程：下载 → 解析 Excel → 逐条解析时段 → 按自然键对账 → 单事务落库。
//   - 自然键 (课程号, 班号) 命中已有课程时沿用其主键，已有的选课记录因此不受影响。
//   - 同一学年学期的刷新经 singleflight 合并，手动触发与定时任务不会并发执行。
//   - 本次目录中消失的课程按 catalog.stale_policy 保留或停用；重新出现的课程恢复为有效。
// ─────────────────────────────────────────────────────────────

// CatalogService 课程目录同步业务接口
type CatalogService interface {
	// Refresh 抓取并同步指定学年学期的课程目录
	Refresh(ctx context.Context, year int, semester model.Semester) (*dto.CatalogRefreshResult, error)
	// Reconcile 将已解析的课程与库中记录对账并落库
	Reconcile(ctx context.Context, year int, semester model.Semester, fresh []model.Lecture) (*dto.CatalogRefreshResult, error)
}

type catalogService struct {
	cfg     *config.CatalogConfig
	repo    *repository.Repository
	fetcher CatalogFetcher
	parse   func(data []byte, year int, semester model.Semester) ([]model.Lecture, error)
	group   singleflight.Group
	logger  *zap.Logger

	refreshTimeout time.Duration
}

const defaultRefreshTimeout = 20 * time.Minute

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(cfg *config.CatalogConfig, repo *repository.Repository, fetcher CatalogFetcher, logger *zap.Logger) CatalogService {
	return &catalogService{
		cfg:     cfg,
		repo:    repo,
		fetcher: fetcher,
		parse:   catalog.ParseCatalog,
		logger:  logger,

		refreshTimeout: defaultRefreshTimeout,
	}
}

func (s *catalogService) Refresh(ctx context.Context, year int, semester model.Semester) (*dto.CatalogRefreshResult, error) {
	if !semester.Valid() {
		return nil, ErrInvalidSemester
	}

	// 合并后的刷新不随任何一个调用方取消，只受 refreshTimeout 约束
	key := strconv.Itoa(year) + "-" + semester.String()
	ch := s.group.DoChan(key, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
		defer cancel()
		return s.refresh(runCtx, year, semester)
	})

	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("合并并发的目录刷新", zap.String("key", key))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*dto.CatalogRefreshResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *catalogService) refresh(ctx context.Context, year int, semester model.Semester) (*dto.CatalogRefreshResult, error) {
	start := time.Now()
	label := semester.String()
	defer func() {
		metrics.CatalogRefreshDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	data, err := s.fetcher.Fetch(ctx, year, semester)
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues(label, "fetch_error").Inc()
		return nil, err
	}

	lectures, err := s.parse(data, year, semester)
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues(label, "parse_error").Inc()
		return nil, err
	}

	result, err := s.Reconcile(ctx, year, semester, lectures)
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues(label, "persist_error").Inc()
		return nil, err
	}
	result.Duration = time.Since(start)

	metrics.CatalogRefreshTotal.WithLabelValues(label, "success").Inc()
	metrics.CatalogLectures.WithLabelValues(strconv.Itoa(year), label).Set(float64(result.Fetched))
	s.logger.Info("课程目录同步完成",
		zap.Int("year", year),
		zap.String("semester", label),
		zap.Int("fetched", result.Fetched),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("deactivated", result.Deactivated),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

func (s *catalogService) Reconcile(ctx context.Context, year int, semester model.Semester, fresh []model.Lecture) (*dto.CatalogRefreshResult, error) {
	result := &dto.CatalogRefreshResult{
		Year:     year,
		Semester: semester.String(),
		Fetched:  len(fresh),
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		stored, err := tx.Lecture.ListNaturalKeys(ctx, year, semester)
		if err != nil {
			return fmt.Errorf("查询已有课程失败: %w", err)
		}
		idByKey := make(map[string]int64, len(stored))
		for _, k := range stored {
			idByKey[model.NaturalKey(k.CourseNumber, k.LectureNumber)] = k.LectureID
		}

		// present 记录目录中出现过的全部自然键（含时段解析失败的行），用于判定停用
		present := make(map[string]struct{}, len(fresh))
		persisted := make(map[string]struct{}, len(fresh))
		batch := make([]model.Lecture, 0, len(fresh))

		for i := range fresh {
			lecture := fresh[i]
			key := lecture.NaturalKey()
			present[key] = struct{}{}

			if _, dup := persisted[key]; dup {
				result.Skipped++
				s.logger.Warn("目录中存在重复的课程，保留首条",
					zap.String("course_number", lecture.CourseNumber),
					zap.String("lecture_number", lecture.LectureNumber),
				)
				continue
			}

			times, err := catalog.ParseLectureTimes(lecture.ClassTimeText, lecture.ClassTypeText, lecture.Location)
			if err != nil {
				result.Skipped++
				s.logger.Warn("课程时段解析失败，跳过该课程",
					zap.String("course_number", lecture.CourseNumber),
					zap.String("lecture_number", lecture.LectureNumber),
					zap.String("class_time", lecture.ClassTimeText),
					zap.Error(err),
				)
				continue
			}
			persisted[key] = struct{}{}

			lecture.Year = year
			lecture.Semester = semester
			lecture.Times = times
			lecture.IsActive = true
			if id, ok := idByKey[key]; ok {
				lecture.LectureID = id
				result.Updated++
			} else {
				lecture.LectureID = 0
				result.Created++
			}
			batch = append(batch, lecture)
		}

		if err := tx.Lecture.UpsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("保存课程失败: %w", err)
		}

		if s.cfg.StalePolicy != config.StalePolicyDeactivate {
			return nil
		}
		if len(fresh) == 0 {
			// 目录尚未发布或被清空时不做停用，避免整学期课程失效
			s.logger.Warn("课程目录为空，跳过停用",
				zap.Int("year", year),
				zap.String("semester", semester.String()),
			)
			return nil
		}

		var stale []int64
		for _, k := range stored {
			if !k.IsActive {
				continue
			}
			if _, ok := present[model.NaturalKey(k.CourseNumber, k.LectureNumber)]; !ok {
				stale = append(stale, k.LectureID)
			}
		}
		n, err := tx.Lecture.SetActive(ctx, stale, false)
		if err != nil {
			return fmt.Errorf("停用课程失败: %w", err)
		}
		result.Deactivated = int(n)
		return nil
	})
	if err != nil {
		s.logger.Error("课程目录落库失败",
			zap.Int("year", year),
			zap.String("semester", semester.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}
