// Package scheduler 定时刷新课程目录。
//
// 每次触发按配置顺序逐个学期刷新；多实例部署时经 Redis 锁保证同一学年学期只有一个实例执行。
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/model"
)

const defaultLockTTL = 25 * time.Minute

// Refresher 执行单个学年学期的目录刷新
type Refresher interface {
	Refresh(ctx context.Context, year int, semester model.Semester) (*dto.CatalogRefreshResult, error)
}

// Locker 分布式互斥锁，未获取到锁时返回 false
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(), ok bool, err error)
}

// Scheduler 课程目录定时刷新器
type Scheduler struct {
	cfg       *config.SchedulerConfig
	refresher Refresher
	locker    Locker
	semesters []model.Semester
	cron      *cron.Cron
	logger    *zap.Logger
	now       func() time.Time

	wg sync.WaitGroup
	// ctx 在 Stop 时取消，用于中断进行中的刷新
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建 Scheduler；locker 为 nil 时不做跨实例互斥
func New(cfg *config.SchedulerConfig, refresher Refresher, locker Locker, logger *zap.Logger) (*Scheduler, error) {
	semesters := make([]model.Semester, 0, len(cfg.Semesters))
	for _, name := range cfg.Semesters {
		s, err := model.ParseSemester(name)
		if err != nil {
			return nil, fmt.Errorf("scheduler.semesters 无效: %w", err)
		}
		semesters = append(semesters, s)
	}

	cronLogger := &cronLogger{logger: logger.Sugar()}
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:       cfg,
		refresher: refresher,
		locker:    locker,
		semesters: semesters,
		cron:      c,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}

	if _, err := c.AddFunc(cfg.Spec, func() { s.RunOnce(s.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("scheduler.spec 无效 %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start 启动定时任务；配置了 run_on_startup 时立即在后台执行一轮
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("课程目录定时刷新已启动",
		zap.String("spec", s.cfg.Spec),
		zap.Int("year", s.cfg.Year),
		zap.Strings("semesters", s.cfg.Semesters),
	)

	if s.cfg.RunOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.RunOnce(s.ctx)
		}()
	}
}

// Stop 停止调度并等待进行中的任务退出
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	cronDone := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("课程目录定时刷新已停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce 依次刷新配置的全部学期，单个学期失败不影响后续学期
func (s *Scheduler) RunOnce(ctx context.Context) {
	year := s.year()
	for _, semester := range s.semesters {
		if ctx.Err() != nil {
			return
		}
		s.refreshOne(ctx, year, semester)
	}
}

func (s *Scheduler) refreshOne(ctx context.Context, year int, semester model.Semester) {
	log := s.logger.With(zap.Int("year", year), zap.String("semester", semester.String()))

	// 启动时的一轮不经过 cron.Recover，单个学期的 panic 不能拖垮进程
	defer func() {
		if r := recover(); r != nil {
			log.Error("刷新课程目录时发生 panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	if s.locker != nil {
		key := "catalog:refresh:" + strconv.Itoa(year) + ":" + semester.String()
		unlock, ok, err := s.locker.TryLock(ctx, key, s.lockTTL())
		if err != nil {
			// Redis 不可用时仍在本实例执行
			log.Warn("获取刷新锁失败，继续执行", zap.Error(err))
		} else if !ok {
			log.Info("其他实例正在刷新，跳过")
			return
		} else {
			defer unlock()
		}
	}

	if _, err := s.refresher.Refresh(ctx, year, semester); err != nil {
		log.Error("定时刷新课程目录失败", zap.Error(err))
	}
}

func (s *Scheduler) year() int {
	if s.cfg.Year > 0 {
		return s.cfg.Year
	}
	return s.now().Year()
}

// lockTTL 不短于单学期超时，避免锁在刷新途中过期被其他实例抢到
func (s *Scheduler) lockTTL() time.Duration {
	ttl := s.cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return max(ttl, s.cfg.RunTimeout)
}

// ── cron.Logger 适配 ──

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
