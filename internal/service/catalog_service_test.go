package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/catalog"
	"sugang-timetable/backend/internal/model"
	apperrors "sugang-timetable/backend/pkg/errors"
)

// fakeFetcher 返回固定内容，可注入错误与延迟
type fakeFetcher struct {
	data  []byte
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ int, _ model.Semester) ([]byte, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.data, f.err
}

func newTestCatalogService(policy string, fetcher CatalogFetcher) (*catalogService, *mockRepos) {
	repo, mocks := newMockRepository()
	cfg := &config.CatalogConfig{StalePolicy: policy}
	svc := NewCatalogService(cfg, repo, fetcher, zap.NewNop()).(*catalogService)
	return svc, mocks
}

// rawLecture 模拟目录解析结果：时段仍为原文
func rawLecture(courseNumber, lectureNumber, timeText string) model.Lecture {
	return model.Lecture{
		Year:          2025,
		Semester:      model.SemesterSpring,
		CourseNumber:  courseNumber,
		LectureNumber: lectureNumber,
		CourseTitle:   "강의 " + courseNumber,
		Credit:        3,
		ClassTimeText: timeText,
		ClassTypeText: "이론",
		Location:      "301-101",
		IsActive:      true,
	}
}

func freshCatalog() []model.Lecture {
	return []model.Lecture{
		rawLecture("4190.101", "001", "월(09:00~10:15)"),
		rawLecture("4190.101", "002", "화(09:00~10:15)"),
		rawLecture("4190.202", "001", ""),
	}
}

func idsByKey(m *mockLectureRepo) map[string]int64 {
	out := make(map[string]int64)
	for _, l := range m.lectures {
		out[l.NaturalKey()] = l.LectureID
	}
	return out
}

// ════════════════════════════════════════════════════════════
// Reconcile
// ════════════════════════════════════════════════════════════

func TestReconcile_IdempotentIDs(t *testing.T) {
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, nil)
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, freshCatalog())
	if err != nil {
		t.Fatalf("首次 Reconcile 失败: %v", err)
	}
	if first.Created != 3 || first.Updated != 0 {
		t.Errorf("首次应新建 3 门，实际 created=%d updated=%d", first.Created, first.Updated)
	}
	before := idsByKey(mocks.lecture)

	// 模拟已有选课记录
	enrolledID := before[model.NaturalKey("4190.101", "001")]
	mocks.timetableLecture.links = append(mocks.timetableLecture.links, model.TimetableLecture{TimetableID: 7, LectureID: enrolledID})

	second, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, freshCatalog())
	if err != nil {
		t.Fatalf("二次 Reconcile 失败: %v", err)
	}
	if second.Created != 0 || second.Updated != 3 {
		t.Errorf("二次应全部命中，实际 created=%d updated=%d", second.Created, second.Updated)
	}

	after := idsByKey(mocks.lecture)
	if len(after) != len(before) {
		t.Fatalf("课程数量变化: %d -> %d", len(before), len(after))
	}
	for key, id := range before {
		if after[key] != id {
			t.Errorf("%s 的主键发生变化: %d -> %d", key, id, after[key])
		}
	}
	if _, ok := mocks.lecture.lectures[mocks.timetableLecture.links[0].LectureID]; !ok {
		t.Error("选课记录引用的课程应仍然存在")
	}
}

func TestReconcile_ParsesTimes(t *testing.T) {
	svc, mocks := newTestCatalogService(config.StalePolicyRetain, nil)

	if _, err := svc.Reconcile(context.Background(), 2025, model.SemesterSpring, freshCatalog()); err != nil {
		t.Fatalf("Reconcile 失败: %v", err)
	}
	id := idsByKey(mocks.lecture)[model.NaturalKey("4190.101", "001")]
	l := mocks.lecture.lectures[id]
	if len(l.Times) != 1 || l.Times[0].DayOfWeek != "월" || l.Times[0].StartMinute != 540 || l.Times[0].EndMinute != 615 {
		t.Errorf("时段解析结果不符: %+v", l.Times)
	}
	noTime := mocks.lecture.lectures[idsByKey(mocks.lecture)[model.NaturalKey("4190.202", "001")]]
	if len(noTime.Times) != 0 {
		t.Errorf("无固定时间的课程不应有时段，实际 %+v", noTime.Times)
	}
}

func TestReconcile_SkipsBadTimesAndDuplicates(t *testing.T) {
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, nil)

	bad := rawLecture("4190.303", "001", "월(09:00~10:00)/수(09:00~10:00)") // 类型与地点只有一项
	dup := rawLecture("4190.101", "001", "금(15:00~16:00)")
	input := append(freshCatalog(), bad, dup)

	result, err := svc.Reconcile(context.Background(), 2025, model.SemesterSpring, input)
	if err != nil {
		t.Fatalf("单条解析失败不应中断整体: %v", err)
	}
	if result.Skipped != 2 {
		t.Errorf("期望跳过 2 条，实际 %d", result.Skipped)
	}
	if len(mocks.lecture.lectures) != 3 {
		t.Errorf("期望落库 3 门，实际 %d", len(mocks.lecture.lectures))
	}
	kept := mocks.lecture.lectures[idsByKey(mocks.lecture)[model.NaturalKey("4190.101", "001")]]
	if kept.Times[0].DayOfWeek != "월" {
		t.Error("重复自然键应保留首条")
	}
}

func TestReconcile_StalePolicy(t *testing.T) {
	ctx := context.Background()
	shrunk := freshCatalog()[:2]

	t.Run("deactivate", func(t *testing.T) {
		svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, nil)
		if _, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, freshCatalog()); err != nil {
			t.Fatal(err)
		}
		result, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, shrunk)
		if err != nil {
			t.Fatal(err)
		}
		if result.Deactivated != 1 {
			t.Errorf("期望停用 1 门，实际 %d", result.Deactivated)
		}
		goneID := idsByKey(mocks.lecture)[model.NaturalKey("4190.202", "001")]
		if mocks.lecture.lectures[goneID].IsActive {
			t.Error("消失的课程应被停用")
		}

		// 重新出现后恢复有效，主键不变
		if _, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, freshCatalog()); err != nil {
			t.Fatal(err)
		}
		back := mocks.lecture.lectures[goneID]
		if !back.IsActive {
			t.Error("重新出现的课程应恢复有效")
		}
	})

	t.Run("retain", func(t *testing.T) {
		svc, mocks := newTestCatalogService(config.StalePolicyRetain, nil)
		if _, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, freshCatalog()); err != nil {
			t.Fatal(err)
		}
		result, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, shrunk)
		if err != nil {
			t.Fatal(err)
		}
		if result.Deactivated != 0 {
			t.Errorf("retain 策略不应停用，实际 %d", result.Deactivated)
		}
		for _, l := range mocks.lecture.lectures {
			if !l.IsActive {
				t.Errorf("%s 不应被停用", l.NaturalKey())
			}
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, nil)
		if _, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, freshCatalog()); err != nil {
			t.Fatal(err)
		}
		result, err := svc.Reconcile(ctx, 2025, model.SemesterSpring, nil)
		if err != nil {
			t.Fatal(err)
		}
		if result.Deactivated != 0 {
			t.Errorf("空目录不应停用课程，实际 %d", result.Deactivated)
		}
		for _, l := range mocks.lecture.lectures {
			if !l.IsActive {
				t.Errorf("%s 不应被停用", l.NaturalKey())
			}
		}
	})
}

func TestReconcile_PersistFailure(t *testing.T) {
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, nil)
	mocks.lecture.upsertErr = errors.New("connection reset")

	if _, err := svc.Reconcile(context.Background(), 2025, model.SemesterSpring, freshCatalog()); err == nil {
		t.Fatal("落库失败应返回错误")
	}
}

// ════════════════════════════════════════════════════════════
// Refresh
// ════════════════════════════════════════════════════════════

func TestRefresh_FetchParseReconcile(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("xls")}
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, fetcher)
	svc.parse = func(data []byte, year int, semester model.Semester) ([]model.Lecture, error) {
		if string(data) != "xls" {
			t.Errorf("解析器收到的内容不符: %q", data)
		}
		return freshCatalog(), nil
	}

	result, err := svc.Refresh(context.Background(), 2025, model.SemesterSpring)
	if err != nil {
		t.Fatalf("Refresh 失败: %v", err)
	}
	if result.Fetched != 3 || result.Created != 3 {
		t.Errorf("统计不符: %+v", result)
	}
	if result.Semester != "SPRING" {
		t.Errorf("期望 Semester=SPRING，实际 %s", result.Semester)
	}
	if len(mocks.lecture.lectures) != 3 {
		t.Errorf("期望落库 3 门，实际 %d", len(mocks.lecture.lectures))
	}
}

func TestRefresh_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: apperrors.Wrap(apperrors.KindFetchTransport, "请求课程目录失败", errors.New("timeout"))}
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, fetcher)

	_, err := svc.Refresh(context.Background(), 2025, model.SemesterSpring)
	if !errors.Is(err, catalog.ErrFetchTransport) {
		t.Fatalf("期望 ErrFetchTransport，实际 %v", err)
	}
	if len(mocks.lecture.lectures) != 0 {
		t.Error("抓取失败时不应写入任何课程")
	}
}

func TestRefresh_ParseErrorLeavesStoreUntouched(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("broken")}
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, fetcher)
	existing := mocks.lecture.add(lectureAt("4190.101", "001", "월", 540, 615))

	_, err := svc.Refresh(context.Background(), 2025, model.SemesterSpring)
	if !errors.Is(err, catalog.ErrFetchParse) {
		t.Fatalf("期望 ErrFetchParse，实际 %v", err)
	}
	if !mocks.lecture.lectures[existing.LectureID].IsActive {
		t.Error("解析失败不应影响已有课程")
	}
}

func TestRefresh_ConcurrentCallsShareOneRun(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("xls"), delay: 100 * time.Millisecond}
	svc, _ := newTestCatalogService(config.StalePolicyDeactivate, fetcher)
	svc.parse = func([]byte, int, model.Semester) ([]model.Lecture, error) {
		return freshCatalog(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(context.Background(), 2025, model.SemesterSpring); err != nil {
				t.Errorf("Refresh 失败: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("并发刷新同一学期应只抓取一次，实际 %d 次", n)
	}
}

func TestRefresh_CanceledCallerDoesNotAbortSharedRun(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("xls"), delay: 150 * time.Millisecond}
	svc, mocks := newTestCatalogService(config.StalePolicyDeactivate, fetcher)
	svc.parse = func([]byte, int, model.Semester) ([]model.Lecture, error) {
		return freshCatalog(), nil
	}

	// 管理员请求先发起，随后断开
	adminCtx, cancel := context.WithCancel(context.Background())
	adminErr := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(adminCtx, 2025, model.SemesterSpring)
		adminErr <- err
	}()
	time.Sleep(30 * time.Millisecond)

	schedDone := make(chan error, 1)
	go func() {
		_, err := svc.Refresh(context.Background(), 2025, model.SemesterSpring)
		schedDone <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-adminErr; !errors.Is(err, context.Canceled) {
		t.Errorf("已取消的调用方应返回 context.Canceled，实际 %v", err)
	}
	if err := <-schedDone; err != nil {
		t.Fatalf("合并进来的调用方不应受取消影响: %v", err)
	}
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("应只抓取一次，实际 %d 次", n)
	}
	if n := len(mocks.lecture.lectures); n != 3 {
		t.Errorf("刷新结果应落库 3 门，实际 %d 门", n)
	}
}

func TestRefresh_SharedRunTimeout(t *testing.T) {
	fetcher := &fakeFetcher{data: []byte("xls"), delay: time.Second}
	svc, _ := newTestCatalogService(config.StalePolicyDeactivate, fetcher)
	svc.refreshTimeout = 20 * time.Millisecond

	_, err := svc.Refresh(context.Background(), 2025, model.SemesterSpring)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("刷新超时应返回 DeadlineExceeded，实际 %v", err)
	}
}

func TestRefresh_InvalidSemester(t *testing.T) {
	svc, _ := newTestCatalogService(config.StalePolicyDeactivate, &fakeFetcher{})
	if _, err := svc.Refresh(context.Background(), 2025, model.Semester(0)); !errors.Is(err, ErrInvalidSemester) {
		t.Errorf("期望 ErrInvalidSemester，实际 %v", err)
	}
}
