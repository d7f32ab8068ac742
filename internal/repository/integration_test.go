//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/repository"
	"sugang-timetable/backend/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=sugang password=sugang_password dbname=sugang_test sslmode=disable TimeZone=Asia/Seoul"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 使用与生产一致的嵌入式迁移建表
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

var yearSeq atomic.Int32

// testYear 每个测试使用独立学年，避免数据互相干扰
func testYear(t *testing.T) int {
	t.Helper()
	year := 2000 + int(yearSeq.Add(1))
	t.Cleanup(func() {
		ctx := context.Background()
		testDB.WithContext(ctx).Exec("DELETE FROM timetable_lectures WHERE lecture_id IN (SELECT lecture_id FROM lectures WHERE year = ?)", year)
		testDB.WithContext(ctx).Exec("DELETE FROM timetables WHERE year = ?", year)
		testDB.WithContext(ctx).Exec("DELETE FROM lectures WHERE year = ?", year)
	})
	return year
}

func newLecture(year int, courseNumber, lectureNumber string, times ...model.LectureTime) model.Lecture {
	return model.Lecture{
		Year:          year,
		Semester:      model.SemesterSpring,
		CourseNumber:  courseNumber,
		LectureNumber: lectureNumber,
		CourseTitle:   "강의 " + courseNumber,
		Credit:        3,
		IsActive:      true,
		Times:         times,
	}
}

// ═══════════════════════════════════════════════════════════
// LectureRepository
// ═══════════════════════════════════════════════════════════

func TestLectureRepo_UpsertBatchKeepsIDs(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	year := testYear(t)

	batch := []model.Lecture{
		newLecture(year, "4190.101", "001", model.LectureTime{DayOfWeek: "월", StartMinute: 540, EndMinute: 615, LectureType: "이론"}),
		newLecture(year, "4190.101", "002"),
	}
	if err := repo.Lecture.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("首次写入失败: %v", err)
	}
	if batch[0].LectureID == 0 || batch[1].LectureID == 0 {
		t.Fatal("新建课程应回填主键")
	}

	// 覆盖：修改标题与时段
	updated := newLecture(year, "4190.101", "001", model.LectureTime{DayOfWeek: "화", StartMinute: 600, EndMinute: 675})
	updated.LectureID = batch[0].LectureID
	updated.CourseTitle = "자료구조"
	if err := repo.Lecture.UpsertBatch(ctx, []model.Lecture{updated}); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}

	got, err := repo.Lecture.GetByID(ctx, batch[0].LectureID)
	if err != nil {
		t.Fatal(err)
	}
	if got.CourseTitle != "자료구조" {
		t.Errorf("标题未更新: %s", got.CourseTitle)
	}
	if len(got.Times) != 1 || got.Times[0].DayOfWeek != "화" {
		t.Errorf("时段应整体替换，实际 %+v", got.Times)
	}

	keys, err := repo.Lecture.ListNaturalKeys(ctx, year, model.SemesterSpring)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("期望 2 个自然键，实际 %d", len(keys))
	}
}

func TestLectureRepo_SetActive(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	year := testYear(t)

	batch := []model.Lecture{newLecture(year, "100.001", "001"), newLecture(year, "100.002", "001")}
	if err := repo.Lecture.UpsertBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	n, err := repo.Lecture.SetActive(ctx, []int64{batch[0].LectureID}, false)
	if err != nil || n != 1 {
		t.Fatalf("停用失败: n=%d err=%v", n, err)
	}
	// 状态未变化的行不计数
	n, _ = repo.Lecture.SetActive(ctx, []int64{batch[0].LectureID}, false)
	if n != 0 {
		t.Errorf("重复停用应影响 0 行，实际 %d", n)
	}

	active, err := repo.Lecture.ListByYearAndSemester(ctx, year, model.SemesterSpring, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].LectureID != batch[1].LectureID {
		t.Errorf("仅应返回有效课程，实际 %+v", active)
	}
}

func TestLectureRepo_NaturalKeyUnique(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	year := testYear(t)

	if err := repo.Lecture.UpsertBatch(ctx, []model.Lecture{newLecture(year, "200.001", "001")}); err != nil {
		t.Fatal(err)
	}
	err := repo.Lecture.UpsertBatch(ctx, []model.Lecture{newLecture(year, "200.001", "001")})
	if err == nil {
		t.Error("同一自然键重复新建应违反唯一约束")
	}
}

// ═══════════════════════════════════════════════════════════
// TimetableRepository / TimetableLectureRepository
// ═══════════════════════════════════════════════════════════

func TestTimetableRepo_DuplicateTitle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	year := testYear(t)

	owner := time.Now().UnixNano()
	first := &model.Timetable{OwnerID: owner, Year: year, Semester: model.SemesterSpring, Title: "1안"}
	if err := repo.Timetable.Create(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &model.Timetable{OwnerID: owner, Year: year, Semester: model.SemesterAutumn, Title: "1안"}
	if err := repo.Timetable.Create(ctx, second); !errors.Is(err, repository.ErrDuplicateKey) {
		t.Errorf("期望 ErrDuplicateKey，实际 %v", err)
	}

	exists, err := repo.Timetable.ExistsByTitleAndOwner(ctx, "1안", owner)
	if err != nil || !exists {
		t.Errorf("ExistsByTitleAndOwner = %v, %v", exists, err)
	}
}

func TestTimetableLectureRepo_LinksAndCascade(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewRepository(testDB)
	year := testYear(t)

	lectures := []model.Lecture{newLecture(year, "300.001", "001"), newLecture(year, "300.002", "001")}
	if err := repo.Lecture.UpsertBatch(ctx, lectures); err != nil {
		t.Fatal(err)
	}
	tt := &model.Timetable{OwnerID: time.Now().UnixNano(), Year: year, Semester: model.SemesterSpring, Title: "t"}
	if err := repo.Timetable.Create(ctx, tt); err != nil {
		t.Fatal(err)
	}

	for _, l := range lectures {
		if err := repo.TimetableLecture.Create(ctx, &model.TimetableLecture{TimetableID: tt.TimetableID, LectureID: l.LectureID}); err != nil {
			t.Fatal(err)
		}
	}
	dup := &model.TimetableLecture{TimetableID: tt.TimetableID, LectureID: lectures[0].LectureID}
	if err := repo.TimetableLecture.Create(ctx, dup); !errors.Is(err, repository.ErrDuplicateKey) {
		t.Errorf("重复选课应返回 ErrDuplicateKey，实际 %v", err)
	}

	ids, err := repo.TimetableLecture.ListLectureIDs(ctx, tt.TimetableID)
	if err != nil || len(ids) != 2 {
		t.Fatalf("ListLectureIDs = %v, %v", ids, err)
	}

	n, err := repo.TimetableLecture.Delete(ctx, tt.TimetableID, lectures[0].LectureID)
	if err != nil || n != 1 {
		t.Errorf("Delete = %d, %v", n, err)
	}
	n, _ = repo.TimetableLecture.Delete(ctx, tt.TimetableID, lectures[0].LectureID)
	if n != 0 {
		t.Errorf("重复删除应影响 0 行，实际 %d", n)
	}

	// 删除时间表级联删除选课记录
	err = repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Timetable.GetByIDForUpdate(ctx, tt.TimetableID); err != nil {
			return err
		}
		return tx.Timetable.Delete(ctx, tt.TimetableID)
	})
	if err != nil {
		t.Fatal(err)
	}
	ids, _ = repo.TimetableLecture.ListLectureIDs(ctx, tt.TimetableID)
	if len(ids) != 0 {
		t.Errorf("级联删除后不应有选课记录，实际 %v", ids)
	}
	if _, err := repo.Timetable.GetByID(ctx, tt.TimetableID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("期望 ErrRecordNotFound，实际 %v", err)
	}
}
