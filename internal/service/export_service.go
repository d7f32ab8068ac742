package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"sugang-timetable/backend/config"
	"sugang-timetable/backend/internal/dto"
	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/repository"
	apperrors "sugang-timetable/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportUnsupportedFormat = apperrors.New(apperrors.KindExportUnsupportedFormat, "不支持的导出格式")
	ErrExportGenerateFail      = errors.New("生成导出文件失败")
)

// 导出格式
const (
	ExportFormatXLSX = "xlsx"
	ExportFormatICS  = "ics"
)

// ExportFile 导出结果
type ExportFile struct {
	Content     *bytes.Buffer
	Filename    string
	ContentType string
}

// ExportService 时间表导出业务接口
//
// 设计说明：
//   - xlsx：第一个 Sheet 为周视图（30 分钟一格，同一课程纵向合并），第二个 Sheet 为课程清单与总学分
//   - ics：每个上课时段生成一个按周重复的 VEVENT，首次上课日由学期开课日推算
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	ExportTimetable(ctx context.Context, timetableID int64, format string) (*ExportFile, error)
}

type exportService struct {
	cfg    *config.ExportConfig
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg *config.ExportConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{cfg: cfg, repo: repo, logger: logger}
}

func (s *exportService) ExportTimetable(ctx context.Context, timetableID int64, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatXLSX
	}
	if format != ExportFormatXLSX && format != ExportFormatICS {
		return nil, ErrExportUnsupportedFormat
	}

	timetable, err := findTimetable(ctx, s.repo, timetableID, false)
	if err != nil {
		return nil, err
	}
	lectures, err := loadEnrolledLectures(ctx, s.repo, timetableID)
	if err != nil {
		return nil, err
	}

	base := fmt.Sprintf("%d_%s_%s", timetable.Year, timetable.Semester.DisplayName(), timetable.Title)
	switch format {
	case ExportFormatICS:
		content, err := s.buildICS(timetable, lectures)
		if err != nil {
			s.logger.Error("生成 ics 失败", zap.Int64("timetable_id", timetableID), zap.Error(err))
			return nil, ErrExportGenerateFail
		}
		return &ExportFile{
			Content:     content,
			Filename:    base + ".ics",
			ContentType: "text/calendar; charset=utf-8",
		}, nil
	default:
		content, err := buildTimetableXLSX(timetable, lectures)
		if err != nil {
			s.logger.Error("生成 Excel 失败", zap.Int64("timetable_id", timetableID), zap.Error(err))
			return nil, ErrExportGenerateFail
		}
		return &ExportFile{
			Content:     content,
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		}, nil
	}
}

// ═══════════════════════════════════════════════════════════
// xlsx
// ═══════════════════════════════════════════════════════════

const (
	gridSheet    = "시간표"
	listSheet    = "강의목록"
	slotMinutes  = 30
	defaultFirst = 9 * 60
	defaultLast  = 18 * 60
)

func buildTimetableXLSX(timetable *model.Timetable, lectures []model.Lecture) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(gridSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(listSheet); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	lectureStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border: []excelize.Border{
			{Type: "left", Color: "#9BC2E6", Style: 1},
			{Type: "right", Color: "#9BC2E6", Style: 1},
			{Type: "top", Color: "#9BC2E6", Style: 1},
			{Type: "bottom", Color: "#9BC2E6", Style: 1},
		},
	})

	// ── 周视图 ──
	days := gridDays(lectures)
	first, last := gridRange(lectures)

	_ = f.SetColWidth(gridSheet, "A", "A", 8)
	lastCol := colName(len(days))
	_ = f.SetColWidth(gridSheet, "B", lastCol, 18)

	_ = f.SetCellValue(gridSheet, "A1", fmt.Sprintf("%d %s %s", timetable.Year, timetable.Semester.DisplayName(), timetable.Title))
	_ = f.MergeCell(gridSheet, "A1", cell(lastCol, 1))
	_ = f.SetCellStyle(gridSheet, "A1", cell(lastCol, 1), headerStyle)

	_ = f.SetCellValue(gridSheet, "A2", "시간")
	for i, d := range days {
		_ = f.SetCellValue(gridSheet, cell(colName(i+1), 2), d)
	}
	_ = f.SetCellStyle(gridSheet, "A2", cell(lastCol, 2), headerStyle)

	rowOf := func(minute int) int { return 3 + (minute-first)/slotMinutes }
	for m := first; m < last; m += slotMinutes {
		_ = f.SetCellValue(gridSheet, cell("A", rowOf(m)), dto.FormatMinute(m))
	}

	for _, l := range lectures {
		for _, t := range l.Times {
			col := colName(1 + slices.Index(days, t.DayOfWeek))
			top := rowOf(t.StartMinute - (t.StartMinute-first)%slotMinutes)
			bottom := rowOf(t.EndMinute-1) // 结束时刻所在格不计入
			text := l.CourseTitle
			if t.Location != "" {
				text += "\n" + t.Location
			}
			_ = f.SetCellValue(gridSheet, cell(col, top), text)
			if bottom > top {
				_ = f.MergeCell(gridSheet, cell(col, top), cell(col, bottom))
			}
			_ = f.SetCellStyle(gridSheet, cell(col, top), cell(col, bottom), lectureStyle)
		}
	}

	// ── 课程清单 ──
	headers := []string{"교과목번호", "강좌번호", "교과목명", "학점", "담당교수", "수업교시", "강의실"}
	for i, h := range headers {
		_ = f.SetCellValue(listSheet, cell(colName(i), 1), h)
	}
	_ = f.SetCellStyle(listSheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	_ = f.SetColWidth(listSheet, "A", "B", 12)
	_ = f.SetColWidth(listSheet, "C", "C", 30)
	_ = f.SetColWidth(listSheet, "E", "G", 24)

	total := 0
	row := 2
	for _, l := range lectures {
		_ = f.SetCellValue(listSheet, cell("A", row), l.CourseNumber)
		_ = f.SetCellValue(listSheet, cell("B", row), l.LectureNumber)
		_ = f.SetCellValue(listSheet, cell("C", row), l.CourseTitle)
		_ = f.SetCellValue(listSheet, cell("D", row), l.Credit)
		_ = f.SetCellValue(listSheet, cell("E", row), l.Instructor)
		_ = f.SetCellValue(listSheet, cell("F", row), l.ClassTimeText)
		_ = f.SetCellValue(listSheet, cell("G", row), l.Location)
		total += l.Credit
		row++
	}
	_ = f.SetCellValue(listSheet, cell("C", row), "합계")
	_ = f.SetCellValue(listSheet, cell("D", row), total)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// gridDays 周一到周五固定显示，有周末课程时追加
func gridDays(lectures []model.Lecture) []string {
	days := append([]string{}, model.DayOrder[:5]...)
	for _, weekend := range model.DayOrder[5:] {
		for _, l := range lectures {
			if slices.Index(days, weekend) < 0 && hasDay(l.Times, weekend) {
				days = append(days, weekend)
			}
		}
	}
	return days
}

// gridRange 返回按 30 分钟对齐的显示区间，默认 09:00–18:00
func gridRange(lectures []model.Lecture) (int, int) {
	first, last := defaultFirst, defaultLast
	for _, l := range lectures {
		for _, t := range l.Times {
			first = min(first, t.StartMinute-t.StartMinute%slotMinutes)
			last = max(last, (t.EndMinute+slotMinutes-1)/slotMinutes*slotMinutes)
		}
	}
	return first, last
}

func hasDay(times []model.LectureTime, day string) bool {
	for _, t := range times {
		if t.DayOfWeek == day {
			return true
		}
	}
	return false
}

// ═══════════════════════════════════════════════════════════
// ics
// ═══════════════════════════════════════════════════════════

var dayWeekdays = map[string]time.Weekday{
	"월": time.Monday,
	"화": time.Tuesday,
	"수": time.Wednesday,
	"목": time.Thursday,
	"금": time.Friday,
	"토": time.Saturday,
	"일": time.Sunday,
}

func (s *exportService) buildICS(timetable *model.Timetable, lectures []model.Lecture) (*bytes.Buffer, error) {
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", s.cfg.Timezone, err)
	}

	semesterKey := strings.ToLower(timetable.Semester.String())
	startText, ok := s.cfg.SemesterStarts[semesterKey]
	if !ok {
		return nil, fmt.Errorf("未配置 %s 学期开课日", semesterKey)
	}
	semesterStart, err := time.ParseInLocation("2006-01-02", fmt.Sprintf("%d-%s", timetable.Year, startText), loc)
	if err != nil {
		return nil, fmt.Errorf("学期开课日格式无效 %q: %w", startText, err)
	}
	weeks := s.cfg.SemesterWeeks[semesterKey]
	if weeks <= 0 {
		weeks = 16
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//sugang-timetable//timetable export//KO")
	cal.SetXWRCalName(timetable.Title)
	cal.SetXWRTimezone(s.cfg.Timezone)

	now := time.Now()
	for _, l := range lectures {
		// 按时段排序，保证 UID 稳定
		times := append([]model.LectureTime{}, l.Times...)
		sort.SliceStable(times, func(i, j int) bool {
			di, dj := model.DayIndex(times[i].DayOfWeek), model.DayIndex(times[j].DayOfWeek)
			if di != dj {
				return di < dj
			}
			return times[i].StartMinute < times[j].StartMinute
		})

		for i, t := range times {
			weekday, ok := dayWeekdays[t.DayOfWeek]
			if !ok {
				continue
			}
			day := firstWeekday(semesterStart, weekday)
			start := day.Add(time.Duration(t.StartMinute) * time.Minute)
			end := day.Add(time.Duration(t.EndMinute) * time.Minute)

			uid := fmt.Sprintf("tt%d-lec%d-%d@sugang-timetable", timetable.TimetableID, l.LectureID, i)
			event := cal.AddEvent(uid)
			event.SetDtStampTime(now)
			event.SetStartAt(start)
			event.SetEndAt(end)
			event.SetSummary(l.CourseTitle)
			if t.Location != "" {
				event.SetLocation(t.Location)
			}
			event.SetDescription(fmt.Sprintf("%s (%s) %s · %d학점", l.CourseNumber, l.LectureNumber, l.Instructor, l.Credit))
			event.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		}
	}

	return bytes.NewBufferString(cal.Serialize()), nil
}

// firstWeekday 返回 from 当天或之后第一个指定星期的零点
func firstWeekday(from time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, offset)
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
