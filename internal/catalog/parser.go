package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sugang-timetable/backend/internal/model"
)

// 目录前三行为标题与表头
const headerRows = 3

// 目录列位置
const (
	colClassification = 0
	colCollege        = 1
	colDepartment     = 2
	colAcademicCourse = 3
	colAcademicYear   = 4
	colCourseNumber   = 5
	colLectureNumber  = 6
	colCourseTitle    = 7
	colCourseSubtitle = 8
	colCredit         = 9
	colClassTime      = 12
	colClassType      = 13
	colLocation       = 14
	colInstructor     = 15
	colRemark         = 21
)

// ParseCatalog 将课程目录 Excel 解析为课程记录
// 读取第 4 行起至最后一行之前的所有行（最后一行为目录页脚），缺失或全空的行跳过
// 时间字段保持原文，由调用方再逐条解析；学分非数字时整个目录解析失败
func ParseCatalog(data []byte, year int, semester model.Semester) ([]model.Lecture, error) {
	if len(data) == 0 {
		return nil, parseError("课程目录为空", nil)
	}

	sh, err := openFirstSheet(data)
	if err != nil {
		return nil, parseError("无法打开课程目录", err)
	}

	lastRow := sh.LastRow()
	lectures := make([]model.Lecture, 0, max(lastRow-headerRows, 0))
	for i := headerRows; i < lastRow; i++ {
		if !sh.HasRow(i) || rowIsBlank(sh, i) {
			continue
		}

		credit, err := parseCredit(sh.Cell(i, colCredit))
		if err != nil {
			return nil, parseError(fmt.Sprintf("第 %d 行学分无效", i+1), err)
		}

		lectures = append(lectures, model.Lecture{
			Year:           year,
			Semester:       semester,
			Classification: cell(sh, i, colClassification),
			College:        cell(sh, i, colCollege),
			Department:     cell(sh, i, colDepartment),
			AcademicCourse: cell(sh, i, colAcademicCourse),
			AcademicYear:   cell(sh, i, colAcademicYear),
			CourseNumber:   cell(sh, i, colCourseNumber),
			LectureNumber:  cell(sh, i, colLectureNumber),
			CourseTitle:    cell(sh, i, colCourseTitle),
			CourseSubtitle: cell(sh, i, colCourseSubtitle),
			Credit:         credit,
			ClassTimeText:  cell(sh, i, colClassTime),
			ClassTypeText:  cell(sh, i, colClassType),
			Location:       cell(sh, i, colLocation),
			Instructor:     cell(sh, i, colInstructor),
			Remark:         cell(sh, i, colRemark),
			IsActive:       true,
		})
	}
	return lectures, nil
}

func cell(sh sheet, row, col int) string {
	return strings.TrimSpace(sh.Cell(row, col))
}

func rowIsBlank(sh sheet, row int) bool {
	for col := 0; col <= colRemark; col++ {
		if cell(sh, row, col) != "" {
			return false
		}
	}
	return true
}

// parseCredit 接受 "3" 与 "3.0"，空单元格视为 0
func parseCredit(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("学分为负数: %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("学分不是数字: %q", v)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, fmt.Errorf("学分不是非负整数: %q", v)
	}
	return int(f), nil
}
