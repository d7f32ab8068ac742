package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Semester 学期，数值与课程目录系统的学期编码一致
type Semester int

const (
	SemesterSpring Semester = 1
	SemesterAutumn Semester = 2
	SemesterSummer Semester = 3
	SemesterWinter Semester = 4
)

// AllSemesters 按学年内的先后顺序排列
var AllSemesters = []Semester{SemesterSpring, SemesterSummer, SemesterAutumn, SemesterWinter}

var semesterNames = map[Semester]string{
	SemesterSpring: "SPRING",
	SemesterAutumn: "AUTUMN",
	SemesterSummer: "SUMMER",
	SemesterWinter: "WINTER",
}

// 课程目录页面上显示的学期名
var semesterDisplayNames = map[Semester]string{
	SemesterSpring: "1학기",
	SemesterAutumn: "2학기",
	SemesterSummer: "여름학기",
	SemesterWinter: "겨울학기",
}

// Valid 是否为已知学期
func (s Semester) Valid() bool {
	_, ok := semesterNames[s]
	return ok
}

func (s Semester) String() string {
	if name, ok := semesterNames[s]; ok {
		return name
	}
	return "Semester(" + strconv.Itoa(int(s)) + ")"
}

// DisplayName 学期的韩文显示名
func (s Semester) DisplayName() string {
	return semesterDisplayNames[s]
}

// ParseSemester 解析学期，接受名称（不区分大小写）或数值编码
func ParseSemester(v string) (Semester, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		s := Semester(n)
		if s.Valid() {
			return s, nil
		}
		return 0, fmt.Errorf("未知学期编码: %d", n)
	}
	upper := strings.ToUpper(v)
	for s, name := range semesterNames {
		if name == upper {
			return s, nil
		}
	}
	return 0, fmt.Errorf("未知学期: %q", v)
}

// MarshalJSON 以名称输出
func (s Semester) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON 接受名称或数值
func (s *Semester) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case float64:
		text = strconv.Itoa(int(v))
	default:
		return fmt.Errorf("无效的学期值: %s", string(data))
	}
	parsed, err := ParseSemester(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
