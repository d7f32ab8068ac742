package model

// LectureTime 课程上课时段表 — 对应 lecture_times
// StartMinute/EndMinute 为当天零点起的分钟数，区间 [start, end)
type LectureTime struct {
	LectureTimeID int64  `gorm:"primaryKey;autoIncrement"              json:"-"`
	LectureID     int64  `gorm:"not null;index"                        json:"-"`
	DayOfWeek     string `gorm:"type:varchar(4);not null"              json:"day_of_week"` // 월 화 수 목 금 토 일
	StartMinute   int    `gorm:"not null"                              json:"start_minute"`
	EndMinute     int    `gorm:"not null"                              json:"end_minute"`
	LectureType   string `gorm:"type:varchar(50);not null;default:''"  json:"lecture_type"`
	Location      string `gorm:"type:varchar(255);not null;default:''" json:"location"`
}

// TableName 指定表名
func (LectureTime) TableName() string { return "lecture_times" }

// DayOrder 课程目录使用的星期记号，按周一到周日排列
var DayOrder = []string{"월", "화", "수", "목", "금", "토", "일"}

// DayIndex 返回星期记号在 DayOrder 中的位置，未知记号返回 len(DayOrder)
func DayIndex(day string) int {
	for i, d := range DayOrder {
		if d == day {
			return i
		}
	}
	return len(DayOrder)
}

// Overlaps 同一天且时间区间相交即视为冲突；首尾相接不算冲突
func (t LectureTime) Overlaps(o LectureTime) bool {
	return t.DayOfWeek == o.DayOfWeek && t.StartMinute < o.EndMinute && o.StartMinute < t.EndMinute
}

// sameSlot 比较时段内容，忽略主键
func (t LectureTime) sameSlot(o LectureTime) bool {
	return t.DayOfWeek == o.DayOfWeek &&
		t.StartMinute == o.StartMinute &&
		t.EndMinute == o.EndMinute &&
		t.LectureType == o.LectureType &&
		t.Location == o.Location
}

// ContainsSlot 判断 times 中是否已有相同时段
func ContainsSlot(times []LectureTime, t LectureTime) bool {
	for _, x := range times {
		if x.sameSlot(t) {
			return true
		}
	}
	return false
}
