package model

// Timetable 个人时间表 — 对应 timetables
type Timetable struct {
	TimetableID int64    `gorm:"primaryKey;autoIncrement"   json:"timetable_id"`
	OwnerID     int64    `gorm:"not null;index"             json:"owner_id"`
	Year        int      `gorm:"not null"                   json:"year"`
	Semester    Semester `gorm:"type:smallint;not null"     json:"semester"`
	Title       string   `gorm:"type:varchar(100);not null" json:"title"` // (owner_id, title) 唯一
	BaseModel
}

// TableName 指定表名
func (Timetable) TableName() string { return "timetables" }

// TimetableLecture 时间表选课关系 — 对应 timetable_lectures
// (timetable_id, lecture_id) 为联合主键，同一时间表不会重复选同一课程
type TimetableLecture struct {
	TimetableID int64 `gorm:"primaryKey;autoIncrement:false" json:"timetable_id"`
	LectureID   int64 `gorm:"primaryKey;autoIncrement:false" json:"lecture_id"`
}

// TableName 指定表名
func (TimetableLecture) TableName() string { return "timetable_lectures" }
