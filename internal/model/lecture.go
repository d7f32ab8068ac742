package model

// Lecture 课程（讲座）表 — 对应 lectures
// 自然键为 (year, semester, course_number, lecture_number)
type Lecture struct {
	LectureID      int64         `gorm:"primaryKey;autoIncrement"                      json:"lecture_id"`
	Year           int           `gorm:"not null"                                      json:"year"`
	Semester       Semester      `gorm:"type:smallint;not null"                        json:"semester"`
	Classification string        `gorm:"type:varchar(50);not null;default:''"          json:"classification"`
	College        string        `gorm:"type:varchar(100);not null;default:''"         json:"college"`
	Department     string        `gorm:"type:varchar(100);not null;default:''"         json:"department"`
	AcademicCourse string        `gorm:"type:varchar(50);not null;default:''"          json:"academic_course"`
	AcademicYear   string        `gorm:"type:varchar(20);not null;default:''"          json:"academic_year"`
	CourseNumber   string        `gorm:"type:varchar(30);not null"                     json:"course_number"`
	LectureNumber  string        `gorm:"type:varchar(10);not null"                     json:"lecture_number"`
	CourseTitle    string        `gorm:"type:varchar(255);not null;default:''"         json:"course_title"`
	CourseSubtitle string        `gorm:"type:varchar(255);not null;default:''"         json:"course_subtitle"`
	Credit         int           `gorm:"not null;default:0"                            json:"credit"`
	ClassTimeText  string        `gorm:"type:text;not null;default:''"                 json:"class_time_text"`
	ClassTypeText  string        `gorm:"type:text;not null;default:''"                 json:"class_type_text"`
	Location       string        `gorm:"type:text;not null;default:''"                 json:"location"`
	Instructor     string        `gorm:"type:varchar(255);not null;default:''"         json:"instructor"`
	Remark         string        `gorm:"type:text;not null;default:''"                 json:"remark"`
	IsActive       bool          `gorm:"not null;default:true"                         json:"is_active"`
	Times          []LectureTime `gorm:"foreignKey:LectureID"                          json:"times"`
	BaseModel
}

// TableName 指定表名
func (Lecture) TableName() string { return "lectures" }

// NaturalKey 学年学期内唯一标识一门课程的键
func (l *Lecture) NaturalKey() string {
	return NaturalKey(l.CourseNumber, l.LectureNumber)
}

// NaturalKey 由课程号与班号组成
func NaturalKey(courseNumber, lectureNumber string) string {
	return courseNumber + "##" + lectureNumber
}

// LectureKey 课程自然键的投影，仅用于对账
type LectureKey struct {
	LectureID     int64
	CourseNumber  string
	LectureNumber string
	IsActive      bool
}
