package service

import "sugang-timetable/backend/internal/model"

// LecturesOverlap 两门课程任意一对时段在同一天且区间相交即冲突
func LecturesOverlap(a, b *model.Lecture) bool {
	return TimesOverlap(a.Times, b.Times)
}

// TimesOverlap 逐对比较两组时段，区间为左闭右开
func TimesOverlap(a, b []model.LectureTime) bool {
	for _, ta := range a {
		for _, tb := range b {
			if ta.Overlaps(tb) {
				return true
			}
		}
	}
	return false
}
