package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"sugang-timetable/backend/internal/model"
)

// 时段记号形如 "월(09:30~10:45)"，也接受 "월09:30-10:45"
var clockRangePattern = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*[~\-]\s*(\d{1,2}):(\d{2})`)

const minutesPerDay = 24 * 60

// ParseLectureTimes 解析课程目录中的上课时间、授课类型、授课地点三列
// 三列均以 "/" 分隔且项数必须一致；时间列为空表示无固定上课时间
// 结果去重并按星期、开始时间排序
func ParseLectureTimes(timeText, typeText, locationText string) ([]model.LectureTime, error) {
	if strings.TrimSpace(timeText) == "" {
		return []model.LectureTime{}, nil
	}

	times := strings.Split(timeText, "/")
	types := strings.Split(typeText, "/")
	locations := strings.Split(locationText, "/")
	if len(times) != len(types) || len(times) != len(locations) {
		return nil, parseError(
			fmt.Sprintf("时间/类型/地点项数不一致 (%d/%d/%d)", len(times), len(types), len(locations)),
			nil,
		)
	}

	result := make([]model.LectureTime, 0, len(times))
	for i, token := range times {
		slot, err := parseTimeToken(token)
		if err != nil {
			return nil, err
		}
		slot.LectureType = strings.TrimSpace(types[i])
		slot.Location = strings.TrimSpace(locations[i])
		if !model.ContainsSlot(result, slot) {
			result = append(result, slot)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		di, dj := model.DayIndex(result[i].DayOfWeek), model.DayIndex(result[j].DayOfWeek)
		if di != dj {
			return di < dj
		}
		if result[i].StartMinute != result[j].StartMinute {
			return result[i].StartMinute < result[j].StartMinute
		}
		return result[i].EndMinute < result[j].EndMinute
	})
	return result, nil
}

func parseTimeToken(token string) (model.LectureTime, error) {
	token = strings.TrimSpace(token)
	day, size := utf8.DecodeRuneInString(token)
	if day == utf8.RuneError || model.DayIndex(string(day)) == len(model.DayOrder) {
		return model.LectureTime{}, parseError(fmt.Sprintf("无法识别的星期: %q", token), nil)
	}

	m := clockRangePattern.FindStringSubmatch(token[size:])
	if m == nil {
		return model.LectureTime{}, parseError(fmt.Sprintf("无法识别的时间段: %q", token), nil)
	}

	start, err := toMinute(m[1], m[2])
	if err != nil {
		return model.LectureTime{}, parseError(fmt.Sprintf("无效的开始时间: %q", token), err)
	}
	end, err := toMinute(m[3], m[4])
	if err != nil {
		return model.LectureTime{}, parseError(fmt.Sprintf("无效的结束时间: %q", token), err)
	}
	if end > minutesPerDay || start >= end {
		return model.LectureTime{}, parseError(fmt.Sprintf("时间段越界: %q", token), nil)
	}

	return model.LectureTime{
		DayOfWeek:   string(day),
		StartMinute: start,
		EndMinute:   end,
	}, nil
}

func toMinute(hh, mm string) (int, error) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	if m >= 60 {
		return 0, fmt.Errorf("分钟超出范围: %d", m)
	}
	return h*60 + m, nil
}
