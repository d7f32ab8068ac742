package service

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"sugang-timetable/backend/internal/model"
	"sugang-timetable/backend/internal/repository"
)

// ── Mock LectureRepository ──

type mockLectureRepo struct {
	lectures map[int64]*model.Lecture
	nextID   int64
	// upsertErr 非 nil 时 UpsertBatch 直接返回该错误
	upsertErr error
}

func newMockLectureRepo() *mockLectureRepo {
	return &mockLectureRepo{lectures: make(map[int64]*model.Lecture), nextID: 1}
}

// add 直接放入一门课程并分配主键
func (m *mockLectureRepo) add(l model.Lecture) *model.Lecture {
	if l.LectureID == 0 {
		l.LectureID = m.nextID
		m.nextID++
	}
	m.lectures[l.LectureID] = &l
	return &l
}

func (m *mockLectureRepo) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.lectures))
	for id := range m.lectures {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *mockLectureRepo) ListByYearAndSemester(_ context.Context, year int, semester model.Semester, activeOnly bool) ([]model.Lecture, error) {
	var result []model.Lecture
	for _, id := range m.sortedIDs() {
		l := m.lectures[id]
		if l.Year != year || l.Semester != semester {
			continue
		}
		if activeOnly && !l.IsActive {
			continue
		}
		result = append(result, *l)
	}
	return result, nil
}

func (m *mockLectureRepo) ListNaturalKeys(_ context.Context, year int, semester model.Semester) ([]model.LectureKey, error) {
	var keys []model.LectureKey
	for _, id := range m.sortedIDs() {
		l := m.lectures[id]
		if l.Year == year && l.Semester == semester {
			keys = append(keys, model.LectureKey{
				LectureID:     l.LectureID,
				CourseNumber:  l.CourseNumber,
				LectureNumber: l.LectureNumber,
				IsActive:      l.IsActive,
			})
		}
	}
	return keys, nil
}

func (m *mockLectureRepo) GetByID(_ context.Context, id int64) (*model.Lecture, error) {
	if l, ok := m.lectures[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLectureRepo) ListByIDs(_ context.Context, ids []int64) ([]model.Lecture, error) {
	var result []model.Lecture
	for _, id := range ids {
		if l, ok := m.lectures[id]; ok {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLectureRepo) UpsertBatch(_ context.Context, lectures []model.Lecture) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for i := range lectures {
		if lectures[i].LectureID == 0 {
			lectures[i].LectureID = m.nextID
			m.nextID++
		}
		cp := lectures[i]
		cp.Times = append([]model.LectureTime(nil), lectures[i].Times...)
		m.lectures[cp.LectureID] = &cp
	}
	return nil
}

func (m *mockLectureRepo) SetActive(_ context.Context, ids []int64, active bool) (int64, error) {
	var n int64
	for _, id := range ids {
		if l, ok := m.lectures[id]; ok && l.IsActive != active {
			l.IsActive = active
			n++
		}
	}
	return n, nil
}

// ── Mock TimetableRepository ──

type mockTimetableRepo struct {
	timetables map[int64]*model.Timetable
	nextID     int64
}

func newMockTimetableRepo() *mockTimetableRepo {
	return &mockTimetableRepo{timetables: make(map[int64]*model.Timetable), nextID: 1}
}

func (m *mockTimetableRepo) Create(_ context.Context, timetable *model.Timetable) error {
	for _, t := range m.timetables {
		if t.OwnerID == timetable.OwnerID && t.Title == timetable.Title {
			return repository.ErrDuplicateKey
		}
	}
	timetable.TimetableID = m.nextID
	m.nextID++
	cp := *timetable
	m.timetables[cp.TimetableID] = &cp
	return nil
}

func (m *mockTimetableRepo) GetByID(_ context.Context, id int64) (*model.Timetable, error) {
	if t, ok := m.timetables[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTimetableRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Timetable, error) {
	return m.GetByID(ctx, id)
}

func (m *mockTimetableRepo) ListByOwner(_ context.Context, ownerID int64) ([]model.Timetable, error) {
	var result []model.Timetable
	for id := int64(1); id < m.nextID; id++ {
		if t, ok := m.timetables[id]; ok && t.OwnerID == ownerID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockTimetableRepo) ExistsByTitleAndOwner(_ context.Context, title string, ownerID int64) (bool, error) {
	for _, t := range m.timetables {
		if t.OwnerID == ownerID && t.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTimetableRepo) Update(_ context.Context, timetable *model.Timetable) error {
	cp := *timetable
	m.timetables[cp.TimetableID] = &cp
	return nil
}

func (m *mockTimetableRepo) Delete(_ context.Context, id int64) error {
	delete(m.timetables, id)
	return nil
}

// ── Mock TimetableLectureRepository ──

type mockTimetableLectureRepo struct {
	links []model.TimetableLecture
}

func newMockTimetableLectureRepo() *mockTimetableLectureRepo {
	return &mockTimetableLectureRepo{}
}

func (m *mockTimetableLectureRepo) Create(_ context.Context, link *model.TimetableLecture) error {
	for _, l := range m.links {
		if l == *link {
			return repository.ErrDuplicateKey
		}
	}
	m.links = append(m.links, *link)
	return nil
}

func (m *mockTimetableLectureRepo) Delete(_ context.Context, timetableID, lectureID int64) (int64, error) {
	for i, l := range m.links {
		if l.TimetableID == timetableID && l.LectureID == lectureID {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockTimetableLectureRepo) ListLectureIDs(_ context.Context, timetableID int64) ([]int64, error) {
	var ids []int64
	for _, l := range m.links {
		if l.TimetableID == timetableID {
			ids = append(ids, l.LectureID)
		}
	}
	return ids, nil
}

func (m *mockTimetableLectureRepo) DeleteByTimetable(_ context.Context, timetableID int64) error {
	kept := m.links[:0]
	for _, l := range m.links {
		if l.TimetableID != timetableID {
			kept = append(kept, l)
		}
	}
	m.links = kept
	return nil
}

// ── 测试装配 ──

type mockRepos struct {
	lecture          *mockLectureRepo
	timetable        *mockTimetableRepo
	timetableLecture *mockTimetableLectureRepo
}

func newMockRepository() (*repository.Repository, *mockRepos) {
	mocks := &mockRepos{
		lecture:          newMockLectureRepo(),
		timetable:        newMockTimetableRepo(),
		timetableLecture: newMockTimetableLectureRepo(),
	}
	repo := &repository.Repository{
		Lecture:          mocks.lecture,
		Timetable:        mocks.timetable,
		TimetableLecture: mocks.timetableLecture,
	}
	return repo, mocks
}

// lectureAt 构造一门带单个时段的课程
func lectureAt(courseNumber, lectureNumber, day string, start, end int) model.Lecture {
	return model.Lecture{
		Year:          2025,
		Semester:      model.SemesterSpring,
		CourseNumber:  courseNumber,
		LectureNumber: lectureNumber,
		CourseTitle:   "강의 " + courseNumber,
		Credit:        3,
		IsActive:      true,
		Times: []model.LectureTime{
			{DayOfWeek: day, StartMinute: start, EndMinute: end},
		},
	}
}
