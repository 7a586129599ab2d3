package roster

import (
	"context"
	"sync"
	"time"
)

// Service turns scanned codes into attendance facts, enforcing the
// one-check-in-per-day rule.
type Service struct {
	repo *Repository

	// mu serializes the read-check-write span of a check-in so two
	// concurrent scans of the same code cannot both pass the duplicate
	// probe. This only covers a single process; the store itself has no
	// conditional writes.
	mu  sync.Mutex
	now func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CheckIn resolves code to a student and records their attendance for
// today. ErrStudentNotFound when the code matches nobody;
// *AlreadyCheckedInError when a record for today already exists, in
// which case the store is left unchanged.
func (s *Service) CheckIn(ctx context.Context, code string) (Student, AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.repo.FindStudentByCode(ctx, code)
	if err != nil {
		return Student{}, AttendanceRecord{}, err
	}
	if student == nil {
		return Student{}, AttendanceRecord{}, ErrStudentNotFound
	}

	existing, err := s.repo.FindAttendanceForDay(ctx, student.ID, s.now())
	if err != nil {
		return Student{}, AttendanceRecord{}, err
	}
	if existing != nil {
		return Student{}, AttendanceRecord{}, &AlreadyCheckedInError{StudentName: student.Name}
	}

	rec, err := s.repo.InsertAttendance(ctx, AttendanceRecord{
		StudentID: student.ID,
		Timestamp: s.now(),
		Status:    StatusPresent,
	})
	if err != nil {
		return Student{}, AttendanceRecord{}, err
	}
	return *student, rec, nil
}

// Stats summarizes today's attendance.
type Stats struct {
	TotalStudents int     `json:"totalStudents"`
	PresentToday  int     `json:"presentToday"`
	Rate          float64 `json:"rate"`
}

// TodayStats reports how much of the roster has checked in today.
func (s *Service) TodayStats(ctx context.Context) (Stats, error) {
	students, err := s.repo.ListStudents(ctx)
	if err != nil {
		return Stats{}, err
	}
	today, err := s.repo.ListAttendanceToday(ctx)
	if err != nil {
		return Stats{}, err
	}
	present := 0
	for _, rec := range today {
		if rec.Status == StatusPresent {
			present++
		}
	}
	stats := Stats{TotalStudents: len(students), PresentToday: present}
	if len(students) > 0 {
		stats.Rate = float64(present) / float64(len(students))
	}
	return stats, nil
}
