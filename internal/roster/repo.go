package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"rollcall/internal/kvstore"
)

// Key prefixes of the flat store layout.
const (
	studentPrefix      = "student:"
	attendancePrefix   = "attendance:"
	devicePrefix       = "device:"
	refreshTokenPrefix = "token:refresh:"
)

// Repository provides typed access to students and attendance records
// stored as JSON documents in a key-value store. No other component
// writes to the store directly.
type Repository struct {
	kv  kvstore.Store
	loc *time.Location
	now func() time.Time
}

// NewRepository creates a repo. loc is the reference time zone for
// calendar-day comparisons.
func NewRepository(kv kvstore.Store, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{kv: kv, loc: loc, now: time.Now}
}

// newID builds a time-based token like STU1757000000000000000. Collisions
// under concurrent creation are an accepted non-goal for roster-sized data.
func (r *Repository) newID(prefix string) string {
	return prefix + strconv.FormatInt(r.now().UnixNano(), 10)
}

// dayKey reduces an instant to its calendar day in the reference zone.
func (r *Repository) dayKey(t time.Time) string {
	return t.In(r.loc).Format("2006-01-02")
}

// ---------- Students ----------

// ListStudents returns all stored students, dropping entries missing
// id, name, or email. Order is not guaranteed.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	raws, err := r.kv.ScanPrefix(ctx, studentPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	students := make([]Student, 0, len(raws))
	for _, raw := range raws {
		var s Student
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if !s.wellFormed() {
			continue
		}
		students = append(students, s)
	}
	return students, nil
}

// GetStudent returns the student at id, or ErrNotFound.
func (r *Repository) GetStudent(ctx context.Context, id string) (Student, error) {
	raw, err := r.kv.Get(ctx, studentPrefix+id)
	if err != nil {
		return Student{}, fmt.Errorf("get student: %w", err)
	}
	if raw == nil {
		return Student{}, ErrNotFound
	}
	var s Student
	if err := json.Unmarshal(raw, &s); err != nil {
		return Student{}, fmt.Errorf("decode student %s: %w", id, err)
	}
	return s, nil
}

// NewStudent holds the caller-supplied fields of a create.
type NewStudent struct {
	Name          string
	Email         string
	StudentNumber string
	Country       string
}

// CreateStudent generates an id, sets qrCode equal to it, stamps
// createdAt, persists, and returns the stored record.
func (r *Repository) CreateStudent(ctx context.Context, in NewStudent) (Student, error) {
	id := r.newID("STU")
	s := Student{
		ID:            id,
		Name:          in.Name,
		Email:         in.Email,
		StudentNumber: in.StudentNumber,
		Country:       in.Country,
		QRCode:        id,
		CreatedAt:     r.now(),
	}
	if err := r.putStudent(ctx, s); err != nil {
		return Student{}, err
	}
	return s, nil
}

// StudentPatch is a partial update; nil fields are left untouched,
// non-nil fields fully replace the stored value. Field shapes are not
// re-validated on update.
type StudentPatch struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	StudentNumber *string `json:"studentNumber"`
	Country       *string `json:"country"`
}

// UpdateStudent merges patch into the stored record. ErrNotFound when
// id is unknown.
func (r *Repository) UpdateStudent(ctx context.Context, id string, patch StudentPatch) (Student, error) {
	s, err := r.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if patch.Name != nil {
		s.Name = *patch.Name
	}
	if patch.Email != nil {
		s.Email = *patch.Email
	}
	if patch.StudentNumber != nil {
		s.StudentNumber = *patch.StudentNumber
	}
	if patch.Country != nil {
		s.Country = *patch.Country
	}
	if err := r.putStudent(ctx, s); err != nil {
		return Student{}, err
	}
	return s, nil
}

// DeleteStudent removes the student and every attendance record that
// references it. ErrNotFound when id is unknown.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	if _, err := r.GetStudent(ctx, id); err != nil {
		return err
	}
	if err := r.kv.Delete(ctx, studentPrefix+id); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	records, err := r.allAttendance(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.StudentID != id {
			continue
		}
		if err := r.kv.Delete(ctx, attendancePrefix+rec.ID); err != nil {
			return fmt.Errorf("cascade delete attendance %s: %w", rec.ID, err)
		}
	}
	return nil
}

// FindStudentByCode resolves a scanned code to a student. Only entries
// carrying id, name, and qrCode participate. Returns nil when no
// student matches.
func (r *Repository) FindStudentByCode(ctx context.Context, code string) (*Student, error) {
	raws, err := r.kv.ScanPrefix(ctx, studentPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	for _, raw := range raws {
		var s Student
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if !s.scannable() {
			continue
		}
		if s.QRCode == code {
			return &s, nil
		}
	}
	return nil, nil
}

func (r *Repository) putStudent(ctx context.Context, s Student) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode student: %w", err)
	}
	if err := r.kv.Set(ctx, studentPrefix+s.ID, raw); err != nil {
		return fmt.Errorf("store student: %w", err)
	}
	return nil
}

// ---------- Attendance ----------

// ListAttendance returns all well-formed attendance records, most
// recent first.
func (r *Repository) ListAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	records, err := r.allAttendance(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(records)
	return records, nil
}

// ListAttendanceToday returns today's well-formed records, most recent
// first. "Today" is computed at call time in the reference zone.
func (r *Repository) ListAttendanceToday(ctx context.Context) ([]AttendanceRecord, error) {
	records, err := r.allAttendance(ctx)
	if err != nil {
		return nil, err
	}
	today := r.dayKey(r.now())
	filtered := records[:0]
	for _, rec := range records {
		if r.dayKey(rec.Timestamp) == today {
			filtered = append(filtered, rec)
		}
	}
	sortNewestFirst(filtered)
	return filtered, nil
}

// FindAttendanceForDay returns the student's record on the calendar day
// of t, or nil when none exists.
func (r *Repository) FindAttendanceForDay(ctx context.Context, studentID string, t time.Time) (*AttendanceRecord, error) {
	records, err := r.allAttendance(ctx)
	if err != nil {
		return nil, err
	}
	day := r.dayKey(t)
	for _, rec := range records {
		if rec.StudentID == studentID && r.dayKey(rec.Timestamp) == day {
			return &rec, nil
		}
	}
	return nil, nil
}

// InsertAttendance persists a new record with a fresh id. Timestamp and
// status default to now/present when unset.
func (r *Repository) InsertAttendance(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error) {
	if rec.ID == "" {
		rec.ID = r.newID("ATT")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = r.now()
	}
	if rec.Status == "" {
		rec.Status = StatusPresent
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return AttendanceRecord{}, fmt.Errorf("encode attendance: %w", err)
	}
	if err := r.kv.Set(ctx, attendancePrefix+rec.ID, raw); err != nil {
		return AttendanceRecord{}, fmt.Errorf("store attendance: %w", err)
	}
	return rec, nil
}

func (r *Repository) allAttendance(ctx context.Context) ([]AttendanceRecord, error) {
	raws, err := r.kv.ScanPrefix(ctx, attendancePrefix)
	if err != nil {
		return nil, fmt.Errorf("scan attendance: %w", err)
	}
	records := make([]AttendanceRecord, 0, len(raws))
	for _, raw := range raws {
		var rec AttendanceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if !rec.wellFormed() {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func sortNewestFirst(records []AttendanceRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// ---------- Devices ----------

// RegisterDevice upserts a scanner device record.
func (r *Repository) RegisterDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id required")
	}
	d := Device{ID: deviceID, RegisteredAt: r.now()}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode device: %w", err)
	}
	if err := r.kv.Set(ctx, devicePrefix+deviceID, raw); err != nil {
		return fmt.Errorf("store device: %w", err)
	}
	return nil
}

// SaveRefreshToken stores the latest refresh token for a device so it
// can be checked on rotation.
func (r *Repository) SaveRefreshToken(ctx context.Context, deviceID, token string, expiresAt time.Time) error {
	payload := struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}{Token: token, ExpiresAt: expiresAt}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode refresh token: %w", err)
	}
	if err := r.kv.Set(ctx, refreshTokenPrefix+deviceID, raw); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}
