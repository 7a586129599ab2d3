package roster

import "time"

// Attendance statuses. Check-in only ever produces StatusPresent; the
// others exist for records edited out-of-band.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// Student is a roster entry. QRCode carries the scan payload and equals
// ID in the current design.
type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	StudentNumber string    `json:"studentNumber"`
	Country       string    `json:"country,omitempty"`
	QRCode        string    `json:"qrCode"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AttendanceRecord is one check-in fact. Never updated after creation;
// deleted only when its student is deleted.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
}

// Device is a registered scanner device.
type Device struct {
	ID           string    `json:"id"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// wellFormed reports whether a stored student entry has the fields the
// repository contract requires. Entries failing this are dropped from
// listings rather than surfaced.
func (s Student) wellFormed() bool {
	return s.ID != "" && s.Name != "" && s.Email != ""
}

// scannable reports whether a student entry can participate in check-in.
func (s Student) scannable() bool {
	return s.ID != "" && s.Name != "" && s.QRCode != ""
}

func (a AttendanceRecord) wellFormed() bool {
	return a.ID != "" && a.StudentID != "" && !a.Timestamp.IsZero()
}
