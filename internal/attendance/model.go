package attendance

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Store paths.
const (
	sessionsPath   = "sessions"
	recordsPath    = "attendance"
	currentSession = "current_session"
)

// UnknownSessionName labels records whose session no longer exists.
const UnknownSessionName = "알 수 없는 세션"

// Session is a named window during which check-ins against its id are accepted.
type Session struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Active    bool       `json:"active"`
}

// CheckType distinguishes arrival from departure.
type CheckType string

const (
	CheckIn  CheckType = "in"
	CheckOut CheckType = "out"
)

// ParseCheckType defaults an empty value to CheckIn.
func ParseCheckType(s string) (CheckType, error) {
	switch CheckType(strings.ToLower(strings.TrimSpace(s))) {
	case "", CheckIn:
		return CheckIn, nil
	case CheckOut:
		return CheckOut, nil
	}
	return "", fmt.Errorf("%w: check type %q", ErrValidation, s)
}

// Label is the Korean column value used in exports and notifications.
func (c CheckType) Label() string {
	if c == CheckOut {
		return "퇴근"
	}
	return "출근"
}

// Identity is what the attendee typed in. Nothing here is verified.
type Identity struct {
	Name       string
	StudentID  string
	EmployeeID string
}

func (i Identity) trimmed() Identity {
	return Identity{
		Name:       strings.TrimSpace(i.Name),
		StudentID:  strings.TrimSpace(i.StudentID),
		EmployeeID: strings.TrimSpace(i.EmployeeID),
	}
}

// Fields are the non-identity parts of a submission.
type Fields struct {
	CheckType  CheckType
	HasParking bool
}

// Record is one accepted check-in.
type Record struct {
	Key        string    `json:"key"`
	SessionID  string    `json:"sessionId"`
	Name       string    `json:"name"`
	StudentID  string    `json:"studentId,omitempty"`
	EmployeeID string    `json:"employeeId,omitempty"`
	CheckType  CheckType `json:"checkType"`
	HasParking bool      `json:"hasParking"`
	Timestamp  time.Time `json:"timestamp"`
	IsNew      bool      `json:"isNew,omitempty"`
}

// DedupPolicy chooses which identity fields make two submissions the same person.
// The check type is always part of the key.
type DedupPolicy string

const (
	// PolicyStudent keys on (name, studentId); studentId is required.
	PolicyStudent DedupPolicy = "student"
	// PolicyEmployee keys on (name, employeeId); employeeId may be empty.
	PolicyEmployee DedupPolicy = "employee"
	// PolicyName keys on name alone.
	PolicyName DedupPolicy = "name"
)

// ParseDedupPolicy validates a configured policy name.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyStudent, PolicyEmployee, PolicyName:
		return p, nil
	case "":
		return PolicyEmployee, nil
	}
	return "", fmt.Errorf("unknown dedup policy %q", s)
}

func (p DedupPolicy) identityKey(r Record) string {
	switch p {
	case PolicyStudent:
		return r.Name + "\x00" + r.StudentID
	case PolicyName:
		return r.Name
	default:
		return r.Name + "\x00" + r.EmployeeID
	}
}

// NewSessionID returns "<unix millis>-<9 base36 chars>".
func NewSessionID(now time.Time) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	for i := 0; i < 9; i++ {
		b.WriteByte(alphabet[rand.Intn(len(alphabet))])
	}
	return b.String()
}
