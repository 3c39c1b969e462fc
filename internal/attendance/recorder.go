package attendance

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"qrattend/internal/store"
)

// Submit decides whether a check-in is accepted and appends it.
//
// Checks run in a fixed order and stop at the first failure: required fields, then
// freshness against the advertised session, then duplicates. A stale scan is therefore
// reported as stale even when the attendee already checked in.
//
// The duplicate scan and the append are two store operations. Two clients submitting
// the same identity at the same moment can both pass the scan; that double entry is
// left for a human to spot in the export.
func (l *Ledger) Submit(ctx context.Context, claimedSessionID string, id Identity, f Fields) (Record, error) {
	id = id.trimmed()
	claimed := ParseClaim(claimedSessionID)

	if id.Name == "" {
		return Record{}, fmt.Errorf("%w: name", ErrValidation)
	}
	if l.policy == PolicyStudent && id.StudentID == "" {
		return Record{}, fmt.Errorf("%w: student id", ErrValidation)
	}
	if claimed == "" {
		return Record{}, fmt.Errorf("%w: session", ErrValidation)
	}
	checkType, err := ParseCheckType(string(f.CheckType))
	if err != nil {
		return Record{}, err
	}

	active, ok, err := l.ActiveSession(ctx)
	if err != nil {
		return Record{}, err
	}
	if !ok || active.ID != claimed {
		return Record{}, ErrStaleSession
	}

	rec := Record{
		SessionID:  claimed,
		Name:       id.Name,
		StudentID:  id.StudentID,
		EmployeeID: id.EmployeeID,
		CheckType:  checkType,
		HasParking: f.HasParking,
	}

	existing, err := l.records(ctx)
	if err != nil {
		return Record{}, storeErr("list records", err)
	}
	want := l.policy.identityKey(rec)
	for _, r := range existing {
		if r.SessionID == rec.SessionID && r.CheckType == rec.CheckType && l.policy.identityKey(r) == want {
			return Record{}, ErrDuplicate
		}
	}

	key, err := l.store.CreateChild(ctx, recordsPath)
	if err != nil {
		return Record{}, storeErr("allocate record key", err)
	}
	rec.Key = key
	rec.Timestamp = l.now()
	rec.IsNew = true
	if err := l.put(ctx, store.Join(recordsPath, key), rec); err != nil {
		return Record{}, storeErr("save record", err)
	}
	return rec, nil
}

// ParseClaim extracts the claimed session id from scanned or typed text. A deep link
// yields its "session" query parameter; anything else is taken as the id itself.
func ParseClaim(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "?") && !strings.Contains(text, "://") {
		return text
	}
	u, err := url.Parse(text)
	if err != nil {
		return text
	}
	if s := strings.TrimSpace(u.Query().Get("session")); s != "" {
		return s
	}
	return text
}
