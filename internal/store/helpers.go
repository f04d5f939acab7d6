package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/BTreeMap/BraveCall/internal/models"
)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// rebindPostgres rewrites ? placeholders to $1, $2, ... for lib/pq.
func rebindPostgres(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanMessage(row scanner) (models.StoredMessage, error) {
	var m models.StoredMessage
	var role string
	if err := row.Scan(&m.ID, &m.ChildID, &role, &m.Content, &m.Distress, &m.Timestamp); err != nil {
		return m, fmt.Errorf("scan message failed: %w", err)
	}
	m.Role = models.MessageRole(role)
	return m, nil
}

func scanProfile(row scanner) (models.ChildProfile, error) {
	var p models.ChildProfile
	var contact sql.NullString
	err := row.Scan(&p.ID, &contact, &p.ChildName, &p.ChildAge, &p.CharacterName, &p.CharacterType,
		&p.Color, &p.Level, &p.Points, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.ParentContact = contact.String
	return p, nil
}

func scanAlert(row scanner) (models.ParentAlert, error) {
	var a models.ParentAlert
	var severity, action string
	err := row.Scan(&a.ID, &a.ChildID, &a.Tier, &severity, &action, &a.MessageSent, &a.ChildMessage,
		&a.ParentContactMasked, &a.Reviewed, &a.CreatedAt)
	if err != nil {
		return a, fmt.Errorf("scan parent alert failed: %w", err)
	}
	a.Severity = models.Severity(severity)
	a.Action = models.Action(action)
	return a, nil
}

func scanRequest(row scanner) (models.ChildRequest, error) {
	var r models.ChildRequest
	var status string
	if err := row.Scan(&r.ID, &r.ChildID, &r.RequestType, &r.RequestText, &status, &r.CreatedAt); err != nil {
		return r, fmt.Errorf("scan child request failed: %w", err)
	}
	r.Status = models.RequestStatus(status)
	return r, nil
}

func scanBadge(row scanner) (models.Badge, error) {
	var b models.Badge
	if err := row.Scan(&b.ID, &b.Name, &b.Icon, &b.Description, &b.EarnedAt); err != nil {
		return b, fmt.Errorf("scan badge failed: %w", err)
	}
	return b, nil
}

func reverseMessages(msgs []models.StoredMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
