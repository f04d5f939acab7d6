package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/BraveCall/internal/models"
)

const (
	messageColumns = `id, child_id, role, content, distress, timestamp`
	profileColumns = `id, parent_contact, child_name, child_age, character_name, character_type, color, level, points, created_at`
	alertColumns   = `id, child_id, tier, severity, action, message_sent, child_message, parent_contact_masked, reviewed, created_at`
	requestColumns = `id, child_id, request_type, request_text, status, created_at`
)

// sqlStore implements Store on database/sql. Queries are written with ?
// placeholders and passed through bind for the backend's dialect.
type sqlStore struct {
	db   *sql.DB
	name string
	bind func(string) string
}

func (s *sqlStore) q(query string) string {
	if s.bind == nil {
		return query
	}
	return s.bind(query)
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func (s *sqlStore) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.q(query+` RETURNING id`), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *sqlStore) SaveMessage(ctx context.Context, msg *models.StoredMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	msg.Timestamp = msg.Timestamp.UTC()
	id, err := s.insertReturningID(ctx,
		`INSERT INTO messages (child_id, role, content, distress, timestamp) VALUES (?, ?, ?, ?, ?)`,
		msg.ChildID, string(msg.Role), msg.Content, msg.Distress, msg.Timestamp)
	if err != nil {
		slog.Error(s.name+".SaveMessage failed", "error", err, "childID", msg.ChildID)
		return fmt.Errorf("failed to insert message for child %d: %w", msg.ChildID, err)
	}
	msg.ID = id
	slog.Debug(s.name+".SaveMessage succeeded", "childID", msg.ChildID, "role", msg.Role, "id", id)
	return nil
}

func (s *sqlStore) RecentMessages(ctx context.Context, childID int64, limit int) ([]models.StoredMessage, error) {
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, s.q(`SELECT `+messageColumns+` FROM messages WHERE child_id = ? ORDER BY id DESC LIMIT ?`), childID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.q(`SELECT `+messageColumns+` FROM messages WHERE child_id = ? ORDER BY id ASC`), childID)
	}
	if err != nil {
		slog.Error(s.name+".RecentMessages query failed", "error", err, "childID", childID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.StoredMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}
	if limit > 0 {
		reverseMessages(msgs)
	}
	return msgs, nil
}

func (s *sqlStore) CountUserMessages(ctx context.Context, childID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM messages WHERE child_id = ? AND role = ?`), childID, string(models.RoleUser)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

func (s *sqlStore) DistressMessageTimes(ctx context.Context, childID int64, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT timestamp FROM messages WHERE child_id = ? AND distress = ? AND timestamp >= ? ORDER BY timestamp ASC`),
		childID, true, since.UTC())
	if err != nil {
		slog.Error(s.name+".DistressMessageTimes query failed", "error", err, "childID", childID)
		return nil, fmt.Errorf("failed to query distress messages: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan distress timestamp failed: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (s *sqlStore) SaveChildProfile(ctx context.Context, p *models.ChildProfile) error {
	if p.ID == 0 {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		id, err := s.insertReturningID(ctx,
			`INSERT INTO child_profiles (parent_contact, child_name, child_age, character_name, character_type, color, level, points, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			nilIfEmpty(p.ParentContact), p.ChildName, p.ChildAge, p.CharacterName, p.CharacterType, p.Color, p.Level, p.Points, p.CreatedAt)
		if err != nil {
			slog.Error(s.name+".SaveChildProfile insert failed", "error", err)
			return fmt.Errorf("failed to insert child profile: %w", err)
		}
		p.ID = id
		slog.Debug(s.name+".SaveChildProfile inserted", "childID", id)
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE child_profiles SET parent_contact = ?, child_name = ?, child_age = ?, character_name = ?,
			 character_type = ?, color = ?, level = ?, points = ? WHERE id = ?`),
		nilIfEmpty(p.ParentContact), p.ChildName, p.ChildAge, p.CharacterName, p.CharacterType, p.Color, p.Level, p.Points, p.ID)
	if err != nil {
		slog.Error(s.name+".SaveChildProfile update failed", "error", err, "childID", p.ID)
		return fmt.Errorf("failed to update child profile %d: %w", p.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrProfileNotFound
	}
	slog.Debug(s.name+".SaveChildProfile updated", "childID", p.ID)
	return nil
}

func (s *sqlStore) GetChildProfile(ctx context.Context, childID int64) (*models.ChildProfile, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+profileColumns+` FROM child_profiles WHERE id = ?`), childID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		slog.Error(s.name+".GetChildProfile failed", "error", err, "childID", childID)
		return nil, fmt.Errorf("failed to load child profile %d: %w", childID, err)
	}
	return &p, nil
}

func (s *sqlStore) ListChildProfiles(ctx context.Context) ([]models.ChildProfile, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+profileColumns+` FROM child_profiles ORDER BY id ASC`))
	if err != nil {
		slog.Error(s.name+".ListChildProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query child profiles: %w", err)
	}
	defer rows.Close()

	var out []models.ChildProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child profile failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddPoints relies on SET expressions reading the row's old values, so the
// level check sees the points before this increment.
func (s *sqlStore) AddPoints(ctx context.Context, childID int64, points int) (*models.ChildProfile, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`UPDATE child_profiles SET points = points + ?,
			 level = CASE WHEN points + ? >= level * ? THEN level + 1 ELSE level END
			 WHERE id = ? RETURNING `+profileColumns),
		points, points, models.PointsPerLevel, childID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		slog.Error(s.name+".AddPoints failed", "error", err, "childID", childID)
		return nil, fmt.Errorf("failed to add points for child %d: %w", childID, err)
	}
	slog.Debug(s.name+".AddPoints succeeded", "childID", childID, "points", p.Points, "level", p.Level)
	return &p, nil
}

func (s *sqlStore) SaveChildRequest(ctx context.Context, req *models.ChildRequest) error {
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.CreatedAt = req.CreatedAt.UTC()
	id, err := s.insertReturningID(ctx,
		`INSERT INTO child_requests (child_id, request_type, request_text, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		req.ChildID, req.RequestType, req.RequestText, string(req.Status), req.CreatedAt)
	if err != nil {
		slog.Error(s.name+".SaveChildRequest failed", "error", err, "childID", req.ChildID)
		return fmt.Errorf("failed to insert child request: %w", err)
	}
	req.ID = id
	slog.Debug(s.name+".SaveChildRequest succeeded", "childID", req.ChildID, "id", id)
	return nil
}

func (s *sqlStore) ListChildRequests(ctx context.Context, childID int64, status models.RequestStatus) ([]models.ChildRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM child_requests WHERE 1 = 1`
	var args []any
	if childID != 0 {
		query += ` AND child_id = ?`
		args = append(args, childID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".ListChildRequests query failed", "error", err, "childID", childID)
		return nil, fmt.Errorf("failed to query child requests: %w", err)
	}
	defer rows.Close()

	var out []models.ChildRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateChildRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE child_requests SET status = ? WHERE id = ?`), string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update child request %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrRequestNotFound
	}
	return nil
}

func (s *sqlStore) SaveParentAlert(ctx context.Context, a *models.ParentAlert) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	id, err := s.insertReturningID(ctx,
		`INSERT INTO parent_alerts (child_id, tier, severity, action, message_sent, child_message, parent_contact_masked, reviewed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ChildID, int(a.Tier), string(a.Severity), string(a.Action), a.MessageSent, a.ChildMessage, a.ParentContactMasked, a.Reviewed, a.CreatedAt)
	if err != nil {
		slog.Error(s.name+".SaveParentAlert failed", "error", err, "childID", a.ChildID)
		return fmt.Errorf("failed to insert parent alert: %w", err)
	}
	a.ID = id
	slog.Debug(s.name+".SaveParentAlert succeeded", "childID", a.ChildID, "id", id)
	return nil
}

func (s *sqlStore) ListParentAlerts(ctx context.Context, childID int64, includeReviewed bool) ([]models.ParentAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM parent_alerts WHERE child_id = ?`
	args := []any{childID}
	if !includeReviewed {
		query += ` AND reviewed = ?`
		args = append(args, false)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		slog.Error(s.name+".ListParentAlerts query failed", "error", err, "childID", childID)
		return nil, fmt.Errorf("failed to query parent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.ParentAlert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *sqlStore) MarkParentAlertReviewed(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE parent_alerts SET reviewed = ? WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("failed to mark parent alert %d reviewed: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}

func (s *sqlStore) ListBadges(ctx context.Context, childID int64) ([]models.Badge, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT badge_id, name, icon, description, earned_at FROM badges WHERE child_id = ? ORDER BY earned_at ASC, badge_id ASC`), childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	var out []models.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *sqlStore) AwardBadge(ctx context.Context, childID int64, b models.Badge) error {
	if b.EarnedAt.IsZero() {
		b.EarnedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO badges (child_id, badge_id, name, icon, description, earned_at) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (child_id, badge_id) DO NOTHING`),
		childID, b.ID, b.Name, b.Icon, b.Description, b.EarnedAt.UTC())
	if err != nil {
		slog.Error(s.name+".AwardBadge failed", "error", err, "childID", childID, "badge", b.ID)
		return fmt.Errorf("failed to award badge %s: %w", b.ID, err)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	slog.Debug("Closing database connection", "backend", s.name)
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close database", "backend", s.name, "error", err)
	}
	return err
}
