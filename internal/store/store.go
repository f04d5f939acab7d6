// Package store provides storage backends for BraveCall.
//
// It includes an in-memory store for tests and local runs, and persistent
// SQLite and PostgreSQL stores for child profiles, conversation messages,
// badges, parent alerts and child requests.
package store

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/BraveCall/internal/models"
)

// Store is the persistence interface used by the API layer and the pipeline.
type Store interface {
	// SaveMessage appends a message and sets its ID.
	SaveMessage(ctx context.Context, msg *models.StoredMessage) error
	// RecentMessages returns up to limit of the child's latest messages in
	// chronological order. A limit of 0 or less returns every message.
	RecentMessages(ctx context.Context, childID int64, limit int) ([]models.StoredMessage, error)
	CountUserMessages(ctx context.Context, childID int64) (int, error)
	// DistressMessageTimes returns the timestamps of the child's distress
	// messages at or after since.
	DistressMessageTimes(ctx context.Context, childID int64, since time.Time) ([]time.Time, error)

	// SaveChildProfile inserts the profile when its ID is 0 and updates it
	// otherwise. Updating a missing profile returns models.ErrProfileNotFound.
	SaveChildProfile(ctx context.Context, p *models.ChildProfile) error
	GetChildProfile(ctx context.Context, childID int64) (*models.ChildProfile, error)
	// ListChildProfiles returns every profile ordered by ID.
	ListChildProfiles(ctx context.Context) ([]models.ChildProfile, error)
	// AddPoints credits points in a single write, levelling up the same way as
	// models.ChildProfile.AddPoints, and returns the updated profile.
	AddPoints(ctx context.Context, childID int64, points int) (*models.ChildProfile, error)

	SaveParentAlert(ctx context.Context, alert *models.ParentAlert) error
	ListParentAlerts(ctx context.Context, childID int64, includeReviewed bool) ([]models.ParentAlert, error)
	MarkParentAlertReviewed(ctx context.Context, id int64) error

	SaveChildRequest(ctx context.Context, req *models.ChildRequest) error
	// ListChildRequests returns requests oldest first. A childID of 0 matches
	// every child and an empty status matches every status.
	ListChildRequests(ctx context.Context, childID int64, status models.RequestStatus) ([]models.ChildRequest, error)
	UpdateChildRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error

	ListBadges(ctx context.Context, childID int64) ([]models.Badge, error)
	// AwardBadge records a badge. Awarding a badge twice is a no-op.
	AwardBadge(ctx context.Context, childID int64, badge models.Badge) error

	Close() error
}

// Opts holds configuration options for the persistent stores.
type Opts struct {
	DSN string
}

// Option defines a function that configures Opts.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType returns "postgres" for PostgreSQL URLs and key=value
// connection strings, and "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	d := strings.TrimSpace(dsn)
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(d, "host=") || strings.Contains(d, "dbname=") || strings.Contains(d, "user=") {
		return "postgres"
	}
	return "sqlite3"
}

// Open builds the Store described by opts. An empty DSN yields an
// InMemoryStore; otherwise DetectDSNType picks the backend.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		slog.Info("store.Open: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		return NewPostgresStore(opts...)
	}
	return NewSQLiteStore(opts...)
}

// InMemoryStore is a Store backed by maps. It is safe for concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	messages    []models.StoredMessage
	profiles    map[int64]models.ChildProfile
	alerts      []models.ParentAlert
	badges      map[int64][]models.Badge
	requests    []models.ChildRequest
	nextMsgID   int64
	nextChildID int64
	nextAlertID int64
	nextReqID   int64
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[int64]models.ChildProfile),
		badges:   make(map[int64][]models.Badge),
	}
}

func (s *InMemoryStore) SaveMessage(ctx context.Context, msg *models.StoredMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMsgID++
	msg.ID = s.nextMsgID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *InMemoryStore) RecentMessages(ctx context.Context, childID int64, limit int) ([]models.StoredMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StoredMessage
	for _, m := range s.messages {
		if m.ChildID == childID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *InMemoryStore) CountUserMessages(ctx context.Context, childID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if m.ChildID == childID && m.Role == models.RoleUser {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) DistressMessageTimes(ctx context.Context, childID int64, since time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, m := range s.messages {
		if m.ChildID == childID && m.Distress && !m.Timestamp.Before(since) {
			out = append(out, m.Timestamp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) SaveChildProfile(ctx context.Context, p *models.ChildProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextChildID++
		p.ID = s.nextChildID
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		s.profiles[p.ID] = *p
		return nil
	}
	existing, ok := s.profiles[p.ID]
	if !ok {
		return models.ErrProfileNotFound
	}
	p.CreatedAt = existing.CreatedAt
	s.profiles[p.ID] = *p
	return nil
}

func (s *InMemoryStore) GetChildProfile(ctx context.Context, childID int64) (*models.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[childID]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) ListChildProfiles(ctx context.Context) ([]models.ChildProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChildProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) AddPoints(ctx context.Context, childID int64, points int) (*models.ChildProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[childID]
	if !ok {
		return nil, models.ErrProfileNotFound
	}
	p.AddPoints(points)
	s.profiles[childID] = p
	return &p, nil
}

func (s *InMemoryStore) SaveChildRequest(ctx context.Context, req *models.ChildRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReqID++
	req.ID = s.nextReqID
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	s.requests = append(s.requests, *req)
	return nil
}

func (s *InMemoryStore) ListChildRequests(ctx context.Context, childID int64, status models.RequestStatus) ([]models.ChildRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChildRequest
	for _, r := range s.requests {
		if (childID == 0 || r.ChildID == childID) && (status == "" || r.Status == status) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryStore) UpdateChildRequestStatus(ctx context.Context, id int64, status models.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			s.requests[i].Status = status
			return nil
		}
	}
	return models.ErrRequestNotFound
}

func (s *InMemoryStore) SaveParentAlert(ctx context.Context, alert *models.ParentAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAlertID++
	alert.ID = s.nextAlertID
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *InMemoryStore) ListParentAlerts(ctx context.Context, childID int64, includeReviewed bool) ([]models.ParentAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ParentAlert
	for _, a := range s.alerts {
		if a.ChildID == childID && (includeReviewed || !a.Reviewed) {
			out = append(out, a)
		}
	}
	// Newest first, matching the SQL stores.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *InMemoryStore) MarkParentAlertReviewed(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Reviewed = true
			return nil
		}
	}
	return models.ErrAlertNotFound
}

func (s *InMemoryStore) ListBadges(ctx context.Context, childID int64) ([]models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Badge(nil), s.badges[childID]...), nil
}

func (s *InMemoryStore) AwardBadge(ctx context.Context, childID int64, badge models.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.badges[childID] {
		if b.ID == badge.ID {
			return nil
		}
	}
	if badge.EarnedAt.IsZero() {
		badge.EarnedAt = time.Now()
	}
	s.badges[childID] = append(s.badges[childID], badge)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
