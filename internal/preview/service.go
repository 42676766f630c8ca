package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/sales"
)

type saleStore interface {
	Get(ctx context.Context, id uuid.UUID) (*sales.SaleRecord, error)
	ApplyOverrides(ctx context.Context, id uuid.UUID, docType sales.DocumentType, changed map[sales.FieldKey]string) (*sales.SaleRecord, error)
}

type documentExporter interface {
	Export(ctx context.Context, sale sales.SaleRecord, opts docgen.RenderOptions) (docgen.Artifact, error)
}

// Service manages editable preview sessions. Session state lives in
// redis under a TTL; edit debouncing and the single in-flight guard are
// process-local.
type Service struct {
	rdb      *redis.Client
	sales    saleStore
	exporter documentExporter
	logger   *slog.Logger
	ttl      time.Duration
	debounce time.Duration

	mu     sync.Mutex
	guards map[string]*sessionGuard
}

type sessionGuard struct {
	timer    *time.Timer
	inFlight bool
}

// NewService wires the preview session layer.
func NewService(rdb *redis.Client, saleSvc *sales.Service, exporter documentExporter, logger *slog.Logger, ttl, debounce time.Duration) *Service {
	return newService(rdb, saleSvc, exporter, logger, ttl, debounce)
}

func newService(rdb *redis.Client, store saleStore, exporter documentExporter, logger *slog.Logger, ttl, debounce time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if debounce <= 0 {
		debounce = 150 * time.Millisecond
	}
	return &Service{
		rdb:      rdb,
		sales:    store,
		exporter: exporter,
		logger:   logger,
		ttl:      ttl,
		debounce: debounce,
		guards:   make(map[string]*sessionGuard),
	}
}

// StartRequest opens a session for one sale and document type.
type StartRequest struct {
	SaleID     uuid.UUID
	DocType    sales.DocumentType
	ShowStamp  bool
	WithDogane bool
}

// Start opens (or reopens) the editable session. The editable mapping is
// seeded from the merged projection; the plain sale values are kept
// alongside so saving can diff against them.
func (s *Service) Start(ctx context.Context, req StartRequest) (*Session, error) {
	sale, err := s.sales.Get(ctx, req.SaleID)
	if err != nil {
		return nil, err
	}

	projection := docgen.Merge(*sale, req.DocType)
	session := &Session{
		SaleID:     req.SaleID,
		DocType:    req.DocType,
		Base:       make(map[sales.FieldKey]string, len(sales.AllFieldKeys)),
		Initial:    make(map[sales.FieldKey]string, len(sales.AllFieldKeys)),
		Edits:      make(map[sales.FieldKey]string, len(sales.AllFieldKeys)),
		ShowStamp:  req.ShowStamp,
		WithDogane: req.WithDogane,
		StartedAt:  time.Now().UTC(),
	}
	for _, key := range sales.AllFieldKeys {
		session.Base[key] = sale.FieldValue(key)
		value := projection.FieldValue(key)
		session.Initial[key] = value
		session.Edits[key] = value
	}

	if err := s.store(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Edit applies one field change, last write wins, and schedules a
// debounced preview regeneration.
func (s *Service) Edit(ctx context.Context, saleID uuid.UUID, docType sales.DocumentType, field sales.FieldKey, value string) (*Session, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: unknown field %q", sales.ErrInvalidInput, field)
	}
	session, err := s.load(ctx, saleID, docType)
	if err != nil {
		return nil, err
	}

	session.Edits[field] = value
	session.Revision++
	if err := s.store(ctx, session); err != nil {
		return nil, err
	}

	s.scheduleRegenerate(session.key(), saleID, docType)
	return session, nil
}

// Reset restores the editable mapping to the initial projection values.
func (s *Service) Reset(ctx context.Context, saleID uuid.UUID, docType sales.DocumentType) (*Session, error) {
	session, err := s.load(ctx, saleID, docType)
	if err != nil {
		return nil, err
	}
	for key, value := range session.Initial {
		session.Edits[key] = value
	}
	session.Revision++
	if err := s.store(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Save diffs the edits against the plain sale values and persists only
// the changed keys as document overrides. The session is reseeded from
// the updated sale afterwards.
func (s *Service) Save(ctx context.Context, saleID uuid.UUID, docType sales.DocumentType) (*sales.SaleRecord, error) {
	session, err := s.load(ctx, saleID, docType)
	if err != nil {
		return nil, err
	}

	changed := session.Changed()
	if len(changed) == 0 {
		return s.sales.Get(ctx, saleID)
	}

	sale, err := s.sales.ApplyOverrides(ctx, saleID, docType, changed)
	if err != nil {
		return nil, err
	}

	if _, err := s.Start(ctx, StartRequest{
		SaleID:     saleID,
		DocType:    docType,
		ShowStamp:  session.ShowStamp,
		WithDogane: session.WithDogane,
	}); err != nil {
		return nil, err
	}
	return sale, nil
}

// Preview returns the artifact for the session's current edits. A fresh
// cached artifact is served as-is; otherwise the document is regenerated
// under the in-flight guard.
func (s *Service) Preview(ctx context.Context, saleID uuid.UUID, docType sales.DocumentType) (docgen.Artifact, error) {
	session, err := s.load(ctx, saleID, docType)
	if err != nil {
		return docgen.Artifact{}, err
	}

	if cached, ok := s.cachedArtifact(ctx, session); ok {
		return cached, nil
	}

	guard := s.guard(session.key())
	s.mu.Lock()
	if guard.inFlight {
		s.mu.Unlock()
		return docgen.Artifact{}, ErrPreviewInFlight
	}
	guard.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		guard.inFlight = false
		s.mu.Unlock()
	}()

	return s.generate(ctx, session)
}

// Close discards the session, its cached artifact, and any pending
// regeneration. An in-flight regeneration finding the session gone
// discards its result.
func (s *Service) Close(ctx context.Context, saleID uuid.UUID, docType sales.DocumentType) error {
	key := sessionKey(saleID, docType)

	s.mu.Lock()
	if guard, ok := s.guards[key]; ok {
		if guard.timer != nil {
			guard.timer.Stop()
		}
		delete(s.guards, key)
	}
	s.mu.Unlock()

	return s.rdb.Del(ctx, key, artifactKey(saleID, docType)).Err()
}

// cachedArtifact is the stored render of one session revision.
type cachedArtifact struct {
	Revision    int64  `json:"revision"`
	Bytes       []byte `json:"bytes"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages"`
}

func (s *Service) cachedArtifact(ctx context.Context, session *Session) (docgen.Artifact, bool) {
	raw, err := s.rdb.Get(ctx, artifactKey(session.SaleID, session.DocType)).Bytes()
	if err != nil {
		return docgen.Artifact{}, false
	}
	var cached cachedArtifact
	if err := json.Unmarshal(raw, &cached); err != nil || cached.Revision != session.Revision {
		return docgen.Artifact{}, false
	}
	return docgen.Artifact{
		Bytes:       cached.Bytes,
		Filename:    cached.Filename,
		ContentType: cached.ContentType,
		Pages:       cached.Pages,
	}, true
}

// generate renders the session's current edits and caches the result
// keyed by revision.
func (s *Service) generate(ctx context.Context, session *Session) (docgen.Artifact, error) {
	sale, err := s.sales.Get(ctx, session.SaleID)
	if err != nil {
		return docgen.Artifact{}, err
	}

	overrides, err := sales.OverridesFromValues(session.Changed())
	if err != nil {
		return docgen.Artifact{}, err
	}
	if sale.Overrides == nil {
		sale.Overrides = make(map[sales.DocumentType]sales.Overrides, 1)
	}
	sale.Overrides[session.DocType] = overrides

	artifact, err := s.exporter.Export(ctx, *sale, docgen.RenderOptions{
		DocType:    session.DocType,
		ShowStamp:  session.ShowStamp,
		WithDogane: session.WithDogane,
	})
	if err != nil {
		return docgen.Artifact{}, err
	}

	payload, err := json.Marshal(cachedArtifact{
		Revision:    session.Revision,
		Bytes:       artifact.Bytes,
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		Pages:       artifact.Pages,
	})
	if err == nil {
		if err := s.rdb.Set(ctx, artifactKey(session.SaleID, session.DocType), payload, s.ttl).Err(); err != nil {
			s.logger.Debug("preview artifact cache write failed", "error", err)
		}
	}
	return artifact, nil
}

// scheduleRegenerate coalesces rapid edits: each edit resets the timer,
// so only the value present after the quiescence window triggers a
// render.
func (s *Service) scheduleRegenerate(key string, saleID uuid.UUID, docType sales.DocumentType) {
	guard := s.guard(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if guard.timer != nil {
		guard.timer.Stop()
	}
	guard.timer = time.AfterFunc(s.debounce, func() {
		s.regenerate(saleID, docType)
	})
}

// regenerate runs the debounced background render. A session that was
// closed in the meantime, or a render already in flight, discards the
// trigger.
func (s *Service) regenerate(saleID uuid.UUID, docType sales.DocumentType) {
	key := sessionKey(saleID, docType)
	guard := s.guard(key)

	s.mu.Lock()
	if guard.inFlight {
		s.mu.Unlock()
		return
	}
	guard.inFlight = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		guard.inFlight = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session, err := s.load(ctx, saleID, docType)
	if err != nil {
		return
	}
	if _, err := s.generate(ctx, session); err != nil {
		s.logger.Debug("preview regeneration failed", "sale_id", saleID, "doc_type", docType, "error", err)
	}
}

func (s *Service) guard(key string) *sessionGuard {
	s.mu.Lock()
	defer s.mu.Unlock()
	guard, ok := s.guards[key]
	if !ok {
		guard = &sessionGuard{}
		s.guards[key] = guard
	}
	return guard
}

func (s *Service) load(ctx context.Context, saleID uuid.UUID, docType sales.DocumentType) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(saleID, docType)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load preview session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode preview session: %w", err)
	}
	return &session, nil
}

func (s *Service) store(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode preview session: %w", err)
	}
	if err := s.rdb.Set(ctx, session.key(), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store preview session: %w", err)
	}
	return nil
}
