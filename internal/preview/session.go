package preview

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/sales"
)

var (
	// ErrNoSession means the caller edits a session that was never
	// started, expired, or was closed.
	ErrNoSession = errors.New("preview session not found")
	// ErrPreviewInFlight rejects a second preview while one is running
	// for the same session.
	ErrPreviewInFlight = errors.New("preview already in flight")
)

// Session is the redis-persisted state of one editable document surface.
// Base holds the plain sale values at start time; Initial additionally
// carries the document overrides and seeds the editable mapping. Saving
// diffs Edits against Base so only genuinely changed keys reach the sale.
type Session struct {
	SaleID     uuid.UUID                 `json:"sale_id"`
	DocType    sales.DocumentType        `json:"doc_type"`
	Base       map[sales.FieldKey]string `json:"base"`
	Initial    map[sales.FieldKey]string `json:"initial"`
	Edits      map[sales.FieldKey]string `json:"edits"`
	ShowStamp  bool                      `json:"show_stamp"`
	WithDogane bool                      `json:"with_dogane"`
	Revision   int64                     `json:"revision"`
	StartedAt  time.Time                 `json:"started_at"`
}

// Changed returns the edited values that differ from the plain sale.
func (s *Session) Changed() map[sales.FieldKey]string {
	changed := make(map[sales.FieldKey]string)
	for key, value := range s.Edits {
		if s.Base[key] != value {
			changed[key] = value
		}
	}
	return changed
}

func (s *Session) key() string {
	return sessionKey(s.SaleID, s.DocType)
}

func sessionKey(saleID uuid.UUID, docType sales.DocumentType) string {
	return fmt.Sprintf("preview:session:%s:%s", saleID, docType)
}

func artifactKey(saleID uuid.UUID, docType sales.DocumentType) string {
	return fmt.Sprintf("preview:artifact:%s:%s", saleID, docType)
}
