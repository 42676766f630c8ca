// Package dispatch hands finished document artifacts to their
// destination: a direct download, an inline print view, or a shared
// presigned link.
package dispatch

import (
	"fmt"
	"mime"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
)

// Intent names the delivery path requested by the caller.
type Intent string

const (
	IntentDownload Intent = "download"
	IntentPrint    Intent = "print"
	IntentShare    Intent = "share"
)

// ParseIntent validates the wire value; an empty value means download.
func ParseIntent(raw string) (Intent, error) {
	switch Intent(raw) {
	case "", IntentDownload:
		return IntentDownload, nil
	case IntentPrint:
		return IntentPrint, nil
	case IntentShare:
		return IntentShare, nil
	}
	return "", fmt.Errorf("%w: unknown delivery intent %q", httpx.ErrValidation, raw)
}

// ShareMeta is forwarded unchanged to the share destination.
type ShareMeta struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	DialogTitle string `json:"dialog_title"`
}

// Receipt reports how the hand-off went. Opened is false only when the
// interactive path degraded and the caller should tell the user.
type Receipt struct {
	Intent Intent `json:"intent"`
	Opened bool   `json:"opened"`
	URL    string `json:"url,omitempty"`
}

// Disposition returns the Content-Disposition header value for a direct
// HTTP hand-off. Print delivers inline so the client viewer opens it.
func Disposition(intent Intent, filename string) string {
	dispositionType := "attachment"
	if intent == IntentPrint {
		dispositionType = "inline"
	}
	return mime.FormatMediaType(dispositionType, map[string]string{"filename": filename})
}
