// Package csvdoc builds the lifecycle-update CSV: a header "id,state__v" and
// one row per object id, all moving to the same lifecycle state.
package csvdoc

import (
	"fmt"
	"strings"
	"time"

	"github.com/clssck/VeevaBro/internal/config"
	"github.com/clssck/VeevaBro/internal/errs"
)

const (
	// Header is the first line of every document.
	Header = "id,state__v"
	// ContentType is the MIME type used for downloads and staging uploads.
	ContentType = "text/csv;charset=utf-8;"
)

// Document is a generated CSV. It is never persisted by this package.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
	Rows        int
}

// ParseIDs splits raw on commas and trims each token. Every token must be
// non-empty and match rule; otherwise a ValidationError naming the first bad
// token is returned.
func ParseIDs(raw string, rule config.IDRule) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errs.Required("object ids")
	}
	tokens := strings.Split(raw, ",")
	ids := make([]string, 0, len(tokens))
	for i, tok := range tokens {
		id := strings.TrimSpace(tok)
		if id == "" {
			return nil, errs.NewValidationError("object ids", raw, fmt.Sprintf("entry %d is empty", i+1))
		}
		if !validID(id, rule) {
			return nil, errs.NewValidationError("object ids", raw, fmt.Sprintf("%q is not %s", id, describe(rule)))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validID(id string, rule config.IDRule) bool {
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9':
		case rule != config.IDRuleNumeric && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
		default:
			return false
		}
	}
	return true
}

func describe(rule config.IDRule) string {
	if rule == config.IDRuleNumeric {
		return "numeric"
	}
	return "alphanumeric"
}

// Content renders the CSV text. Rows keep the order of ids, duplicates
// included, joined by "\n" without a trailing newline.
func Content(ids []string, lifecycle string) string {
	var b strings.Builder
	b.WriteString(Header)
	for _, id := range ids {
		b.WriteByte('\n')
		b.WriteString(id)
		b.WriteByte(',')
		b.WriteString(lifecycle)
	}
	return b.String()
}

// Build validates the inputs and returns the document for objectType.
func Build(objectType, lifecycle, rawIDs string, rule config.IDRule, now time.Time) (*Document, error) {
	if objectType == "" {
		return nil, errs.Required("object type")
	}
	if lifecycle == "" {
		return nil, errs.Required("lifecycle state")
	}
	ids, err := ParseIDs(rawIDs, rule)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    Filename(objectType, now),
		ContentType: ContentType,
		Content:     []byte(Content(ids, lifecycle)),
		Rows:        len(ids),
	}, nil
}

// Filename is {objectType}_{UTC ISO-8601 timestamp with ':' and '.' as '-'}.csv,
// e.g. product__v_2024-03-05T14-07-09-123Z.csv.
func Filename(objectType string, now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return objectType + "_" + ts + ".csv"
}
