// Package records lists translation history from the backend and keeps a
// local cache of it for offline inspection.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/marcus-qen/tradutor/internal/apiclient"
	"github.com/marcus-qen/tradutor/internal/apierrors"
)

const RecordsPath = "/records"

// Statuses the backend reports for a translation job.
const (
	StatusPending = "PENDING"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusError   = "ERROR"
)

// Record is one entry of the translation history.
type Record struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	SourceLang  string    `json:"sourceLang"`
	TargetLang  string    `json:"targetLang"`
	Status      string    `json:"status"`
	DownloadURL string    `json:"downloadUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Page is one page of records plus paging metadata when the backend
// provides it.
type Page struct {
	Records    []Record
	Total      int
	TotalPages int
}

// Query narrows a record listing. Zero values are omitted from the request.
type Query struct {
	Page   int // zero-based
	Size   int
	Search string
	Status string
	From   time.Time
	To     time.Time
}

func (q Query) values() url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		values.Set("size", strconv.Itoa(q.Size))
	}
	if q.Search != "" {
		values.Set("q", q.Search)
	}
	if q.Status != "" {
		values.Set("status", q.Status)
	}
	if !q.From.IsZero() {
		values.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		values.Set("to", q.To.UTC().Format(time.RFC3339))
	}
	return values
}

// Service lists records through the authenticated client.
type Service struct {
	api    *apiclient.Client
	logger *zap.Logger
}

func NewService(api *apiclient.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

// List fetches one page of translation records.
func (s *Service) List(ctx context.Context, q Query) (*Page, error) {
	query := q.values()

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   RecordsPath,
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", apierrors.Network(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("list records: %w", statusError(resp))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("list records: decode: %w", err)
	}
	result, err := decodePage(raw)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return result, nil
}

// decodePage accepts both the paged envelope and a bare array. The envelope
// field names follow the backend's pager; older deployments returned the
// array directly.
func decodePage(raw json.RawMessage) (*Page, error) {
	var bare []rawRecord
	if err := json.Unmarshal(raw, &bare); err == nil {
		return &Page{Records: convert(bare), Total: len(bare), TotalPages: 1}, nil
	}

	var envelope struct {
		Items         []rawRecord `json:"items"`
		Records       []rawRecord `json:"records"`
		Content       []rawRecord `json:"content"`
		Total         int         `json:"total"`
		TotalElements int         `json:"totalElements"`
		TotalPages    int         `json:"totalPages"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unrecognized records shape: %w", err)
	}
	items := envelope.Items
	if items == nil {
		items = envelope.Records
	}
	if items == nil {
		items = envelope.Content
	}
	if items == nil {
		return nil, errors.New("unrecognized records shape: no item list")
	}
	page := &Page{Records: convert(items), Total: envelope.Total, TotalPages: envelope.TotalPages}
	if page.Total == 0 {
		page.Total = envelope.TotalElements
	}
	if page.Total == 0 {
		page.Total = len(page.Records)
	}
	return page, nil
}

// rawRecord tolerates the field-name drift between backend versions.
type rawRecord struct {
	ID          any         `json:"id"`
	Filename    string      `json:"filename"`
	FileName    string      `json:"fileName"`
	SourceLang  string      `json:"sourceLang"`
	SourceLang2 string      `json:"source_lang"`
	TargetLang  string      `json:"targetLang"`
	TargetLang2 string      `json:"target_lang"`
	Status      string      `json:"status"`
	DownloadURL string      `json:"downloadUrl"`
	OutputFile  string      `json:"outputFile"`
	CreatedAt   string      `json:"createdAt"`
	CreatedAt2  string      `json:"created_at"`
}

func convert(in []rawRecord) []Record {
	out := make([]Record, 0, len(in))
	for _, r := range in {
		rec := Record{
			ID:          idString(r.ID),
			Filename:    firstNonEmpty(r.Filename, r.FileName),
			SourceLang:  firstNonEmpty(r.SourceLang, r.SourceLang2),
			TargetLang:  firstNonEmpty(r.TargetLang, r.TargetLang2),
			Status:      r.Status,
			DownloadURL: firstNonEmpty(r.DownloadURL, r.OutputFile),
		}
		rec.CreatedAt = parseTime(firstNonEmpty(r.CreatedAt, r.CreatedAt2))
		out = append(out, rec)
	}
	return out
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// idString renders the record ID, which the backend has emitted both as a
// number and as a string.
func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func statusError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if resp.StatusCode == http.StatusUnauthorized {
		return apierrors.New(apierrors.KindSessionExpired, resp.StatusCode, payload.Message)
	}
	return apierrors.FromStatus(resp.StatusCode, payload.Message)
}
