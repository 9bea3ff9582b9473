// Package translate drives document translation against the backend:
// multipart upload, result retrieval and language discovery.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/marcus-qen/tradutor/internal/apiclient"
	"github.com/marcus-qen/tradutor/internal/apierrors"
)

const (
	TranslatePath = "/translate-file"
	LanguagesPath = "/languages"
	FilesPath     = "/files"
)

// maxDocumentBytes bounds how much of a translated document we buffer in
// memory. Office documents the backend handles are far below this.
const maxDocumentBytes = 128 << 20

// Result is a completed translation. Exactly one of Content or DownloadURL
// is set: small documents come back inline, large ones as a link.
type Result struct {
	Filename    string
	Content     []byte
	DownloadURL string
}

// Language is one entry of the backend's supported-language list.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Service performs translation operations through the authenticated client.
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

// TranslateFile uploads the document at path and returns the translated
// result. sourceLang may be empty for auto-detection. The upload body is
// buffered so the request can be replayed after a token refresh.
func (s *Service) TranslateFile(ctx context.Context, path, sourceLang, targetLang string) (*Result, error) {
	if strings.TrimSpace(targetLang) == "" {
		return nil, fmt.Errorf("translate: %w", apierrors.New(apierrors.KindValidationError, 0, "target language is required"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("translate: read %s: %w", path, err)
	}

	body, contentType, err := buildUpload(filepath.Base(path), data, sourceLang, targetLang)
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}

	resp, err := s.api.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        TranslatePath,
		ContentType: contentType,
		Body:        bytes.NewReader(body),
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("translate: %w", apierrors.Network(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("translate: %w", statusError(resp))
	}

	result, err := decodeResult(resp, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	s.logger.Info("translated document",
		zap.String("file", filepath.Base(path)),
		zap.String("target", targetLang),
		zap.String("result", result.Filename))
	return result, nil
}

// buildUpload assembles the multipart form. The part order and field names
// match what the backend's handler expects.
func buildUpload(filename string, data []byte, sourceLang, targetLang string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("target_lang", targetLang); err != nil {
		return nil, "", err
	}
	if sourceLang != "" {
		if err := w.WriteField("source_lang", sourceLang); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// decodeResult interprets the translate response. The backend either streams
// the translated document back directly or answers with JSON pointing at a
// stored file.
func decodeResult(resp *http.Response, fallbackName string) (*Result, error) {
	mediaType := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = mt
	}

	if mediaType == "application/json" {
		var payload struct {
			DownloadURL string `json:"downloadUrl"`
			OutputFile  string `json:"outputFile"`
			Filename    string `json:"filename"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentBytes)).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		name := payload.Filename
		if name == "" {
			name = payload.OutputFile
		}
		if payload.DownloadURL == "" && payload.OutputFile == "" {
			return nil, apierrors.New(apierrors.KindServerError, resp.StatusCode, "translate response names no output")
		}
		url := payload.DownloadURL
		if url == "" {
			url = FilesPath + "/" + payload.OutputFile
		}
		return &Result{Filename: name, DownloadURL: url}, nil
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return &Result{
		Filename: attachmentName(resp.Header.Get("Content-Disposition"), fallbackName),
		Content:  content,
	}, nil
}

// attachmentName extracts the filename from a Content-Disposition header,
// falling back to the uploaded name when the header is absent or unparsable.
func attachmentName(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	if name := params["filename"]; name != "" {
		return filepath.Base(name)
	}
	return fallback
}

// Download fetches a stored translated document by name.
func (s *Service) Download(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   FilesPath + "/" + url.PathEscape(name),
	})
	if err != nil {
		return nil, fmt.Errorf("download: %w", apierrors.Network(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download: %w", statusError(resp))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	return data, nil
}

// Languages returns the supported language list. The endpoint has shipped
// both as a plain array of codes and as objects, so decoding is tolerant.
func (s *Service) Languages(ctx context.Context) ([]Language, error) {
	var raw json.RawMessage
	if err := s.api.GetJSON(ctx, LanguagesPath, &raw); err != nil {
		return nil, classify("languages", err)
	}

	var langs []Language
	if err := json.Unmarshal(raw, &langs); err == nil {
		return langs, nil
	}
	var codes []string
	if err := json.Unmarshal(raw, &codes); err == nil {
		langs = make([]Language, 0, len(codes))
		for _, code := range codes {
			langs = append(langs, Language{Code: code, Name: code})
		}
		return langs, nil
	}
	var wrapped struct {
		Languages []Language `json:"languages"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Languages != nil {
		return wrapped.Languages, nil
	}
	return nil, fmt.Errorf("languages: %w", apierrors.New(apierrors.KindServerError, 0, "unrecognized language list shape"))
}

// statusError maps an already-consumed failed response onto the error
// taxonomy. A 401 on these endpoints only survives after the refresh path
// gave up, so it means the session is gone.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	message := apiclient.ServerMessage(body)
	if resp.StatusCode == http.StatusUnauthorized {
		return apierrors.New(apierrors.KindSessionExpired, resp.StatusCode, message)
	}
	return apierrors.FromStatus(resp.StatusCode, message)
}

func classify(op string, err error) error {
	var statusErr *apiclient.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status == http.StatusUnauthorized {
			return fmt.Errorf("%s: %w", op, apierrors.New(apierrors.KindSessionExpired, statusErr.Status, statusErr.Message))
		}
		return fmt.Errorf("%s: %w", op, apierrors.FromStatus(statusErr.Status, statusErr.Message))
	}
	return fmt.Errorf("%s: %w", op, apierrors.Network(err))
}
