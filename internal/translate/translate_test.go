package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcus-qen/tradutor/internal/apiclient"
	"github.com/marcus-qen/tradutor/internal/apierrors"
	"github.com/marcus-qen/tradutor/internal/notifier"
	"github.com/marcus-qen/tradutor/internal/tokenstore"
)

func newService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := tokenstore.NewStore(filepath.Join(t.TempDir(), "token.json"))
	if err := tokens.Save(tokenstore.TokenPair{AccessToken: "tok", RefreshToken: "ref"}); err != nil {
		t.Fatal(err)
	}
	api := apiclient.New(srv.URL, tokens, notifier.New())
	return NewService(api, nil)
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.docx")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTranslateFileInlineResult(t *testing.T) {
	doc := writeDoc(t, "hello world")

	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TranslatePath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("target_lang"); got != "pt" {
			t.Errorf("target_lang = %q", got)
		}
		if got := r.FormValue("source_lang"); got != "en" {
			t.Errorf("source_lang = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Filename != "report.docx" {
			t.Errorf("filename = %q", header.Filename)
		}
		uploaded, _ := io.ReadAll(file)
		if string(uploaded) != "hello world" {
			t.Errorf("uploaded content = %q", uploaded)
		}

		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="report_pt.docx"`)
		_, _ = w.Write([]byte("ola mundo"))
	}))

	result, err := svc.TranslateFile(context.Background(), doc, "en", "pt")
	if err != nil {
		t.Fatal(err)
	}
	if result.Filename != "report_pt.docx" {
		t.Errorf("filename = %q", result.Filename)
	}
	if string(result.Content) != "ola mundo" {
		t.Errorf("content = %q", result.Content)
	}
	if result.DownloadURL != "" {
		t.Errorf("unexpected download url %q", result.DownloadURL)
	}
}

func TestTranslateFileJSONResult(t *testing.T) {
	doc := writeDoc(t, "x")
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"outputFile": "report_pt.docx"})
	}))

	result, err := svc.TranslateFile(context.Background(), doc, "", "pt")
	if err != nil {
		t.Fatal(err)
	}
	if result.DownloadURL != FilesPath+"/report_pt.docx" {
		t.Errorf("download url = %q", result.DownloadURL)
	}
	if result.Content != nil {
		t.Error("expected no inline content")
	}
}

func TestTranslateFileReplayedAfterRefresh(t *testing.T) {
	doc := writeDoc(t, "payload")
	var uploads, refreshes int
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case apiclient.DefaultRefreshPath:
			refreshes++
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok2"})
		case TranslatePath:
			uploads++
			if uploads == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("retry body not replayable: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				t.Errorf("retry form file: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			content, _ := io.ReadAll(file)
			if string(content) != "payload" {
				t.Errorf("retry content = %q", content)
			}
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("done"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	result, err := svc.TranslateFile(context.Background(), doc, "", "pt")
	if err != nil {
		t.Fatal(err)
	}
	if refreshes != 1 || uploads != 2 {
		t.Fatalf("refreshes=%d uploads=%d", refreshes, uploads)
	}
	if !bytes.Equal(result.Content, []byte("done")) {
		t.Errorf("content = %q", result.Content)
	}
}

func TestTranslateFileMissingTarget(t *testing.T) {
	svc := newService(t, http.NotFoundHandler())
	_, err := svc.TranslateFile(context.Background(), "whatever.docx", "", " ")
	if !apierrors.IsKind(err, apierrors.KindValidationError) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranslateFileSessionExpired(t *testing.T) {
	doc := writeDoc(t, "x")
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	_, err := svc.TranslateFile(context.Background(), doc, "", "pt")
	if !apierrors.IsKind(err, apierrors.KindSessionExpired) {
		t.Fatalf("expected session expired, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != FilesPath+"/report_pt.docx" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("stored"))
	}))
	data, err := svc.Download(context.Background(), "report_pt.docx")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "stored" {
		t.Errorf("data = %q", data)
	}
}

func TestLanguagesShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"objects", `[{"code":"pt","name":"Portuguese"},{"code":"en","name":"English"}]`},
		{"codes", `["pt","en"]`},
		{"wrapped", `{"languages":[{"code":"pt","name":"Portuguese"},{"code":"en","name":"English"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tc.body))
			}))
			langs, err := svc.Languages(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if len(langs) != 2 || langs[0].Code != "pt" {
				t.Fatalf("langs = %+v", langs)
			}
		})
	}
}

func TestAttachmentName(t *testing.T) {
	cases := []struct {
		disposition string
		want        string
	}{
		{`attachment; filename="out.docx"`, "out.docx"},
		{`attachment; filename="../../etc/out.docx"`, "out.docx"},
		{"", "in.docx"},
		{"garbage;;;", "in.docx"},
	}
	for _, tc := range cases {
		if got := attachmentName(tc.disposition, "in.docx"); got != tc.want {
			t.Errorf("attachmentName(%q) = %q, want %q", tc.disposition, got, tc.want)
		}
	}
}
