package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa/internal/domain"
	"docqa/internal/pages"
	"docqa/internal/service"
)

type fakeBackend struct {
	uploadErr error
	filename  string
	body      string
	fragments []string
	chatErr   error
	history   []domain.Message
	model     string
	knowledge bool
}

func (f *fakeBackend) UploadDocument(_ context.Context, r io.Reader, filename string, _ pages.ProgressFunc) (service.IngestReport, error) {
	data, _ := io.ReadAll(r)
	f.filename, f.body = filename, string(data)
	if f.uploadErr != nil {
		return service.IngestReport{}, f.uploadErr
	}
	return service.IngestReport{Collection: "vector_db", Pages: 3, Chunks: 4}, nil
}

func (f *fakeBackend) Respond(_ context.Context, history []domain.Message, model string, useKnowledge bool) iter.Seq2[string, error] {
	f.history, f.model, f.knowledge = history, model, useKnowledge
	return func(yield func(string, error) bool) {
		for _, frag := range f.fragments {
			if !yield(frag, nil) {
				return
			}
		}
		if f.chatErr != nil {
			yield("", f.chatErr)
		}
	}
}

func (f *fakeBackend) Status(context.Context) (service.Status, error) {
	return service.Status{Collection: "vector_db", Chunks: 4}, nil
}

func upload(t *testing.T, srv http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&fakeBackend{}, nil, 1<<20).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestCollection(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&fakeBackend{}, nil, 1<<20).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/collection", nil))
	var st service.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Collection != "vector_db" || st.Chunks != 4 {
		t.Errorf("status = %+v", st)
	}
}

func TestUpload(t *testing.T) {
	be := &fakeBackend{}
	rec := upload(t, NewServer(be, nil, 1<<20), "../../etc/manual.txt", "intro text")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if be.filename != "manual.txt" || be.body != "intro text" {
		t.Errorf("backend got %q %q", be.filename, be.body)
	}
	var report service.IngestReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Chunks != 4 || report.Pages != 3 {
		t.Errorf("report = %+v", report)
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &domain.ValidationError{Reason: "document produced no chunks"}, http.StatusUnprocessableEntity},
		{"store", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, NewServer(&fakeBackend{uploadErr: tt.err}, nil, 1<<20), "a.txt", "x")
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestUpload_MissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	NewServer(&fakeBackend{}, nil, 1<<20).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func chat(t *testing.T, be *fakeBackend, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewServer(be, nil, 1<<20).ServeHTTP(rec, req)
	return rec
}

func TestChat_Streams(t *testing.T) {
	be := &fakeBackend{fragments: []string{"Oil ", "monthly."}}
	rec := chat(t, be, `{"messages":[{"role":"user","content":"how often?"}],"model":"llama3","use_knowledge":true}`)

	if rec.Code != http.StatusOK || rec.Body.String() != "Oil monthly." {
		t.Errorf("chat = %d %q", rec.Code, rec.Body)
	}
	if !rec.Flushed {
		t.Error("response not flushed")
	}
	if be.model != "llama3" || !be.knowledge || len(be.history) != 1 {
		t.Errorf("backend got model=%q knowledge=%v history=%+v", be.model, be.knowledge, be.history)
	}
}

func TestChat_ErrorInline(t *testing.T) {
	be := &fakeBackend{fragments: []string{"partial"}, chatErr: errors.New("backend down")}
	rec := chat(t, be, `{"messages":[{"role":"user","content":"q"}]}`)
	if got := rec.Body.String(); got != "partial\n[error] backend down\n" {
		t.Errorf("body = %q", got)
	}
}

func TestChat_BadRequest(t *testing.T) {
	for _, body := range []string{`{`, `{"messages":[]}`, `{"messages":[{"role":"robot","content":"x"}]}`} {
		if rec := chat(t, &fakeBackend{}, body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
		}
	}
}
