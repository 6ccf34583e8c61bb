package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/memoka-app/memoka/internal/notes"
)

func performJSON(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeNote(t *testing.T, body []byte) notes.Note {
	t.Helper()
	var note notes.Note
	if err := json.Unmarshal(body, &note); err != nil {
		t.Fatalf("failed to decode note: %v (%s)", err, string(body))
	}
	return note
}

func TestCreateNoteThenGetAll(t *testing.T) {
	handler, _ := newTestRouter(t)

	created := performJSON(t, handler, http.MethodPost, "/notes",
		`{"title":"Groceries","content":"<p>milk</p>","tags":["errands"]}`)
	if created.Code != http.StatusCreated {
		t.Fatalf("expected created status, got %d: %s", created.Code, created.Body.String())
	}
	note := decodeNote(t, created.Body.Bytes())
	if note.ID == "" || note.Title != "Groceries" {
		t.Fatalf("unexpected created note: %+v", note)
	}

	listed := performJSON(t, handler, http.MethodGet, "/notes", "")
	if listed.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", listed.Code)
	}
	var all []notes.Note
	if err := json.Unmarshal(listed.Body.Bytes(), &all); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(all) != 1 || all[0].ID != note.ID {
		t.Fatalf("unexpected note list: %+v", all)
	}
}

func TestCreateNoteRejectsMissingTitle(t *testing.T) {
	handler, _ := newTestRouter(t)

	response := performJSON(t, handler, http.MethodPost, "/notes", `{"content":"<p>x</p>"}`)
	if response.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", response.Code)
	}
	expected := `{"error":"title_required"}`
	if response.Body.String() != expected {
		t.Fatalf("unexpected response body: %s", response.Body.String())
	}
}

func TestGetNoteByIDReturnsNotFound(t *testing.T) {
	handler, _ := newTestRouter(t)

	response := performJSON(t, handler, http.MethodGet, "/notes/absent", "")
	if response.Code != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", response.Code)
	}
	expected := `{"error":"not_found"}`
	if response.Body.String() != expected {
		t.Fatalf("unexpected response body: %s", response.Body.String())
	}
}

func TestUpdateNotePartialFields(t *testing.T) {
	handler, _ := newTestRouter(t)

	created := performJSON(t, handler, http.MethodPost, "/notes",
		`{"title":"Before","content":"<p>kept</p>","tags":["a","b"]}`)
	note := decodeNote(t, created.Body.Bytes())

	updated := performJSON(t, handler, http.MethodPatch, "/notes/"+note.ID, `{"title":"After"}`)
	if updated.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d: %s", updated.Code, updated.Body.String())
	}
	merged := decodeNote(t, updated.Body.Bytes())
	if merged.Title != "After" || merged.Content != "<p>kept</p>" {
		t.Fatalf("unexpected merged note: %+v", merged)
	}

	// Tag associations survive an update that omits the tags key.
	fetched := performJSON(t, handler, http.MethodGet, "/notes/"+note.ID, "")
	reloaded := decodeNote(t, fetched.Body.Bytes())
	if len(reloaded.Tags) != 2 {
		t.Fatalf("expected tags untouched, got %v", reloaded.Tags)
	}

	// An explicit empty tag list clears associations.
	cleared := performJSON(t, handler, http.MethodPatch, "/notes/"+note.ID, `{"tags":[]}`)
	if cleared.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", cleared.Code)
	}
	fetched = performJSON(t, handler, http.MethodGet, "/notes/"+note.ID, "")
	reloaded = decodeNote(t, fetched.Body.Bytes())
	if len(reloaded.Tags) != 0 {
		t.Fatalf("expected tags cleared, got %v", reloaded.Tags)
	}
}

func TestUpdateNoteReturnsNotFound(t *testing.T) {
	handler, _ := newTestRouter(t)

	response := performJSON(t, handler, http.MethodPatch, "/notes/absent", `{"title":"x"}`)
	if response.Code != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", response.Code)
	}
}

func TestDeleteNoteReportsOutcome(t *testing.T) {
	handler, _ := newTestRouter(t)

	created := performJSON(t, handler, http.MethodPost, "/notes", `{"title":"Gone"}`)
	note := decodeNote(t, created.Body.Bytes())

	deleted := performJSON(t, handler, http.MethodDelete, "/notes/"+note.ID, "")
	if deleted.Code != http.StatusOK {
		t.Fatalf("expected ok status, got %d", deleted.Code)
	}
	if deleted.Body.String() != `{"deleted":true}` {
		t.Fatalf("unexpected response body: %s", deleted.Body.String())
	}

	missing := performJSON(t, handler, http.MethodDelete, "/notes/"+note.ID, "")
	if missing.Code != http.StatusOK {
		t.Fatalf("expected ok status for missing note, got %d", missing.Code)
	}
	if missing.Body.String() != `{"deleted":false}` {
		t.Fatalf("unexpected response body: %s", missing.Body.String())
	}
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); err == nil {
		t.Fatalf("expected error without repository")
	}
}
