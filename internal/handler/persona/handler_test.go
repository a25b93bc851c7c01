package persona

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/textmate/backend/internal/model/persona"
)

func setupRouter() (*chi.Mux, *persona.MemoryStore) {
	store := persona.NewMemoryStore(persona.Seed())
	r := chi.NewRouter()
	New(store).RegisterRoutes(r)
	return r, store
}

func TestListPersonas(t *testing.T) {
	r, _ := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var list []persona.Persona
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(list) != 1 || list[0].ID != "alex" {
		t.Fatalf("unexpected personas: %+v", list)
	}
}

func TestGetPersonaNotFound(t *testing.T) {
	r, _ := setupRouter()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/personas/ghost", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestUpdatePersonaPartial(t *testing.T) {
	r, store := setupRouter()

	body := []byte(`{"name":"  Jamie ","online":false}`)
	req := httptest.NewRequest(http.MethodPut, "/personas/alex", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got, _ := store.FindByID("alex")
	if got.Name != "Jamie" {
		t.Fatalf("expected trimmed name, got %q", got.Name)
	}
	if got.Online {
		t.Fatal("expected contact to be offline")
	}
	if got.Description != "friendly, casual, and sometimes witty" {
		t.Fatalf("description must be untouched, got %q", got.Description)
	}
}

func TestUpdatePersonaInvalidBody(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPut, "/personas/alex", bytes.NewReader([]byte(`{`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
