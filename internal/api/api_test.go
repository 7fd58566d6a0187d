package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/catalog"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEnv sets up a temp workspace, SQLite catalog, manager, and router.
// An empty authToken means auth disabled.
func testEnv(t *testing.T, authToken string) (http.Handler, storage.Provider) {
	t.Helper()

	wsDir := t.TempDir()
	store, err := storage.NewFS(wsDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "laguz-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	cat, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cat.Close() })

	logger := testLogger()
	creator := notebook.NewCreator(store, logger)
	t.Cleanup(creator.Close)

	mgr := notebook.NewManager(cat, store, creator, logger)
	router := NewRouter(mgr, store, nil, authToken != "", authToken)
	return router, store
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createNotebook(t *testing.T, router http.Handler) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/notebooks", CreateNotebookRequest{Name: "test"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create notebook = %d, body = %s", w.Code, w.Body.String())
	}
	var nb models.Notebook
	if err := json.Unmarshal(w.Body.Bytes(), &nb); err != nil {
		t.Fatal(err)
	}
	return nb.ID
}

func getNotebook(t *testing.T, router http.Handler, id string) models.Notebook {
	t.Helper()
	w := doJSON(t, router, http.MethodGet, "/notebooks/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get notebook = %d, body = %s", w.Code, w.Body.String())
	}
	var nb models.Notebook
	if err := json.Unmarshal(w.Body.Bytes(), &nb); err != nil {
		t.Fatal(err)
	}
	return nb
}

func TestCreateAndGetFile(t *testing.T) {
	router, _ := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/files", CreateFileRequest{Path: "nb1/a.md", Content: "# Hi"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/files/nb1/a.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d", w.Code)
	}
	var resp FileContentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Content != "# Hi" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestDeleteFile(t *testing.T) {
	router, store := testEnv(t, "")
	if err := store.Write("nb1/gone.csv", []byte("a,b\n")); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodDelete, "/files/nb1/gone.csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}
	var resp FileDeleteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Success {
		t.Errorf("body = %s", w.Body.String())
	}

	if _, err := store.Read("nb1/gone.csv"); err == nil {
		t.Error("file should be gone")
	}
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) List(string) ([]models.FileMetadata, error) { return nil, errors.New("backend down") }
func (failingStore) Read(string) ([]byte, error)                { return nil, errors.New("backend down") }
func (failingStore) Write(string, []byte) error                 { return errors.New("backend down") }
func (failingStore) Delete(string) error                        { return errors.New("backend down") }
func (failingStore) Move(string, string) error                  { return errors.New("backend down") }

func failingFileRouter() http.Handler {
	fh := NewFileHandler(failingStore{}, nil)
	r := chi.NewRouter()
	r.Get("/files/*", fh.GetFile)
	r.Delete("/files/*", fh.DeleteFile)
	return r
}

func TestGetFileStorageFailure(t *testing.T) {
	router := failingFileRouter()

	w := doJSON(t, router, http.MethodGet, "/files/a/b.txt", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Failed to fetch file" {
		t.Errorf("error = %q, want %q", resp.Error, "Failed to fetch file")
	}
}

func TestDeleteFileStorageFailure(t *testing.T) {
	router := failingFileRouter()

	w := doJSON(t, router, http.MethodDelete, "/files/a/b.txt", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "Failed to delete file" {
		t.Errorf("error = %q, want %q", resp.Error, "Failed to delete file")
	}
}

func TestCreateBlockAndRenumbering(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	// Three appended blocks at positions 0,1,2.
	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
			CreateBlockRequest{Type: models.BlockPython})
		if w.Code != http.StatusCreated {
			t.Fatalf("create block = %d, body = %s", w.Code, w.Body.String())
		}
	}

	// Insert a markdown block at position 1.
	pos := 1
	w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
		CreateBlockRequest{Type: models.BlockMarkdown, Position: &pos})
	if w.Code != http.StatusCreated {
		t.Fatalf("insert = %d", w.Code)
	}
	var created CreateBlockResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	nb := getNotebook(t, router, nbID)
	if len(nb.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(nb.Blocks))
	}
	for i, b := range nb.Blocks {
		if b.Position != i {
			t.Errorf("position[%d] = %d", i, b.Position)
		}
	}
	if nb.Blocks[1].ID != created.ID || nb.Blocks[1].Type != models.BlockMarkdown {
		t.Errorf("block at position 1 = %+v", nb.Blocks[1])
	}
}

func TestCreateBlockUnknownType(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
		map[string]string{"type": "sql"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateBlockIgnoresTypeField(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
		CreateBlockRequest{Type: models.BlockMarkdown})
	var created CreateBlockResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	// A hostile payload trying to flip the variant and set python state.
	w = doJSON(t, router, http.MethodPatch, "/notebooks/"+nbID+"/blocks/"+created.ID,
		map[string]any{"type": "python", "last_output": "pwned", "edit_mode": false})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var b models.Block
	_ = json.Unmarshal(w.Body.Bytes(), &b)
	if b.Type != models.BlockMarkdown {
		t.Errorf("type = %s, want markdown", b.Type)
	}
	if b.LastOutput != "" {
		t.Errorf("python field applied to markdown block: %q", b.LastOutput)
	}
	if b.EditMode {
		t.Error("edit_mode = true, patch should have cleared it")
	}
}

func TestUpdateUnknownBlock(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	w := doJSON(t, router, http.MethodPatch, "/notebooks/"+nbID+"/blocks/ghost",
		map[string]any{"edit_mode": false})
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteBlockCompacts(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	var ids []string
	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
			CreateBlockRequest{Type: models.BlockCSV})
		var created CreateBlockResponse
		_ = json.Unmarshal(w.Body.Bytes(), &created)
		ids = append(ids, created.ID)
	}

	w := doJSON(t, router, http.MethodDelete, "/notebooks/"+nbID+"/blocks/"+ids[1], nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", w.Code)
	}

	nb := getNotebook(t, router, nbID)
	if len(nb.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(nb.Blocks))
	}
	if nb.Blocks[0].Position != 0 || nb.Blocks[1].Position != 1 {
		t.Errorf("positions = [%d %d], want [0 1]", nb.Blocks[0].Position, nb.Blocks[1].Position)
	}
}

func TestMoveBlock(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	var ids []string
	for i := 0; i < 3; i++ {
		w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
			CreateBlockRequest{Type: models.BlockMarkdown})
		var created CreateBlockResponse
		_ = json.Unmarshal(w.Body.Bytes(), &created)
		ids = append(ids, created.ID)
	}

	w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks/"+ids[2]+"/move",
		MoveBlockRequest{Position: 0})
	if w.Code != http.StatusNoContent {
		t.Fatalf("move = %d", w.Code)
	}

	nb := getNotebook(t, router, nbID)
	if nb.Blocks[0].ID != ids[2] {
		t.Errorf("first block = %s, want %s", nb.Blocks[0].ID, ids[2])
	}
}

func TestBlockFileEventuallyCreated(t *testing.T) {
	router, store := testEnv(t, "")
	nbID := createNotebook(t, router)

	w := doJSON(t, router, http.MethodPost, "/notebooks/"+nbID+"/blocks",
		CreateBlockRequest{Type: models.BlockPython})
	var created CreateBlockResponse
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	path := fmt.Sprintf("%s/%s.py", nbID, created.ID)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := store.Read(path); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("backing file %s never created", path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAuthRequired(t *testing.T) {
	router, _ := testEnv(t, "sekrit")

	w := doJSON(t, router, http.MethodGet, "/notebooks", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/notebooks", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with token = %d, want 200", rec.Code)
	}
}

func TestSelection(t *testing.T) {
	router, _ := testEnv(t, "")
	nbID := createNotebook(t, router)

	w := doJSON(t, router, http.MethodPut, "/notebooks/"+nbID+"/selection",
		SelectRequest{BlockID: "anything"})
	if w.Code != http.StatusNoContent {
		t.Errorf("select = %d, want 204 (selection is unvalidated)", w.Code)
	}
}
