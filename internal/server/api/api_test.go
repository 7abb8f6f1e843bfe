package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/mudra/internal/canvas"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// fakeController backs the handlers with a real session and canvas.
type fakeController struct {
	sess    *session.Session
	canvas  *canvas.Canvas
	cleared int
	reloads int
}

func newFakeController(t *testing.T) *fakeController {
	t.Helper()

	sess, err := session.New(session.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	c := canvas.New(64, 48)
	t.Cleanup(func() { c.Close() })
	return &fakeController{sess: sess, canvas: c}
}

func (f *fakeController) Mode() session.Mode           { return f.sess.Mode() }
func (f *fakeController) SetMode(m session.Mode) error { return f.sess.SetMode(m) }
func (f *fakeController) Brush() session.Brush         { return f.sess.Brush() }
func (f *fakeController) Canvas() *canvas.Canvas       { return f.canvas }

func (f *fakeController) SetBrush(b session.Brush) (session.Brush, error) {
	return f.sess.SetBrush(b)
}

func (f *fakeController) ClearCanvas() {
	f.cleared++
	f.canvas.Clear()
}

func (f *fakeController) LoadPoses() error {
	f.reloads++
	return nil
}

// do sends a request to h and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals the recorder body into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}
