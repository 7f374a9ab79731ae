package feedapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/MuhammadOdilhonov/ziyo-flix-sub004/internal/auth"
)

const testJWTSecret = "test-secret-for-feedapi-tests"
const testUserID = "550e8400-e29b-41d4-a716-446655440000"
const testReelID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

type mockStorage struct{}

func (mockStorage) PublicURL(key string) string {
	return "https://media.ziyoflix.uz/reels/" + key
}

type mockGeo struct {
	country string
	city    string
}

func (g mockGeo) Lookup(ip string) (string, string) {
	return g.country, g.city
}

func newTestHandler(t *testing.T) (*Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return NewHandler(mock, mockStorage{}, testJWTSecret), mock
}

func newTestRouter(h *Handler) chi.Router {
	authMiddleware := auth.NewHandler(testJWTSecret).Middleware
	r := chi.NewRouter()
	r.Get("/api/reels", h.ListReels)
	r.Route("/api/reels/{id}", func(r chi.Router) {
		r.Get("/comments", h.ListComments)
		r.Post("/report", h.Report)
		r.Post("/view", h.RecordView)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/like", h.ToggleLike)
			r.Post("/save", h.Save)
			r.Delete("/save", h.Unsave)
			r.Post("/comments", h.PostComment)
			r.Get("/analytics", h.Analytics)
		})
	})
	return r
}

func authenticatedRequest(t *testing.T, method, target string, body []byte) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	token, err := auth.GenerateAccessToken(testJWTSecret, testUserID)
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func expectReelLookup(mock pgxmock.PgxPoolIface, found bool) {
	q := mock.ExpectQuery(`SELECT id FROM reels WHERE id = \$1 AND status = 'published'`).
		WithArgs(testReelID)
	if found {
		q.WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testReelID))
	} else {
		q.WillReturnRows(pgxmock.NewRows([]string{"id"}))
	}
}

func decodeJSON(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("failed to decode response %s: %v", body, err)
	}
}

func checkExpectations(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
