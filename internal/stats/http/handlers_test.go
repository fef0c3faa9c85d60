package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/records/repository"
	"github.com/hydroaid/hydroaid-backend/internal/stats/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(store repository.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(service.NewEngine(store, time.Second)).Register(r.Group("/api"))
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func seed(t *testing.T, s *repository.MemoryStore, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		require.NoError(t, s.InsertDonation(context.Background(), &domain.Donation{
			ID:            "d" + string(rune('a'+i)),
			PayerRef:      domain.AnonymousActor,
			Amount:        10,
			PaymentMethod: domain.PaymentCard,
			Status:        domain.DonationCompleted,
			CreatedAt:     base.Add(time.Duration(i) * time.Second),
		}))
	}
}

func TestDashboardHandler(t *testing.T) {
	r := setupRouter(repository.NewMemoryStore())

	rr := get(r, "/api/stats/dashboard")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.JSONEq(t, `[]`, string(body["recentDonations"]))
	assert.JSONEq(t, `{}`, string(body["projects"]))
}

func TestDepartmentHandler(t *testing.T) {
	r := setupRouter(repository.NewMemoryStore())

	rr := get(r, "/api/stats/department/dept-1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"recent":[]`)

	rr = get(r, "/api/stats/department/%20")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLiveDonationsHandler(t *testing.T) {
	s := repository.NewMemoryStore()
	seed(t, s, 5)
	r := setupRouter(s)

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "default", query: "", status: http.StatusOK, count: 5},
		{name: "explicit", query: "?limit=2", status: http.StatusOK, count: 2},
		{name: "negative clamps to one", query: "?limit=-4", status: http.StatusOK, count: 1},
		{name: "non numeric", query: "?limit=many", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(r, "/api/stats/donations/live"+tt.query)
			require.Equal(t, tt.status, rr.Code)
			if tt.status != http.StatusOK {
				return
			}
			var out []domain.Donation
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
			assert.Len(t, out, tt.count)
			assert.Equal(t, "de", out[0].ID)
		})
	}
}
