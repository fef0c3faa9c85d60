package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hydroaid/hydroaid-backend/internal/realtime/hub"
	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/records/repository"
	"github.com/hydroaid/hydroaid-backend/internal/records/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type downStore struct {
	*repository.MemoryStore
}

func (downStore) InsertIssue(context.Context, *domain.Issue) error {
	return errors.New("dial tcp: connection refused")
}

func setupRouter(t *testing.T, store repository.Store) (*gin.Engine, *hub.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := hub.NewRegistry()
	coordinator := service.NewCoordinator(store, hub.NewBroadcaster(registry, time.Second), time.Second)

	r := gin.New()
	New(coordinator).Register(r.Group("/api"))
	return r, registry
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateDonationHandler(t *testing.T) {
	r, registry := setupRouter(t, repository.NewMemoryStore())
	admin := hub.NewConn("admin", "admin", "", 4)
	registry.Register(admin)
	require.NoError(t, registry.Join(admin, hub.AdminRoom))

	t.Run("created", func(t *testing.T) {
		rr := postJSON(r, "/api/stats/donations", `{"amount": 50, "paymentMethod": "upi", "projectId": "p1"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, 50.0, body["amount"])
		assert.Equal(t, "Anonymous Donor", body["userId"].(map[string]interface{})["name"])

		select {
		case ev := <-admin.Events():
			assert.Equal(t, hub.EventNewDonation, ev.Name)
		case <-time.After(time.Second):
			t.Fatal("no event delivered to admin room")
		}
	})

	t.Run("missing amount", func(t *testing.T) {
		rr := postJSON(r, "/api/stats/donations", `{"paymentMethod": "upi"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"amount"`)
	})

	t.Run("missing payment method", func(t *testing.T) {
		rr := postJSON(r, "/api/stats/donations", `{"amount": 10}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"paymentMethod"`)
	})

	t.Run("numeric string amount", func(t *testing.T) {
		rr := postJSON(r, "/api/stats/donations", `{"amount": "50", "paymentMethod": "card"}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Contains(t, rr.Body.String(), `"amount":50`)
		<-admin.Events()
	})

	t.Run("non numeric amount names the field", func(t *testing.T) {
		for _, amount := range []string{`"lots"`, `true`, `[50]`} {
			rr := postJSON(r, "/api/stats/donations", `{"amount": `+amount+`, "paymentMethod": "upi"}`)
			assert.Equal(t, http.StatusBadRequest, rr.Code, amount)
			assert.Contains(t, rr.Body.String(), `"field":"amount"`, amount)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := postJSON(r, "/api/stats/donations", `{"amount": "lots"`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCreateIssueHandler(t *testing.T) {
	r, _ := setupRouter(t, repository.NewMemoryStore())

	t.Run("created with string coordinates", func(t *testing.T) {
		rr := postJSON(r, "/api/issues", `{
			"title": "Contaminated well",
			"description": "Brown water since Monday",
			"category": "water_quality",
			"location": {"lat": "17.4", "lng": 78.5},
			"departmentId": "dept-7",
			"photos": ["https://cdn/a.jpg", {"url": "https://cdn/b.jpg", "description": "close up"}]
		}`)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		var issue domain.Issue
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issue))
		assert.Equal(t, domain.Location{Lat: 17.4, Lng: 78.5}, issue.Location)
		assert.Equal(t, domain.PriorityMedium, issue.Priority)
		assert.Len(t, issue.Photos, 2)
		assert.Equal(t, "Anonymous Reporter", issue.Reporter.Name)
	})

	t.Run("missing location", func(t *testing.T) {
		rr := postJSON(r, "/api/issues", `{"title":"a","description":"b","category":"emergency","departmentId":"d"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"location.lat"`)
	})

	t.Run("non numeric coordinate", func(t *testing.T) {
		rr := postJSON(r, "/api/issues", `{"title":"a","description":"b","category":"emergency","departmentId":"d","location":{"lat":"north","lng":1}}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"location.lat"`)
	})

	t.Run("missing department", func(t *testing.T) {
		rr := postJSON(r, "/api/issues", `{"title":"a","description":"b","category":"emergency","location":{"lat":1,"lng":1}}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"departmentId"`)
	})
}

func TestCreateIssueHandler_StoreDown(t *testing.T) {
	r, _ := setupRouter(t, downStore{repository.NewMemoryStore()})

	rr := postJSON(r, "/api/issues", `{"title":"a","description":"b","category":"emergency","departmentId":"d","location":{"lat":1,"lng":1}}`)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
