package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapbook/internal/config"
	"tapbook/internal/database"
	"tapbook/internal/logging"
	"tapbook/internal/pkg/clock"
	"tapbook/internal/repository"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type suite struct {
	t     *testing.T
	app   *App
	clock *clock.Fixed
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:          "test",
		HTTPAddr:        "127.0.0.1:0",
		JWTSecret:       "e2e-secret",
		JWTTTL:          time.Hour,
		Location:        time.UTC,
		ReminderLead:    24 * time.Hour,
		SweepSchedule:   "@every 1m",
		CORSOrigins:     []string{"*"},
		ShutdownTimeout: time.Second,
	}
}

func setup(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clk := clock.NewFixed(time.Date(2026, 10, 30, 12, 0, 0, 0, time.UTC))
	a, err := New(testConfig(), logging.Discard(), WithDB(db), WithRedis(rdb), WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return &suite{t: t, app: a, clock: clk}
}

func (s *suite) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (s *suite) register(name, email, role string) (int64, string) {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(s.t, http.StatusCreated, code)
	var out struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &out))
	return out.User.ID, out.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestBookingFlow(t *testing.T) {
	s := setup(t)

	_, providerToken := s.register("Dana", "dana@example.com", "provider")
	_, customerToken := s.register("Sam", "sam@example.com", "customer")
	_, otherToken := s.register("Lee", "lee@example.com", "customer")

	code, env := s.do(http.MethodPost, "/api/v1/provider/service", providerToken, gin.H{
		"name":             "Haircut",
		"category":         "hair",
		"price":            "100.00",
		"duration_minutes": 60,
		"business_hours": gin.H{
			"monday": gin.H{"from": "09:00", "to": "17:00"},
		},
	})
	require.Equal(t, http.StatusCreated, code)
	serviceID := decode[struct {
		Service struct {
			ID int64 `json:"id"`
		} `json:"service"`
	}](t, env.Data).Service.ID
	sid := strconv.FormatInt(serviceID, 10)

	code, _ = s.do(http.MethodPost, "/api/v1/me/membership", customerToken, gin.H{"plan": "yearly"})
	require.Equal(t, http.StatusOK, code)

	// Monday 2 November 10:00
	code, env = s.do(http.MethodPost, "/api/v1/appointments", customerToken, gin.H{
		"service_id": serviceID,
		"start":      "2026-11-02T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, code)
	booked := decode[struct {
		Status        string  `json:"status"`
		AppointmentID int64   `json:"appointment_id"`
		TotalDue      float64 `json:"total_due"`
	}](t, env.Data)
	assert.Equal(t, "accepted", booked.Status)
	assert.Equal(t, 90.0, booked.TotalDue)
	aid := strconv.FormatInt(booked.AppointmentID, 10)

	code, env = s.do(http.MethodPost, "/api/v1/appointments", otherToken, gin.H{
		"service_id": serviceID,
		"start":      "2026-11-02T10:30:00Z",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SlotTaken", env.Error.Details["reason"])

	code, _ = s.do(http.MethodPatch, "/api/v1/appointments/"+aid+"/confirm", providerToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/v1/services/"+sid+"/availability?date=2026-11-02", "", nil)
	require.Equal(t, http.StatusOK, code)
	avail := decode[struct {
		BookedSlots []any `json:"booked_slots"`
	}](t, env.Data)
	assert.Len(t, avail.BookedSlots, 1)

	code, _ = s.do(http.MethodPost, "/api/v1/reviews", customerToken, gin.H{"appointment_id": booked.AppointmentID, "rating": 5})
	assert.Equal(t, http.StatusConflict, code, "confirmed appointments are not reviewable yet")

	ctx := context.Background()

	// Sunday noon: within the reminder lead
	s.clock.Set(time.Date(2026, 11, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, s.app.Sweeper.RunOnce(ctx))

	// Monday after the slot ended
	s.clock.Set(time.Date(2026, 11, 2, 11, 30, 0, 0, time.UTC))
	require.NoError(t, s.app.Sweeper.RunOnce(ctx))

	code, env = s.do(http.MethodGet, "/api/v1/appointments/"+aid, customerToken, nil)
	require.Equal(t, http.StatusOK, code)
	appt := decode[struct {
		Appointment struct {
			Status   string `json:"status"`
			Reminded bool   `json:"reminded"`
		} `json:"appointment"`
	}](t, env.Data).Appointment
	assert.Equal(t, "completed", appt.Status)
	assert.True(t, appt.Reminded)

	code, _ = s.do(http.MethodPost, "/api/v1/reviews", customerToken, gin.H{"appointment_id": booked.AppointmentID, "rating": 5})
	require.Equal(t, http.StatusCreated, code)
	code, _ = s.do(http.MethodPost, "/api/v1/reviews", otherToken, gin.H{"appointment_id": booked.AppointmentID, "rating": 1})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodGet, "/api/v1/services/"+sid, "", nil)
	require.Equal(t, http.StatusOK, code)
	rating := decode[struct {
		Service struct {
			Rating struct {
				Average float64 `json:"average"`
				Count   int64   `json:"count"`
			} `json:"rating"`
		} `json:"service"`
	}](t, env.Data).Service.Rating
	assert.Equal(t, 5.0, rating.Average)
	assert.EqualValues(t, 1, rating.Count)

	code, env = s.do(http.MethodGet, "/api/v1/notifications", customerToken, nil)
	require.Equal(t, http.StatusOK, code)
	inbox := decode[struct {
		Notifications []struct {
			Kind string `json:"kind"`
		} `json:"notifications"`
		UnreadCount int64 `json:"unread_count"`
	}](t, env.Data)
	kinds := make([]string, 0, len(inbox.Notifications))
	for _, n := range inbox.Notifications {
		kinds = append(kinds, n.Kind)
	}
	assert.ElementsMatch(t, []string{"booking_confirmed", "booking_reminder", "booking_completed"}, kinds)
	assert.EqualValues(t, 3, inbox.UnreadCount)

	code, env = s.do(http.MethodGet, "/api/v1/notifications", providerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "new_review")
	assert.Contains(t, string(env.Data), "booking_created")
}

func TestHealthAndMetrics(t *testing.T) {
	s := setup(t)

	code, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, _ = s.do(http.MethodGet, "/api/v1/me/appointments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tapbook_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
