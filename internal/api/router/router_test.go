package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tipulhub/tipul-server/internal/appointments"
	"github.com/tipulhub/tipul-server/internal/booking"
	"github.com/tipulhub/tipul-server/internal/payments"
	"github.com/tipulhub/tipul-server/internal/practice"
	"github.com/tipulhub/tipul-server/internal/scheduling"
	"github.com/tipulhub/tipul-server/pkg/logging"
)

const routerTestSecret = "router-test-secret"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := appointments.NewInMemoryRepository()
	profiles := &staticProfiles{}
	generator := scheduling.NewGenerator(profiles, repo, 60)
	service := appointments.NewService(repo, generator, profiles, logging.Default())
	bookingHandler := booking.NewHandler(service, generator, profiles, logging.Default())

	payRepo := payments.NewInMemoryRepository()
	providers := payments.ProviderSet{
		Simulation: payments.NewSimulationProvider(nil).WithDelay(0),
		Internal:   payments.NewInternalProvider(nil),
	}
	limits := payments.Limits{Currency: "ILS", MinAgorot: 1000, MaxAgorot: 500000}
	paySvc := payments.NewService(limits, providers, payRepo, logging.Default())
	coordinator := payments.NewCoordinator(providers, payRepo, logging.Default())
	paymentsHandler := payments.NewHandler(paySvc, coordinator, payRepo, logging.Default())

	return New(&Config{
		Logger:          logging.Default(),
		BookingHandler:  bookingHandler,
		PaymentsHandler: paymentsHandler,
		AdminJWTSecret:  routerTestSecret,
	})
}

type staticProfiles struct{}

func (s *staticProfiles) Get(_ context.Context, therapistID string) (*practice.Profile, error) {
	return practice.DefaultProfile(therapistID), nil
}

func (s *staticProfiles) Set(_ context.Context, _ *practice.Profile) error { return nil }

func adminToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(routerTestSecret))
	require.NoError(t, err)
	return signed
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBookingRoutesArePublic(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/booking/slots?therapist_id=t-1&date=2026-09-06", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/practice/profile", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/practice/profile", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "t-1"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"therapist_id":"t-1"`)
}

func TestUnknownRoute(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
