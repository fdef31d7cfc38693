package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/config"
	"github.com/tochtwerk/gelukstocht/internal/handler"
	"github.com/tochtwerk/gelukstocht/internal/repository"
)

func newTestEcho() *echo.Echo {
	// Repositories over a nil pool are fine for routing checks: no
	// handler body runs past the auth middleware in these tests.
	tours := repository.NewTourRepo(nil)
	checkpoints := repository.NewCheckpointRepo(nil)
	sessions := repository.NewSessionRepo(nil)
	teams := repository.NewTeamRepo(nil)
	scores := repository.NewScoreRepo(nil)
	orders := repository.NewOrderRepo(nil)
	coupons := repository.NewCouponRepo(nil)
	events := repository.NewWebhookEventRepo(nil)

	t := handler.NewTourHandler(tours, checkpoints)
	s := handler.NewSessionHandler(sessions, tours, teams, nil)
	sb := handler.NewScoreboardHandler(sessions, checkpoints, scores, nil)
	co := handler.NewCheckoutHandler(tours, sessions, orders, coupons)
	wh := handler.NewWebhookHandler(config.Config{WebhookSecret: "s"}, events, orders, coupons, sessions, nil)

	e := echo.New()
	RegisterLeader(e, "test-secret", t, s, sb, co, wh)
	return e
}

func TestSessionLifecycleVerbsAreRouted(t *testing.T) {
	e := newTestEcho()

	// Every verb must resolve to a handler. An unrouted path returns
	// 404 from Echo itself; a routed one reaches the JWT middleware
	// and is rejected with 401 because the request carries no token.
	for _, verb := range []string{"open-lobby", "start", "pause", "resume", "complete", "cancel"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/1/"+verb, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == http.StatusNotFound {
			t.Errorf("POST /v1/sessions/1/%s is not routed", verb)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("POST /v1/sessions/1/%s = %d, want 401 from auth middleware", verb, rec.Code)
		}
	}
}

func TestSessionActionRouteUsesParam(t *testing.T) {
	e := newTestEcho()
	for _, r := range e.Routes() {
		if r.Method == http.MethodPost && r.Path == "/v1/sessions/:id/:action" {
			return
		}
	}
	t.Fatal("POST /v1/sessions/:id/:action not registered")
}

func TestConsentRouteStillResolves(t *testing.T) {
	// The static consent segment must win over the :action param.
	e := newTestEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/1/consent", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code == http.StatusNotFound {
		t.Fatal("POST /v1/sessions/1/consent is not routed")
	}
}
