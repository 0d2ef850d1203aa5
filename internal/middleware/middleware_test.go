package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/arena-booking/internal/utils"
)

const testSecret = "test-secret"

func protected(e *echo.Echo, roles ...string) {
	g := e.Group("/v1", JWTAuth(testSecret))
	if len(roles) > 0 {
		g.Use(RequireRole(roles...))
	}
	g.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	staff, err := utils.NewAccessToken(testSecret, 7, utils.RoleStaff, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, _ := utils.NewAccessToken(testSecret, 7, utils.RoleStaff, -time.Hour)
	forged, _ := utils.NewAccessToken("other-secret", 7, utils.RoleAdmin, time.Hour)
	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "7", "role": "ADMIN"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	badSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "abc", "exp": time.Now().Add(time.Hour).Unix()}).
		SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"valid", staff.Token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"expired", expired.Token, http.StatusUnauthorized},
		{"wrong secret", forged.Token, http.StatusUnauthorized},
		{"unsigned", noneAlg, http.StatusUnauthorized},
		{"non-numeric subject", badSub, http.StatusUnauthorized},
	}
	e := echo.New()
	protected(e)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := call(e, tt.token); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	protected(e, utils.RoleAdmin)
	staff, _ := utils.NewAccessToken(testSecret, 7, utils.RoleStaff, time.Hour)
	admin, _ := utils.NewAccessToken(testSecret, 8, utils.RoleAdmin, time.Hour)
	if rec := call(e, staff.Token); rec.Code != http.StatusForbidden {
		t.Errorf("staff status = %d, want 403", rec.Code)
	}
	if rec := call(e, admin.Token); rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = GetRequestID(c)
		return c.NoContent(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("generated id %q, header %q", seen, rec.Header().Get(HeaderRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if seen != "abc-123" || rec.Header().Get(HeaderRequestID) != "abc-123" {
		t.Errorf("propagated id %q", seen)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Errorf("decoded status=%d header=%v body=%q ok=%v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 1}); ok {
		t.Error("short payload decoded")
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", nil)
	req.RemoteAddr = "10.0.0.1:5123"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/reservations")
	c.Set(ctxUserID, uint64(7))

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:10.0.0.1"},
		{"user_route", "rl:user:7:route:POST /v1/reservations"},
		{"ip_user_route", "rl:ip:10.0.0.1:user:7:route:POST /v1/reservations"},
		{"bogus", "rl:ip:10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			if got := rateKey("rl", keyParts(tt.strategy), c); got != tt.want {
				t.Errorf("rateKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
