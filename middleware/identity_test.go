package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"studyquiz-server/logger"
)

func identityRouter(id *Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(id.Middleware())
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"viewer": ViewerID(c), "tab": TabID(c)})
	})
	return r
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestIdentityMintsAndReusesCookies(t *testing.T) {
	id := NewIdentity("test-secret", time.Hour, logger.Nop())
	r := identityRouter(id)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	viewer := cookieNamed(w.Result().Cookies(), ViewerCookie)
	tab := cookieNamed(w.Result().Cookies(), TabCookie)
	if viewer == nil || tab == nil {
		t.Fatalf("Expected both identity cookies, got %v", w.Result().Cookies())
	}
	if viewer.MaxAge != 3600 {
		t.Errorf("Expected persistent viewer cookie, got MaxAge %d", viewer.MaxAge)
	}
	if tab.MaxAge != 0 {
		t.Errorf("Expected browser-session tab cookie, got MaxAge %d", tab.MaxAge)
	}
	if !viewer.HttpOnly {
		t.Error("Expected HttpOnly identity cookies")
	}

	viewerID, err := id.Parse(viewer.Value, "viewer")
	if err != nil {
		t.Fatalf("Parse viewer token: %v", err)
	}
	if _, err := uuid.Parse(viewerID); err != nil {
		t.Fatalf("Expected uuid subject, got %q", viewerID)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(viewer)
	req.AddCookie(tab)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if cookieNamed(w.Result().Cookies(), ViewerCookie) != nil {
		t.Error("A valid viewer cookie must not be reissued")
	}
	if body := w.Body.String(); !strings.Contains(body, viewerID) {
		t.Errorf("Expected viewer %s in response, got %s", viewerID, body)
	}
}

func TestIdentityRejectsForeignTokens(t *testing.T) {
	id := NewIdentity("test-secret", time.Hour, logger.Nop())
	other := NewIdentity("other-secret", time.Hour, logger.Nop())

	forged, err := other.Sign(uuid.NewString(), "viewer", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := id.Parse(forged, "viewer"); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}

	tabToken, _ := id.Sign(uuid.NewString(), "tab", time.Hour)
	if _, err := id.Parse(tabToken, "viewer"); err == nil {
		t.Error("Expected tab token to be rejected as viewer token")
	}

	expired, _ := id.Sign(uuid.NewString(), "viewer", -time.Minute)
	if _, err := id.Parse(expired, "viewer"); err == nil {
		t.Error("Expected expired token to be rejected")
	}

	notUUID, _ := id.Sign("alice", "viewer", time.Hour)
	if _, err := id.Parse(notUUID, "viewer"); err == nil {
		t.Error("Expected non uuid subject to be rejected")
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://allowed.test"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://allowed.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://allowed.test" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	open := gin.New()
	open.Use(CORS(nil))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w = httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected passthrough without origins, got %d", w.Code)
	}
}
