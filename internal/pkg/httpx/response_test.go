package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fekuna/omnipos-marketplace-service/internal/pkg/apperror"
)

func serveError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", func(c *gin.Context) { Error(c, err) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestErrorStatusFromKind(t *testing.T) {
	malformed := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", apperror.NotFound("product %s not found", "p-1"), http.StatusNotFound, "product p-1 not found"},
		{"plain error hides detail", errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal server error"},
		{"malformed id from postgres", fmt.Errorf("find product: %w", malformed), http.StatusBadRequest, "malformed identifier"},
		{"malformed id behind internal wrap", apperror.Wrap(apperror.KindInternal, "load order", malformed), http.StatusBadRequest, "malformed identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveError(tt.err)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var body envelope
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Success || body.Error != tt.msg {
				t.Fatalf("body = %+v", body)
			}
		})
	}
}
