package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestIdentity_TrimsHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "  alice ")
	c := e.NewContext(req, httptest.NewRecorder())

	var seen string
	h := Identity()(func(c echo.Context) error {
		seen = CallerID(c)
		return nil
	})

	assert.NoError(t, h(c))
	assert.Equal(t, "alice", seen)
}

func TestCallerID_WithoutMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "", CallerID(c))

	req.Header.Set(HeaderUserID, "bob")
	assert.Equal(t, "bob", CallerID(c))
}

func TestErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"http error", echo.NewHTTPError(http.StatusNotFound, "event not found"), http.StatusNotFound, `{"message":"event not found"}`},
		{"non string message", echo.NewHTTPError(http.StatusConflict, errors.New("x")), http.StatusConflict, `{"message":"Conflict"}`},
		{"internal error hides detail", errors.New("pq: relation does not exist"), http.StatusInternalServerError, `{"message":"Internal Server Error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tc.err, c)

			assert.Equal(t, tc.code, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}
