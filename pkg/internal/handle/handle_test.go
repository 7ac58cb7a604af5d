package handle

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/snapvault/pkg/internal/service"
)

// TestWriteServiceErrorMapping service 层错误到 HTTP 状态码的映射.
func TestWriteServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid otp", service.ErrInvalidOTP, http.StatusBadRequest},
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"expired", service.ErrExpired, http.StatusGone},
		{"too large", fmt.Errorf("%w: 9 bytes", service.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{"allocation exhausted", service.ErrAllocationExhausted, http.StatusServiceUnavailable},
		{"storage", &service.StorageError{Op: "put", Err: errors.New("minio down")}, http.StatusBadGateway},
		{"metadata", &service.MetadataError{Op: "query", Err: errors.New("SQLSTATE 42P01")}, http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			writeServiceError(c, tc.err)

			if w.Code != tc.code {
				t.Errorf("status = %d, want %d", w.Code, tc.code)
			}
		})
	}
}

// TestWriteServiceErrorHidesInternalDetail 内部错误细节不出现在响应体中.
func TestWriteServiceErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	detail := "ERROR: relation \"file_shares\" does not exist (SQLSTATE 42P01)"

	for _, err := range []error{
		&service.MetadataError{Op: "query", Err: errors.New(detail)},
		errors.New(detail),
	} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		writeServiceError(c, err)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}

		body := w.Body.String()
		if strings.Contains(body, "SQLSTATE") || strings.Contains(body, "file_shares") {
			t.Errorf("response leaks internal detail: %s", body)
		}

		if !strings.Contains(body, "internal error") {
			t.Errorf("body = %s, want generic internal error", body)
		}
	}
}
