package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	list := []string{"Daily", "Monthly"}
	if !Contains("Daily", list) {
		t.Fatalf("expected Contains to return true for existing item")
	}
	if Contains("Weekly", list) {
		t.Fatalf("expected Contains to return false for missing item")
	}
}

func TestNormalizeFrequencyList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "lowercases and trims",
			input:    []string{" Daily ", "MONTHLY"},
			expected: []string{"daily", "monthly"},
		},
		{
			name:     "drops empty entries",
			input:    []string{"daily", "", "   "},
			expected: []string{"daily"},
		},
		{
			name:     "empty input",
			input:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeFrequencyList(tt.input))
		})
	}
}

func runResponseHelper(fn func(c *gin.Context)) (*httptest.ResponseRecorder, APIResponse) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var resp APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestCallSuccessOK(t *testing.T) {
	w, resp := runResponseHelper(func(c *gin.Context) {
		CallSuccessOK(c, APISuccessParams{Msg: "done", Data: map[string]interface{}{"id": 1}})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Msg)
}

func TestCallErrorHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(c *gin.Context, params APIErrorParams)
		code int
	}{
		{"not found", CallErrorNotFound, http.StatusNotFound},
		{"user error", CallUserError, http.StatusBadRequest},
		{"server error", CallServerError, http.StatusInternalServerError},
		{"unauthorized", CallUserNotAuthorized, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := runResponseHelper(func(c *gin.Context) {
				tt.fn(c, APIErrorParams{Msg: "failed", Err: assert.AnError})
			})
			assert.Equal(t, tt.code, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, "failed", resp.Msg)
			assert.NotEmpty(t, resp.Error)
		})
	}
}
