package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindCreate(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req CreateEntryRequest
	return c.ShouldBindJSON(&req)
}

func TestWeekdaysTag(t *testing.T) {
	require.NoError(t, RegisterValidators())

	base := `"kind":"open","starts_at":"2024-01-01T09:00:00Z","ends_at":"2024-01-01T17:00:00Z"`
	tests := []struct {
		name    string
		extra   string
		wantErr bool
	}{
		{"no weekdays", ``, false},
		{"valid set", `,"repeat_weekdays":[1,3,5]`, false},
		{"sunday and saturday", `,"repeat_weekdays":[0,6]`, false},
		{"out of range", `,"repeat_weekdays":[7]`, true},
		{"negative", `,"repeat_weekdays":[-1]`, true},
		{"duplicate", `,"repeat_weekdays":[1,1]`, true},
		{"repeat until date", `,"repeat_weekdays":[1],"repeat_until":"2024-03-01"`, false},
		{"repeat until timestamp", `,"repeat_weekdays":[1],"repeat_until":"2024-03-01T00:00:00Z"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bindCreate(t, "{"+base+tt.extra+"}")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateRequestEndsAfterStart(t *testing.T) {
	require.NoError(t, RegisterValidators())
	err := bindCreate(t, `{"kind":"open","starts_at":"2024-01-01T17:00:00Z","ends_at":"2024-01-01T09:00:00Z"}`)
	assert.Error(t, err)
}
