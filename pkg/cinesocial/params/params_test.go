package params

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
)

func TestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	cases := []struct {
		raw  string
		want uint
		ok   bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"99999999999", 0, false},
	}
	for _, tc := range cases {
		c.Params = gin.Params{{Key: "groupId", Value: tc.raw}}
		got, err := ID(c, "groupId")
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("ID(%q) = %d, %v; want %d", tc.raw, got, err, tc.want)
		}
		if !tc.ok && !apperr.Is(err, apperr.KindInvalidArgument) {
			t.Errorf("ID(%q) expected InvalidArgument, got %v", tc.raw, err)
		}
	}
}

func TestQueryID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/friends?userId=7", nil)
	if got, err := QueryID(c, "userId"); err != nil || got != 7 {
		t.Errorf("QueryID = %d, %v; want 7", got, err)
	}

	// query values are cached per context
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/friends", nil)
	if _, err := QueryID(c, "userId"); !apperr.Is(err, apperr.KindInvalidArgument) {
		t.Errorf("expected InvalidArgument for missing query, got %v", err)
	}
}
