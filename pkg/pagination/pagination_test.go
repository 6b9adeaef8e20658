package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients?"+query, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Skip: 0, Limit: 100}},
		{"explicit", "skip=10&limit=25", Params{Skip: 10, Limit: 25}},
		{"negative skip", "skip=-3", Params{Skip: 0, Limit: 100}},
		{"zero limit", "limit=0", Params{Skip: 0, Limit: 100}},
		{"over max", "limit=5000", Params{Skip: 0, Limit: 1000}},
		{"garbage", "skip=abc&limit=xyz", Params{Skip: 0, Limit: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := paramsFor(t, tc.query); got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestNextSkip(t *testing.T) {
	p := Params{Skip: 100, Limit: 50}
	if got := p.NextSkip(); got != 150 {
		t.Errorf("next skip = %d, want 150", got)
	}
}
