package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/secretoheladeria/heladeria-backend/pkg/errors"
	"github.com/secretoheladeria/heladeria-backend/pkg/pagination"
)

type promoBody struct {
	Name  string  `json:"name" validate:"required,max=10"`
	Type  string  `json:"type" validate:"required,promotion_type"`
	Start string  `json:"start_date" validate:"required,calendar_day"`
	Ends  *string `json:"end_date,omitempty" validate:"omitempty,calendar_day"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var dest promoBody
	err := DecodeJSONBody(post(`{"name":"Verano","type":"Percentage","start_date":"2026-12-21","end_date":"2027-03-20"}`), &dest)
	require.NoError(t, err)
	require.Equal(t, "Verano", dest.Name)
	require.Equal(t, "2027-03-20", *dest.Ends)
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	var dest promoBody
	err := DecodeJSONBody(post(`{"name":"Temporada de verano","type":"3x2","start_date":"21/12/2026","end_date":"nunca"}`), &dest)
	details := detailsOf(t, err)
	require.Equal(t, "must be at most 10", details["name"])
	require.Contains(t, details["type"], "percentage")
	require.Equal(t, "must be a date formatted YYYY-MM-DD", details["start_date"])
	require.Contains(t, details, "end_date")
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":         ``,
		"unknown field": `{"name":"x","type":"percentage","start_date":"2026-01-01","flavor":"mango"}`,
		"trailing data": `{"name":"x","type":"percentage","start_date":"2026-01-01"}{"name":"y"}`,
		"not json":      `name=x`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest promoBody
			err := DecodeJSONBody(post(body), &dest)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyLimitsSize(t *testing.T) {
	huge := `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	var dest promoBody
	err := DecodeJSONBody(post(huge), &dest)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestPageParams(t *testing.T) {
	params, err := PageParams(httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Limit: pagination.DefaultLimit}, params)

	params, err = PageParams(httptest.NewRequest(http.MethodGet, "/orders?limit=5&cursor=abc", nil))
	require.NoError(t, err)
	require.Equal(t, pagination.Params{Limit: 5, Cursor: "abc"}, params)

	for _, query := range []string{"limit=0", "limit=101", "limit=diez", "cursor=" + strings.Repeat("x", maxCursorLen+1)} {
		_, err := PageParams(httptest.NewRequest(http.MethodGet, "/orders?"+query, nil))
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), query)
	}
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "Helado de lúcuma", CleanText("  Helado   de\tlúcuma \n", 0))
	require.Equal(t, "Chirimo", CleanText("Chirimoya alegre", 7))
	require.Equal(t, "Piña", CleanText("Piña colada", 4))
	require.Equal(t, "", CleanText("   ", 10))
}
