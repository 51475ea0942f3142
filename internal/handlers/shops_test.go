package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yama-shu/gourmet-battle/internal/shops"
)

const fakeShopPayload = `{
	"results": {
		"shop": [
			{
				"id": "J001",
				"name": "焼肉ホルモン青山",
				"urls": {"pc": "https://example.com/J001"},
				"photo": {"pc": {"l": "https://example.com/J001.jpg"}},
				"genre": {"name": "焼肉・ホルモン"},
				"address": "東京都渋谷区",
				"lat": 35.658,
				"lng": 139.701
			},
			{
				"id": "",
				"name": "idなし"
			},
			{
				"id": "J002",
				"name": "鮨わたなべ",
				"urls": {"pc": "https://example.com/J002"},
				"genre": {"name": "和食"},
				"address": "東京都港区"
			}
		]
	}
}`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// fakeUpstream serves a canned Hotpepper response and captures the query.
func fakeUpstream(t *testing.T, status int, body string) (*httptest.Server, *map[string]string) {
	t.Helper()
	captured := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for key, vals := range r.URL.Query() {
			captured[key] = vals[0]
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func doSearch(t *testing.T, client *shops.Client, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/shops"+query, nil)
	rec := httptest.NewRecorder()
	ShopSearchHandler(quietLogger(), client)(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestShopSearchSuccessReshapesPayload(t *testing.T) {
	srv, captured := fakeUpstream(t, http.StatusOK, fakeShopPayload)
	client := shops.NewClient(srv.URL, "test-key")

	rec := doSearch(t, client, "?keyword=焼肉&count=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Shops []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			URL      string `json:"url"`
			PhotoURL string `json:"photoUrl"`
			Genre    string `json:"genre"`
			Address  string `json:"address"`
		} `json:"shops"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Shops, 2, "records without an id are dropped")
	assert.Equal(t, "J001", body.Shops[0].ID)
	assert.Equal(t, "焼肉ホルモン青山", body.Shops[0].Name)
	assert.Equal(t, "https://example.com/J001", body.Shops[0].URL)
	assert.Equal(t, "https://example.com/J001.jpg", body.Shops[0].PhotoURL)
	assert.Equal(t, "焼肉・ホルモン", body.Shops[0].Genre)
	assert.Equal(t, "J002", body.Shops[1].ID)

	// The server-side key and format must be injected, never the caller's.
	assert.Equal(t, "test-key", (*captured)["key"])
	assert.Equal(t, "json", (*captured)["format"])
	assert.Equal(t, "焼肉", (*captured)["keyword"])
	assert.Equal(t, "5", (*captured)["count"])
	assert.Equal(t, shops.DefaultGenre, (*captured)["genre"], "genre falls back to the default")
}

func TestShopSearchLatLngAddsRange(t *testing.T) {
	srv, captured := fakeUpstream(t, http.StatusOK, fakeShopPayload)
	client := shops.NewClient(srv.URL, "test-key")

	rec := doSearch(t, client, "?lat=35.658&lng=139.701")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "35.658", (*captured)["lat"])
	assert.Equal(t, "139.701", (*captured)["lng"])
	assert.Equal(t, shops.DefaultRange, (*captured)["range"])
}

func TestShopSearchCountCapped(t *testing.T) {
	srv, captured := fakeUpstream(t, http.StatusOK, fakeShopPayload)
	client := shops.NewClient(srv.URL, "test-key")

	rec := doSearch(t, client, "?keyword=寿司&count=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "50", (*captured)["count"])
}

func TestShopSearchValidation(t *testing.T) {
	srv, _ := fakeUpstream(t, http.StatusOK, fakeShopPayload)
	client := shops.NewClient(srv.URL, "test-key")

	cases := []struct {
		name  string
		query string
	}{
		{"no criteria", ""},
		{"bad count", "?keyword=寿司&count=abc"},
		{"negative count", "?keyword=寿司&count=-1"},
		{"unknown genre", "?genre=G999"},
		{"lat without lng", "?keyword=寿司&lat=35.658"},
		{"lng without lat", "?keyword=寿司&lng=139.701"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doSearch(t, client, tc.query)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestShopSearchMissingAPIKey(t *testing.T) {
	rec := doSearch(t, nil, "?keyword=寿司")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "API key not configured", decodeError(t, rec))
}

func TestShopSearchMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/shops?keyword=寿司", nil)
	rec := httptest.NewRecorder()
	ShopSearchHandler(quietLogger(), shops.NewClient("http://unused", "k"))(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShopSearchMirrorsUpstreamStatus(t *testing.T) {
	srv, _ := fakeUpstream(t, http.StatusTooManyRequests, `{"error":"quota"}`)
	client := shops.NewClient(srv.URL, "test-key")

	rec := doSearch(t, client, "?keyword=寿司")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Failed to fetch external API", decodeError(t, rec))
}

func TestShopSearchMalformedUpstreamPayload(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>error</html>"},
		{"missing results.shop", `{"results": {"results_available": 0}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := fakeUpstream(t, http.StatusOK, tc.body)
			client := shops.NewClient(srv.URL, "test-key")

			rec := doSearch(t, client, "?keyword=寿司")
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "Invalid response format from Hotpepper API", decodeError(t, rec))
		})
	}
}

func TestShopSearchEmptyResultIsOK(t *testing.T) {
	srv, _ := fakeUpstream(t, http.StatusOK, `{"results": {"shop": []}}`)
	client := shops.NewClient(srv.URL, "test-key")

	rec := doSearch(t, client, "?keyword=存在しない店")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Shops []json.RawMessage `json:"shops"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Shops, "an empty shop list is a valid result, not an error")
}
