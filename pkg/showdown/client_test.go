package showdown

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replayscraper/pkg/config"
	errs "replayscraper/pkg/errors"
	"replayscraper/pkg/logger"
)

func newTestClient(t *testing.T, timeout time.Duration) (*Client, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	cfg := config.DefaultConfig().Showdown
	cfg.RequestTimeout = timeout
	return NewClient(&cfg, log), log
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "replayscraper")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"gen9ou-2001","format":"[Gen 9] OU","rating":1500,"uploadtime":1700000000,"players":["a","b"]},
			{"id":"gen9randombattle-2002","format":"[Gen 9] Random Battle","rating":null,"uploadtime":1700000001,"players":["c","d"]}
		]`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, 5*time.Second)

	var page []SearchResult
	require.NoError(t, client.GetJSON(context.Background(), server.URL+"/search.json", &page))

	refs := References(page)
	require.Len(t, refs, 2)
	assert.Equal(t, "gen9ou-2001", refs[0].ID)
	require.NotNil(t, refs[0].Rating)
	assert.Equal(t, 1500, *refs[0].Rating)
	assert.Nil(t, refs[1].Rating)
}

func TestGetJSONMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client, _ := newTestClient(t, 5*time.Second)

	var page []SearchResult
	err := client.GetJSON(context.Background(), server.URL, &page)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		status   int
		expected errs.ErrorType
	}{
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusForbidden, errs.ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client, log := newTestClient(t, 5*time.Second)

			_, err := client.GetText(context.Background(), server.URL+"/x.log")
			require.Error(t, err)
			assert.Equal(t, tt.expected, errs.TypeOf(err))
			assert.NotEmpty(t, log.GetMessagesByLevel("WARN"))
		})
	}
}

func TestGetTextNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, _ := newTestClient(t, time.Second)

	_, err := client.GetText(context.Background(), url+"/gone.log")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestGetTextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client, _ := newTestClient(t, 50*time.Millisecond)

	_, err := client.GetText(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gen9ou-2001.log", r.URL.Path)
		w.Write([]byte("|j|☆alice\n|win|alice\n"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, 5*time.Second)
	ep := NewEndpoints(server.URL+"/", "")

	body, err := client.GetText(context.Background(), ep.Log("gen9ou-2001"))
	require.NoError(t, err)
	assert.Equal(t, "|j|☆alice\n|win|alice\n", body)
}
