package formio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery(t *testing.T) {
	var gotPath, gotKey string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-apikey")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"_id":"abc","created":"2020-08-17T16:54:48.000Z","data":{"permitType":"newConstruction","z":"1","a":"2"}}]`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "secret", 5*time.Second)
	subs, err := c.Query(context.Background(), "applications", map[string]string{
		"created__gte": "2020-08-17T07:00:00Z",
		"limit":        "2000",
	})
	require.NoError(t, err)

	assert.Equal(t, "/applications", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, []string{"2000"}, gotQuery["limit"])
	assert.Equal(t, []string{"2020-08-17T07:00:00Z"}, gotQuery["created__gte"])

	require.Len(t, subs, 1)
	assert.Equal(t, "abc", subs[0].ID)
	assert.Equal(t, []string{"permitType", "z", "a"}, subs[0].Data.Keys())
}

func TestQueryErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "wrong", time.Second).Query(context.Background(), "applications", nil)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "bad key", se.Body)
}

func TestUpdateStatus(t *testing.T) {
	var gotMethod, gotPath string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	err := New(srv.URL, "secret", time.Second).UpdateStatus(context.Background(), "/applications/", "abc")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/applications/abc", gotPath)
	assert.Equal(t, map[string]any{"actionState": ActionDone}, body)
}
