package sheet

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

const problemsJSON = `[
	{"id": 1, "_rowId": 2, "Contest": "NERC", "Name": "Alpha", "Tags": "dp", "Difficulty": 0.35, "Teams solved": 12, "Dugar status": "AC", "Bold status": null},
	{"id": "2", "name": "beta", "link": "https://b.test", "Difficulty": "40", "Dugar status": "", "flag": true}
]`

func TestDecodeProblems(t *testing.T) {
	var p fastjson.Parser
	list, err := DecodeProblems(&p, []byte(problemsJSON))
	require.NoError(t, err)
	require.Len(t, list, 2)

	a := list[0]
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, "2", a.RowID)
	assert.Equal(t, "Alpha", a.Name)
	assert.Equal(t, "0.35", a.Difficulty)
	assert.Equal(t, "12", a.TeamsSolved)
	assert.Equal(t, "AC", a.Status("Dugar"))
	assert.Equal(t, "", a.Status("Bold"))

	b := list[1]
	assert.Equal(t, int64(2), b.ID)
	assert.Equal(t, "beta", b.Name)
	assert.Equal(t, "https://b.test", b.Link)
	assert.Equal(t, "true", b.Fields["flag"])
}

func TestDecodeProblemsErrors(t *testing.T) {
	var p fastjson.Parser
	for _, body := range []string{``, `{`, `{"id": 1}`, `[1, 2]`} {
		t.Run(body, func(t *testing.T) {
			_, err := DecodeProblems(&p, []byte(body))
			require.Error(t, err)
		})
	}

	list, err := DecodeProblems(&p, []byte(`[]`))
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "getProblems", r.URL.Query().Get("action"))
		assert.Equal(t, "abc", r.URL.Query().Get("key"))
		assert.Equal(t, "no-store", r.Header.Get("Cache-Control"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, problemsJSON)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/exec?key=abc", time.Second)
	list, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Alpha", list[0].Name)
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Fetch(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
	require.Equal(t, "GET getProblems failed: 500", err.Error())
}

func TestUpdateStatus(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "updateStatus", r.URL.Query().Get("action"))
		assert.Equal(t, "application/x-www-form-urlencoded;charset=UTF-8", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).UpdateStatus(context.Background(), 7, "Dugar", "WA")
	require.NoError(t, err)
	require.Equal(t, "7", got.Get("id"))
	require.Equal(t, "Dugar", got.Get("member"))
	require.Equal(t, "WA", got.Get("status"))
}

func TestUpdateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "not allowed\n")
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).UpdateStatus(context.Background(), 7, "Dugar", "")
	require.EqualError(t, err, "Server returned 403: not allowed")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer empty.Close()

	err = NewClient(empty.URL, time.Second).UpdateStatus(context.Background(), 7, "Dugar", "")
	require.EqualError(t, err, "Server returned 500: ")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := NewClient("://bad", time.Second).Fetch(context.Background())
	require.Error(t, err)
}
