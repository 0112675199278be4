package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffersTech/probdash/internal/board"
	"github.com/coffersTech/probdash/internal/pkg/security"
	"github.com/coffersTech/probdash/internal/prefs"
	"github.com/coffersTech/probdash/internal/problem"
)

type update struct {
	id     int64
	member string
	code   string
}

type fakeRemote struct {
	mu        sync.Mutex
	list      []problem.Problem
	fetches   int
	updates   []update
	updateErr error
}

func (f *fakeRemote) Fetch(ctx context.Context) ([]problem.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	out := make([]problem.Problem, len(f.list))
	for i, p := range f.list {
		out[i] = p.Clone()
	}
	return out, nil
}

func (f *fakeRemote) UpdateStatus(ctx context.Context, id int64, member, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update{id, member, code})
	return f.updateErr
}

func (f *fakeRemote) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func sample() []problem.Problem {
	return []problem.Problem{
		problem.FromFields(map[string]string{
			"id": "1", "Name": "Tree Paths", "Tags": "trees, dp", "Contest": "ICPC 2021",
			"Difficulty": "0.8", "Teams solved": "3", "Dugar status": "AC", "Bat status": "",
		}),
		problem.FromFields(map[string]string{
			"id": "2", "Name": "Graph Walk", "Tags": "graphs", "Contest": "NERC",
			"Difficulty": "30", "Teams solved": "12", "Dugar status": "WA", "Bat status": "AC",
		}),
		problem.FromFields(map[string]string{
			"id": "3", "Name": "Easy Sum", "Tags": "math", "Contest": "ICPC 2022",
			"Difficulty": "0.1", "Teams solved": "40", "Dugar status": "", "Bat status": "",
		}),
	}
}

func newTestServer(t *testing.T) (*BoardServer, *fakeRemote, http.Handler) {
	t.Helper()
	c, err := security.NewCipher(make([]byte, 32))
	require.NoError(t, err)
	ps := prefs.NewStore(filepath.Join(t.TempDir(), "prefs.bin"), c, prefs.Preferences{Filter: board.FilterAll})

	remote := &fakeRemote{list: sample()}
	s := NewBoardServer(board.NewStore(), remote, ps, Options{AllowedOrigins: []string{"*"}})
	require.NoError(t, s.Reload(context.Background()))
	return s, remote, s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func rowIDs(rows []Row) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func TestProblemsList(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/problems?member=Dugar&sort=id_asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[ProblemsResponse](t, rec)

	assert.Equal(t, []string{"Bat", "Dugar"}, resp.Members)
	assert.Equal(t, []int64{1, 2, 3}, rowIDs(resp.Rows))
	assert.Equal(t, board.Summary{Label: "3 problems", Total: 3, Solved: 1, Unsolved: 2, NoSubmission: 1}, resp.Summary)

	first := resp.Rows[0]
	assert.Equal(t, "AC", first.Status)
	assert.Equal(t, "ac", first.StatusOption)
	assert.Equal(t, "status-solved", first.StatusClass)
	assert.Equal(t, "80.0%", first.Badge.Label)
	assert.Equal(t, "status-nosub", resp.Rows[2].StatusClass)
}

func TestProblemsSearchAndFilter(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/problems?member=Dugar&sort=id_asc&q=icpc+and+-tree", "")
	resp := decode[ProblemsResponse](t, rec)
	assert.Equal(t, []int64{3}, rowIDs(resp.Rows))

	rec = do(t, h, http.MethodGet, "/api/problems?member=Bat&filter=solved", "")
	resp = decode[ProblemsResponse](t, rec)
	assert.Equal(t, []int64{2}, rowIDs(resp.Rows))
	assert.Equal(t, "Bat", resp.View.Member)
}

func TestProblemsFallsBackToPrefs(t *testing.T) {
	s, _, h := newTestServer(t)
	_, err := s.prefs.Update(prefs.Preferences{Member: "Bat", Filter: board.FilterUnsolved, Sort: board.SortIDAsc})
	require.NoError(t, err)

	resp := decode[ProblemsResponse](t, do(t, h, http.MethodGet, "/api/problems", ""))
	assert.Equal(t, "Bat", resp.View.Member)
	assert.Equal(t, []int64{1, 3}, rowIDs(resp.Rows))
}

func TestUpdateStatus(t *testing.T) {
	s, remote, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/problems/3/status", `{"member":"Dugar","status":"ac"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	row := decode[Row](t, rec)
	assert.Equal(t, "AC", row.Status)
	assert.Equal(t, []update{{3, "Dugar", "AC"}}, remote.updates)

	p, err := s.store.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "AC", p.Status("Dugar"))
}

func TestUpdateStatusUnchangedSkipsRemote(t *testing.T) {
	_, remote, h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/problems/1/status", `{"member":"Dugar","status":"ac"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, remote.updates)

	rec = do(t, h, http.MethodPost, "/api/problems/3/status", `{"member":"Dugar","status":"no submission"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, remote.updates)
}

func TestUpdateStatusErrors(t *testing.T) {
	_, _, h := newTestServer(t)

	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"bad id", "/api/problems/x/status", `{"member":"Dugar","status":"ac"}`, http.StatusBadRequest},
		{"bad json", "/api/problems/1/status", `{`, http.StatusBadRequest},
		{"bad status", "/api/problems/1/status", `{"member":"Dugar","status":"ok"}`, http.StatusBadRequest},
		{"no member", "/api/problems/1/status", `{"status":"ac"}`, http.StatusBadRequest},
		{"unknown id", "/api/problems/99/status", `{"member":"Dugar","status":"ac"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestUpdateStatusRemoteFailureReloads(t *testing.T) {
	s, remote, h := newTestServer(t)
	remote.updateErr = errors.New("quota exceeded")

	rec := do(t, h, http.MethodPost, "/api/problems/2/status", `{"member":"Dugar","status":"AC"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota exceeded")

	require.Eventually(t, func() bool { return remote.fetchCount() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		p, err := s.store.Get(2)
		return err == nil && p.Status("Dugar") == "WA"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReload(t *testing.T) {
	s, remote, h := newTestServer(t)
	var reloaded []problem.Problem
	s.opts.OnReload = func(list []problem.Problem) { reloaded = list }

	remote.list = remote.list[:2]
	rec := do(t, h, http.MethodPost, "/api/reload?member=Dugar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[board.Summary](t, rec).Total)
	assert.Len(t, reloaded, 2)
	assert.Equal(t, 2, s.store.Len())
}

func TestPrefsEndpoints(t *testing.T) {
	_, _, h := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/prefs", `{"member":"Bat","filter":"solved","sort":"id_asc","id_token":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[prefs.Preferences](t, do(t, h, http.MethodGet, "/api/prefs", ""))
	assert.Equal(t, prefs.Preferences{Member: "Bat", Filter: "solved", Sort: "id_asc"}, got)

	rec = do(t, h, http.MethodPost, "/api/prefs/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	toggled := decode[map[string]interface{}](t, rec)
	assert.Equal(t, true, toggled["tags_hidden"])
	assert.Equal(t, prefs.TagsButtonLabel(true), toggled["label"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/prefs", `nope`).Code)
}

func TestSessionEndpoints(t *testing.T) {
	_, _, h := newTestServer(t)

	assert.Equal(t, sessionResponse{}, decode[sessionResponse](t, do(t, h, http.MethodGet, "/api/session", "")))

	rec := do(t, h, http.MethodPost, "/api/session", `{"credential":"not-a-jwt"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sessionResponse{SignedIn: true, User: "Signed in"}, decode[sessionResponse](t, rec))

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/session", `{}`).Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/session", "").Code)
	assert.False(t, decode[sessionResponse](t, do(t, h, http.MethodGet, "/api/session", "")).SignedIn)
}

func TestExplain(t *testing.T) {
	got := Explain("tree and -icpc")
	assert.Equal(t, []string{"TERM(tree)", "AND", "NOT", "TERM(icpc)"}, got.Tokens)
	require.NotNil(t, got.AST)
	assert.Equal(t, `("tree" AND NOT "icpc")`, *got.AST)

	// A negated word right after a term gets no implicit AND.
	got = Explain("tree -icpc")
	assert.Equal(t, []string{"TERM(tree)", "NOT", "TERM(icpc)"}, got.Tokens)
	assert.Equal(t, `"tree"`, *got.AST)

	assert.Nil(t, Explain("   ").AST)

	_, _, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/search/explain?q=a+b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `("a" AND "b")`, *decode[ExplainResponse](t, rec).AST)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>board</h1>"), 0o644))

	s, _, _ := newTestServer(t)
	s.opts.WebDir = dir
	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "board")
}

func TestReloadWhileStatusChanges(t *testing.T) {
	s, _, _ := newTestServer(t)
	s.opts.OnReload = func(list []problem.Problem) {
		_, err := json.Marshal(list)
		assert.NoError(t, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		codes := []string{"AC", "WA", "TL"}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_, _, err := s.store.SetStatus(1, "Dugar", codes[i%len(codes)])
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Reload(context.Background()))
	}
	close(stop)
	<-done
}

func TestConcurrentIdenticalUpdatesCallRemoteOnce(t *testing.T) {
	_, remote, h := newTestServer(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(t, h, http.MethodPost, "/api/problems/3/status", `{"member":"Dugar","status":"tl"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, []update{{3, "Dugar", "TL"}}, remote.updates)
}
