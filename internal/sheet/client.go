package sheet

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"

	"github.com/coffersTech/probdash/internal/pkg/logging"
	"github.com/coffersTech/probdash/internal/problem"
)

var log = logging.For("sheet")

// maxBody caps how much of a response is read.
const maxBody = 16 << 20

// StatusError is returned when the remote API answers with a non-2xx code.
type StatusError struct {
	Method     string
	Action     string
	StatusCode int
	Body       string
}

// Reads report the status code only; writes also carry the response text.
func (e *StatusError) Error() string {
	if e.Method == http.MethodGet {
		return fmt.Sprintf("%s %s failed: %d", e.Method, e.Action, e.StatusCode)
	}
	return fmt.Sprintf("Server returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the spreadsheet-backed problem API.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	parser fastjson.ParserPool
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) actionURL(action string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid base url %q", c.BaseURL)
	}
	q := u.Query()
	q.Set("action", action)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads the full problem list.
func (c *Client) Fetch(ctx context.Context) ([]problem.Problem, error) {
	u, err := c.actionURL("getProblems")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "GET getProblems")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: http.MethodGet, Action: "getProblems", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read getProblems body")
	}

	p := c.parser.Get()
	defer c.parser.Put(p)

	list, err := DecodeProblems(p, body)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(list)).Msg("fetched problems")
	return list, nil
}

// UpdateStatus writes one member's status code for problem id.
func (c *Client) UpdateStatus(ctx context.Context, id int64, member, code string) error {
	u, err := c.actionURL("updateStatus")
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("id", strconv.FormatInt(id, 10))
	form.Set("member", member)
	form.Set("status", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrap(err, "POST updateStatus")
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:     http.MethodPost,
			Action:     "updateStatus",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}

	log.Info().Int64("id", id).Str("member", member).Str("status", code).Msg("status saved")
	return nil
}

// DecodeProblems parses a JSON array of row objects. Column values keep
// their text: strings as-is, numbers as written, null as "".
func DecodeProblems(p *fastjson.Parser, body []byte) ([]problem.Problem, error) {
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, errors.Wrap(err, "invalid JSON")
	}
	arr, err := v.Array()
	if err != nil {
		return nil, errors.Wrap(err, "expected a JSON array of problems")
	}

	list := make([]problem.Problem, 0, len(arr))
	for i, item := range arr {
		obj, err := item.Object()
		if err != nil {
			return nil, errors.Wrapf(err, "problem %d", i)
		}
		fields := make(map[string]string, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			fields[string(key)] = text(val)
		})
		list = append(list, problem.FromFields(fields))
	}
	return list, nil
}

func text(v *fastjson.Value) string {
	switch v.Type() {
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNull:
		return ""
	default:
		return v.String()
	}
}
