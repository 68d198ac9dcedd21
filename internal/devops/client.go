package devops

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const commentsAPIVersion = "7.1-preview.4"

var ErrCircuitOpen = fmt.Errorf("circuit open: %w", model.ErrConnection)

type Options struct {
	BaseURL       string
	APIVersion    string
	Timeout       time.Duration
	BatchSize     int
	Attempts      int
	FailThreshold int
	OpenFor       time.Duration
}

// HTTPConnector opens REST sessions against dev.azure.com (or a compatible
// server). Breakers are shared by every session of the same organization.
type HTTPConnector struct {
	opts     Options
	breakers *breakers
	log      *zap.Logger
}

func NewHTTPConnector(opts Options, log *zap.Logger) *HTTPConnector {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://dev.azure.com"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.APIVersion == "" {
		opts.APIVersion = "7.1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BatchSize <= 0 || opts.BatchSize > 200 {
		opts.BatchSize = 200
	}
	if opts.Attempts < 1 {
		opts.Attempts = 2
	}

	return &HTTPConnector{
		opts:     opts,
		breakers: newBreakers(opts.FailThreshold, opts.OpenFor),
		log:      log.With(zap.String("component", "devops")),
	}
}

var _ Connector = (*HTTPConnector)(nil)

// Connect authenticates with a PAT and resolves the organization's first
// project as the default one.
func (c *HTTPConnector) Connect(ctx context.Context, creds Credentials) (Conn, error) {
	org := strings.TrimSpace(creds.OrgRef)
	if org == "" || strings.TrimSpace(creds.Token) == "" {
		return nil, fmt.Errorf("missing credentials: %w", model.ErrConnection)
	}

	pat := base64.StdEncoding.EncodeToString([]byte(":" + creds.Token))
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: pat, TokenType: "Basic"})
	base := &http.Client{Timeout: c.opts.Timeout}
	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), ts)
	client.Timeout = c.opts.Timeout

	conn := &httpConn{
		opts:   c.opts,
		org:    org,
		client: client,
		br:     c.breakers.get(org),
		log:    c.log.With(zap.String("org", org)),
	}

	project, err := conn.defaultProject(ctx)
	if err != nil {
		return nil, err
	}
	conn.project = project
	return conn, nil
}

type httpConn struct {
	opts    Options
	org     string
	project string
	client  *http.Client
	br      *Breaker
	log     *zap.Logger
}

var _ Conn = (*httpConn)(nil)

func (c *httpConn) Project() string { return c.project }

type projectList struct {
	Value []struct {
		Name string `json:"name"`
	} `json:"value"`
}

func (c *httpConn) defaultProject(ctx context.Context) (string, error) {
	var out projectList
	u := c.url("", "_apis/projects", nil, c.opts.APIVersion)
	if err := c.read(ctx, http.MethodGet, u, nil, &out); err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	if len(out.Value) == 0 {
		return "", fmt.Errorf("organization %q has no projects: %w", c.org, model.ErrNotFound)
	}
	return out.Value[0].Name, nil
}

type wiqlResult struct {
	WorkItems []struct {
		ID int64 `json:"id"`
	} `json:"workItems"`
}

type workItemList struct {
	Value []struct {
		ID     int64 `json:"id"`
		Fields struct {
			Title  string `json:"System.Title"`
			State  string `json:"System.State"`
			Type   string `json:"System.WorkItemType"`
			Parent *int64 `json:"System.Parent"`
		} `json:"fields"`
	} `json:"value"`
}

const itemFields = "System.Id,System.Title,System.State,System.WorkItemType,System.Parent"

// QueryItems runs a WIQL id query and then reads the matching items in
// batches. The mirror's customer name is left for the caller.
func (c *httpConn) QueryItems(ctx context.Context, project string, q ItemQuery) ([]model.WorkItem, error) {
	ids, err := c.queryIDs(ctx, project, q)
	if err != nil {
		return nil, err
	}

	items := make([]model.WorkItem, 0, len(ids))
	for start := 0; start < len(ids); start += c.opts.BatchSize {
		end := start + c.opts.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		parts := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			parts = append(parts, strconv.FormatInt(id, 10))
		}

		var page workItemList
		u := c.url(project, "_apis/wit/workitems", url.Values{
			"ids":    {strings.Join(parts, ",")},
			"fields": {itemFields},
		}, c.opts.APIVersion)
		if err := c.read(ctx, http.MethodGet, u, nil, &page); err != nil {
			return nil, fmt.Errorf("read work items: %w", err)
		}

		for _, v := range page.Value {
			typ, ok := model.ParseWorkItemType(v.Fields.Type)
			if !ok {
				c.log.Debug("skipping unsupported work item type", zap.Int64("id", v.ID), zap.String("type", v.Fields.Type))
				continue
			}
			items = append(items, model.WorkItem{
				ExternalID:       v.ID,
				Type:             typ,
				Title:            v.Fields.Title,
				State:            v.Fields.State,
				ParentExternalID: v.Fields.Parent,
			})
		}
	}
	return items, nil
}

func (c *httpConn) queryIDs(ctx context.Context, project string, q ItemQuery) ([]int64, error) {
	body := map[string]string{"query": buildWIQL(q)}

	var res wiqlResult
	u := c.url(project, "_apis/wit/wiql", nil, c.opts.APIVersion)
	if err := c.read(ctx, http.MethodPost, u, body, &res); err != nil {
		return nil, fmt.Errorf("wiql: %w", err)
	}

	ids := make([]int64, 0, len(res.WorkItems))
	for _, w := range res.WorkItems {
		ids = append(ids, w.ID)
	}
	return ids, nil
}

func buildWIQL(q ItemQuery) string {
	types := q.Types
	if len(types) == 0 {
		types = model.SyncedTypes
	}
	quoted := make([]string, 0, len(types))
	for _, t := range types {
		quoted = append(quoted, "'"+strings.ReplaceAll(t.String(), "'", "''")+"'")
	}

	var b strings.Builder
	b.WriteString("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = @project")
	b.WriteString(" AND [System.WorkItemType] IN (" + strings.Join(quoted, ", ") + ")")
	if q.MinID != nil {
		b.WriteString(" AND [System.Id] > " + strconv.FormatInt(*q.MinID, 10))
	}
	b.WriteString(" ORDER BY [System.Id]")
	return b.String()
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func patchDocument(fields Fields) []patchOp {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]patchOp, 0, len(keys))
	for _, k := range keys {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + k, Value: fields[k]})
	}
	return ops
}

const parentLink = "System.LinkTypes.Hierarchy-Reverse"

type relation struct {
	Rel string `json:"rel"`
	URL string `json:"url"`
}

// createDocument extends the field ops with the markdown format flag and the
// parent relation.
func (c *httpConn) createDocument(project string, fields Fields, opts CreateOptions) []patchOp {
	ops := patchDocument(fields)
	if opts.Markdown {
		ops = append(ops, patchOp{Op: "add", Path: "/multilineFieldsFormat/System.Description", Value: "Markdown"})
	}
	if opts.Parent != nil {
		u := strings.Join([]string{
			c.opts.BaseURL, url.PathEscape(c.org), url.PathEscape(project),
			"_apis/wit/workItems", strconv.FormatInt(*opts.Parent, 10),
		}, "/")
		ops = append(ops, patchOp{Op: "add", Path: "/relations/-", Value: relation{Rel: parentLink, URL: u}})
	}
	return ops
}

func (c *httpConn) CreateItem(ctx context.Context, project string, typ model.WorkItemType, fields Fields, opts CreateOptions) (int64, error) {
	if !typ.Valid() {
		return 0, model.NewValidationError("type", "unsupported work item type")
	}
	if len(fields) == 0 {
		return 0, model.NewValidationError("fields", "required")
	}
	if opts.Parent != nil && *opts.Parent <= 0 {
		return 0, model.NewValidationError("parent", "must be positive")
	}

	var out struct {
		ID int64 `json:"id"`
	}
	u := c.url(project, "_apis/wit/workitems/$"+typ.String(), nil, c.opts.APIVersion)
	if err := c.write(ctx, http.MethodPost, u, c.createDocument(project, fields, opts), &out); err != nil {
		return 0, fmt.Errorf("create %s: %w", typ, err)
	}
	return out.ID, nil
}

func (c *httpConn) UpdateItem(ctx context.Context, project string, id int64, fields Fields) error {
	if len(fields) == 0 {
		return model.NewValidationError("fields", "required")
	}
	u := c.url(project, "_apis/wit/workitems/"+strconv.FormatInt(id, 10), nil, c.opts.APIVersion)
	if err := c.write(ctx, http.MethodPatch, u, patchDocument(fields), nil); err != nil {
		return fmt.Errorf("update work item %d: %w", id, err)
	}
	return nil
}

func (c *httpConn) AddComment(ctx context.Context, project string, id int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return model.NewValidationError("text", "required")
	}
	u := c.url(project, "_apis/wit/workItems/"+strconv.FormatInt(id, 10)+"/comments", nil, commentsAPIVersion)
	if err := c.send(ctx, http.MethodPost, u, "application/json", map[string]string{"text": text}, nil); err != nil {
		return fmt.Errorf("comment on work item %d: %w", id, err)
	}
	return nil
}

func (c *httpConn) url(project, path string, q url.Values, apiVersion string) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("api-version", apiVersion)

	segs := []string{c.opts.BaseURL, url.PathEscape(c.org)}
	if project != "" {
		segs = append(segs, url.PathEscape(project))
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	segs = append(segs, strings.Join(parts, "/"))
	return strings.Join(segs, "/") + "?" + q.Encode()
}

// read is used for requests without side effects and retries them.
func (c *httpConn) read(ctx context.Context, method, u string, body, out any) error {
	var last error
	for i := 0; i < c.opts.Attempts; i++ {
		last = c.send(ctx, method, u, "application/json", body, out)
		if last == nil || !retryable(last) || ctx.Err() != nil {
			return last
		}
	}
	return last
}

func (c *httpConn) write(ctx context.Context, method, u string, ops []patchOp, out any) error {
	return c.send(ctx, method, u, "application/json-patch+json", ops, out)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status=%d body=%s", e.code, e.body)
}

func retryable(err error) bool {
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500
	}
	return errors.Is(err, model.ErrConnection)
}

func (c *httpConn) send(ctx context.Context, method, u, contentType string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	if !c.br.TryAcquire() {
		return ErrCircuitOpen
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.br.OnFailure()
		return fmt.Errorf("%s %s: %v: %w", method, req.URL.Path, err, model.ErrConnection)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode/100 == 2:
		c.br.OnSuccess()
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		c.br.OnFailure()
		return fmt.Errorf("%s %s: status=%d: %w", method, req.URL.Path, res.StatusCode, model.ErrConnection)
	case res.StatusCode == http.StatusNotFound:
		c.br.OnSuccess()
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, model.ErrNotFound)
	case res.StatusCode >= 500:
		c.br.OnFailure()
		return fmt.Errorf("%s %s: %w: %w", method, req.URL.Path, statusErr(res), model.ErrConnection)
	default:
		c.br.OnSuccess()
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, statusErr(res))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func statusErr(res *http.Response) *statusError {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &statusError{code: res.StatusCode, body: strings.TrimSpace(string(b))}
}
