// Package conduit implements the service.Service interface using Phabricator's Conduit API.
package conduit

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/pkcs12"
	"google.golang.org/api/googleapi"

	"phab/internal/config"
	"phab/internal/logging"
	"phab/internal/service"
)

const (
	maniphestSearch = "maniphest.search"
	userSearch      = "user.search"
)

var _ service.Service = (*Client)(nil)

// Client implements service.Service using the Conduit HTTP API.
type Client struct {
	http       *http.Client
	host       string
	credential credential
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	tokenPath  string
	httpClient *http.Client
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenPath sets where the OAuth token saved by login lives.
func WithTokenPath(path string) Option {
	return func(o *options) { o.tokenPath = path }
}

// WithHTTPClient replaces the HTTP client (for testing).
// Certificate settings are ignored when it is set.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates a new Conduit client.
// Fails if a PKCS12 bundle is configured but cannot be read or decoded.
func New(ctx context.Context, s *config.Settings, opts ...Option) (*Client, error) {
	o := options{logger: logging.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	httpClient := o.httpClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()

		if s.CertIdentityConfig != nil {
			cert, err := loadIdentity(s.CertIdentityConfig)
			if err != nil {
				return nil, err
			}
			transport.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		}

		httpClient = &http.Client{Transport: transport, Timeout: s.Timeout}
	}

	cred, err := newCredential(ctx, s, o.tokenPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:       httpClient,
		host:       strings.TrimSuffix(s.Host, "/"),
		credential: cred,
		logger:     o.logger,
	}, nil
}

// loadIdentity reads a PKCS12 bundle into a TLS client certificate.
func loadIdentity(c *config.CertIdentityConfig) (tls.Certificate, error) {
	data, err := os.ReadFile(c.PKCS12Path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: failed to read pkcs12 from %s: %v", ErrConfigureHTTPClient, c.PKCS12Path, err)
	}

	key, cert, err := pkcs12.Decode(data, c.PKCS12Password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: certificate identity path %s: %v", ErrCertificateIdentity, c.PKCS12Path, err)
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

// GetUserByPHID returns the user with the given phid, or nil.
func (c *Client) GetUserByPHID(ctx context.Context, phid string) (*service.User, error) {
	users, err := c.GetUsersByPHIDs(ctx, []string{phid})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// GetTaskByID returns the task with the given id, or nil.
func (c *Client) GetTaskByID(ctx context.Context, id string) (*service.Task, error) {
	tasks, err := c.GetTasksByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return &tasks[0], nil
}

// GetUsersByPHIDs returns the users matching phids.
func (c *Client) GetUsersByPHIDs(ctx context.Context, phids []string) ([]service.User, error) {
	if len(phids) == 0 {
		return []service.User{}, nil
	}

	form := url.Values{}
	for i, phid := range phids {
		form.Set(fmt.Sprintf("constraints[phids][%d]", i), phid)
	}

	items, err := c.search(ctx, userSearch, form)
	if err != nil {
		return nil, err
	}

	users := make([]service.User, 0, len(items))
	for _, item := range items {
		u, err := UserFromJSON(item)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	c.logger.Debug("parsed users", "count", len(users))
	return users, nil
}

// GetTasksByIDs returns the tasks matching ids, oldest first.
func (c *Client) GetTasksByIDs(ctx context.Context, ids []string) ([]service.Task, error) {
	if len(ids) == 0 {
		return []service.Task{}, nil
	}

	form := taskSearchForm()
	for i, id := range ids {
		form.Set(fmt.Sprintf("constraints[ids][%d]", i), service.CleanID(id))
	}

	return c.searchTasks(ctx, form)
}

// GetTaskFamily returns the root task and all of its descendants, or nil if
// the root task does not exist.
func (c *Client) GetTaskFamily(ctx context.Context, rootID string) (*service.TaskFamily, error) {
	parent, err := c.GetTaskByID(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, nil
	}

	children, err := c.GetChildTasks(ctx, []string{rootID})
	if err != nil {
		return nil, err
	}

	return &service.TaskFamily{ParentTask: *parent, Children: children}, nil
}

// GetChildTasks returns the subtask forest below parentIDs.
//
// Children of all parents come back from a single query and are returned as
// one flat list of roots; which parent a child belongs to is not tracked.
// Every child's own subtree is fetched concurrently. All branches run to
// completion, and if any of them failed the whole call fails with every
// failure listed.
func (c *Client) GetChildTasks(ctx context.Context, parentIDs []string) ([]service.TaskFamily, error) {
	if len(parentIDs) == 0 {
		return nil, fmt.Errorf("%w: parent ids cannot be empty", ErrValidation)
	}

	form := taskSearchForm()
	for i, id := range parentIDs {
		form.Set(fmt.Sprintf("constraints[parentIDs][%d]", i), service.CleanID(id))
	}

	tasks, err := c.searchTasks(ctx, form)
	if err != nil {
		return nil, err
	}

	families := make([]service.TaskFamily, len(tasks))
	var g multierror.Group
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			children, err := c.GetChildTasks(ctx, []string{task.ID})
			if err != nil {
				return fmt.Errorf("could not fetch sub tasks with parent id %s: %w", task.ID, err)
			}
			families[i] = service.TaskFamily{ParentTask: task, Children: children}
			return nil
		})
	}

	if err := aggregate(g.Wait()); err != nil {
		return nil, err
	}
	return families, nil
}

func taskSearchForm() url.Values {
	form := url.Values{}
	form.Set("order", "oldest")
	form.Set("attachments[columns]", "true")
	form.Set("attachments[projects]", "true")
	return form
}

func (c *Client) searchTasks(ctx context.Context, form url.Values) ([]service.Task, error) {
	items, err := c.search(ctx, maniphestSearch, form)
	if err != nil {
		return nil, err
	}

	tasks := make([]service.Task, 0, len(items))
	for _, item := range items {
		t, err := TaskFromJSON(item)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	c.logger.Debug("parsed tasks", "count", len(tasks))
	return tasks, nil
}

// search POSTs a form-encoded Conduit call and returns result.data items.
func (c *Client) search(ctx context.Context, method string, form url.Values) ([]json.RawMessage, error) {
	token, err := c.credential.source.Token()
	if err != nil {
		return nil, wrapError(fmt.Errorf("failed to obtain token: %w", err))
	}

	endpoint := fmt.Sprintf("%s/api/%s", c.host, method)
	c.logger.Debug("conduit request", "url", endpoint, "form", form.Encode())

	body := cloneValues(form)
	body.Set(c.credential.param, token.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapError(err)
	}
	defer resp.Body.Close()

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, wrapError(err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(err)
	}
	c.logger.Debug("conduit response", "url", endpoint, "body", string(data))

	return decodeData(data)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
