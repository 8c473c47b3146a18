package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/client/models"
	"github.com/dmitrijs2005/fieldmate/internal/common"
)

const (
	authPrefix = "/auth/v1"
	restPrefix = "/rest/v1"

	preferRepresentation = "return=representation"
	preferUpsert         = "return=representation,resolution=merge-duplicates"
)

// RESTClient talks to the backend over HTTP+JSON. Calls under /rest/v1 go
// through the authenticated transport; the token endpoints use a plain one
// so a refresh never recurses into the Authenticator.
type RESTClient struct {
	baseURL string
	apiKey  string
	plain   *http.Client
	authed  *http.Client
	now     func() time.Time
}

// NewRESTClient builds a client for baseURL. authed carries the
// Authenticator; when nil, plain is used for every call.
func NewRESTClient(baseURL, apiKey string, plain, authed *http.Client) *RESTClient {
	if plain == nil {
		plain = &http.Client{Timeout: 20 * time.Second}
	}
	if authed == nil {
		authed = plain
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		plain:   plain,
		authed:  authed,
		now:     time.Now,
	}
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	prefer string
	authed bool
}

func (c *RESTClient) do(ctx context.Context, r request, out any) error {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set(common.APIKeyHeaderName, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}

	hc := c.plain
	if r.authed {
		hc = c.authed
	}
	resp, err := hc.Do(req)
	if err != nil {
		return mapTransportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", common.ErrorUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil {
			apiErr.Message = eb.text()
			if eb.Code != nil {
				apiErr.Code = fmt.Sprint(eb.Code)
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func mapTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, common.ErrorUnauthorized) || errors.Is(err, common.ErrorUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
}

func eq(v string) string { return "eq." + v }

func in(values []string) string { return "in.(" + strings.Join(values, ",") + ")" }

func (c *RESTClient) Login(ctx context.Context, email, password string) (models.Credentials, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &tr)
	if err != nil {
		return models.Credentials{}, err
	}
	if tr.AccessToken == "" {
		return models.Credentials{}, common.ErrInvalidToken
	}
	return tr.credentials(c.now()), nil
}

func (c *RESTClient) Refresh(ctx context.Context, refreshToken string) (models.Credentials, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   authPrefix + "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
	}, &tr)
	if err != nil {
		return models.Credentials{}, err
	}
	if tr.AccessToken == "" {
		return models.Credentials{}, common.ErrInvalidToken
	}
	return tr.credentials(c.now()), nil
}

func (c *RESTClient) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: authPrefix + "/logout", authed: true}, nil)
}

func (c *RESTClient) Ping(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: authPrefix + "/health"}, nil)
}

func (c *RESTClient) GetBusinessProfile(ctx context.Context) (models.BusinessProfile, error) {
	var out []models.BusinessProfile
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/business_profiles",
		query:  url.Values{"select": {"*"}, "limit": {"1"}},
		authed: true,
	}, &out)
	if err != nil {
		return models.BusinessProfile{}, err
	}
	if len(out) == 0 {
		return models.BusinessProfile{}, common.ErrorNotFound
	}
	return out[0], nil
}

func (c *RESTClient) ListAssignments(ctx context.Context, workerID string) ([]models.JobAssignment, error) {
	var out []models.JobAssignment
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/job_assignments",
		query:  url.Values{"worker_id": {eq(workerID)}, "select": {"*"}},
		authed: true,
	}, &out)
	return out, err
}

func (c *RESTClient) ListJobs(ctx context.Context, ids []string) ([]json.RawMessage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/jobs",
		query:  url.Values{"id": {in(ids)}, "select": {"*"}},
		authed: true,
	}, &out)
	return out, err
}

func (c *RESTClient) GetJob(ctx context.Context, id string) (json.RawMessage, error) {
	var out []json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/jobs",
		query:  url.Values{"id": {eq(id)}, "select": {"*"}},
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "job " + id}
	}
	return out[0], nil
}

func (c *RESTClient) ListTimeEntries(ctx context.Context, userID string) ([]models.TimeEntry, error) {
	var out []timeEntryDTO
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/time_entries",
		query:  url.Values{"user_id": {eq(userID)}, "order": {"start_time.desc"}},
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	entries := make([]models.TimeEntry, 0, len(out))
	for _, d := range out {
		entries = append(entries, d.model())
	}
	return entries, nil
}

// CreateTimeEntry upserts by id, so replaying an upload never duplicates.
func (c *RESTClient) CreateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	var out []timeEntryDTO
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "/time_entries",
		body:   timeEntryToDTO(e),
		prefer: preferUpsert,
		authed: true,
	}, &out)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if len(out) == 0 {
		return e, nil
	}
	return out[0].model(), nil
}

// UpdateTimeEntry fails with a 404 APIError when the entry does not exist
// remotely.
func (c *RESTClient) UpdateTimeEntry(ctx context.Context, e models.TimeEntry) (models.TimeEntry, error) {
	var out []timeEntryDTO
	err := c.do(ctx, request{
		method: http.MethodPatch,
		path:   restPrefix + "/time_entries",
		query:  url.Values{"id": {eq(e.ID)}},
		body: map[string]any{
			"finish_time":      e.FinishTime,
			"duration_seconds": e.DurationSeconds,
			"notes":            e.Notes,
		},
		prefer: preferRepresentation,
		authed: true,
	}, &out)
	if err != nil {
		return models.TimeEntry{}, err
	}
	if len(out) == 0 {
		return models.TimeEntry{}, &APIError{StatusCode: http.StatusNotFound, Message: "time entry " + e.ID}
	}
	return out[0].model(), nil
}

func (c *RESTClient) ListNotifications(ctx context.Context, userID string) ([]models.Notification, error) {
	var out []notificationDTO
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/notifications",
		query:  url.Values{"user_id": {eq(userID)}, "order": {"created_at.desc"}},
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	items := make([]models.Notification, 0, len(out))
	for _, d := range out {
		items = append(items, d.model())
	}
	return items, nil
}

func (c *RESTClient) MarkNotificationsRead(ctx context.Context, ids []string, read bool) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   restPrefix + "/notifications",
		query:  url.Values{"id": {in(ids)}},
		body:   map[string]bool{"is_read": read},
		authed: true,
	}, nil)
}

func (c *RESTClient) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   restPrefix + "/notifications",
		query:  url.Values{"id": {eq(id)}},
		authed: true,
	}, nil)
}

func (c *RESTClient) ListDocuments(ctx context.Context, jobID string) ([]models.JobDocument, error) {
	var out []documentDTO
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   restPrefix + "/job_documents",
		query:  url.Values{"job_id": {eq(jobID)}, "order": {"created_at.asc"}},
		authed: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	docs := make([]models.JobDocument, 0, len(out))
	for _, d := range out {
		docs = append(docs, d.model())
	}
	return docs, nil
}

func (c *RESTClient) CreateDocument(ctx context.Context, d models.JobDocument) (models.JobDocument, error) {
	var out []documentDTO
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "/job_documents",
		body: documentDTO{
			ID:          d.ID,
			JobID:       d.JobID,
			Name:        d.Name,
			ContentType: d.ContentType,
			FileURL:     d.RemoteURL,
			CreatedAt:   d.CreatedAt.UTC(),
		},
		prefer: preferUpsert,
		authed: true,
	}, &out)
	if err != nil {
		return models.JobDocument{}, err
	}
	if len(out) == 0 {
		d.Synced = true
		return d, nil
	}
	return out[0].model(), nil
}

func (c *RESTClient) UploadLocation(ctx context.Context, p models.PendingLocation) error {
	f := p.Fix
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   restPrefix + "/user_locations",
		body: locationDTO{
			UserID:        p.UserID,
			Latitude:      f.Latitude,
			Longitude:     f.Longitude,
			Accuracy:      f.Accuracy,
			Speed:         f.Speed,
			Heading:       f.Heading,
			Altitude:      f.Altitude,
			DistanceDelta: p.DistanceDelta,
			RecordedAt:    f.RecordedAt.UTC(),
		},
		authed: true,
	}, nil)
}
