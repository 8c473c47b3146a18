// Package reporting ships error reports to the backend's error sink.
//
// Reporting is best effort: a failed report is logged and dropped, never
// surfaced to the caller.
package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/dmitrijs2005/fieldmate/internal/common"
	"github.com/dmitrijs2005/fieldmate/internal/logging"
)

// Report is the body posted to the error sink.
type Report struct {
	Source         string         `json:"source"`
	Context        string         `json:"context"`
	Message        string         `json:"message"`
	Timestamp      time.Time      `json:"timestamp"`
	DeviceInfo     string         `json:"deviceInfo"`
	AppVersion     string         `json:"appVersion"`
	StackTrace     string         `json:"stackTrace,omitempty"`
	UserID         string         `json:"userId,omitempty"`
	AdditionalInfo map[string]any `json:"additionalInfo,omitempty"`
}

// Reporter is the sink used by services.
type Reporter interface {
	Report(ctx context.Context, where string, err error, info map[string]any)
}

// UserIDSource supplies the signed-in user for reports. Optional.
type UserIDSource interface {
	UserID(ctx context.Context) (string, error)
}

// HTTPReporter posts reports as JSON.
type HTTPReporter struct {
	url        string
	apiKey     string
	appVersion string
	client     *http.Client
	users      UserIDSource
	log        logging.Logger
	now        func() time.Time
}

// NewHTTPReporter returns a reporter posting to url. An empty url yields a
// reporter that only logs.
func NewHTTPReporter(url, apiKey, appVersion string, client *http.Client, users UserIDSource, log logging.Logger) *HTTPReporter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPReporter{
		url:        url,
		apiKey:     apiKey,
		appVersion: appVersion,
		client:     client,
		users:      users,
		log:        log,
		now:        time.Now,
	}
}

func (r *HTTPReporter) Report(ctx context.Context, where string, err error, info map[string]any) {
	if err == nil {
		return
	}
	r.log.Error(ctx, "error reported", "context", where, "error", err)
	if r.url == "" {
		return
	}

	rep := Report{
		Source:         "fieldmate-client",
		Context:        where,
		Message:        err.Error(),
		Timestamp:      r.now().UTC(),
		DeviceInfo:     fmt.Sprintf("%s/%s %s", runtime.GOOS, runtime.GOARCH, runtime.Version()),
		AppVersion:     r.appVersion,
		StackTrace:     fmt.Sprintf("%+v", err),
		AdditionalInfo: info,
	}
	if rep.StackTrace == rep.Message {
		rep.StackTrace = ""
	}
	if r.users != nil {
		if id, uerr := r.users.UserID(ctx); uerr == nil {
			rep.UserID = id
		}
	}

	if perr := r.post(context.WithoutCancel(ctx), rep); perr != nil {
		r.log.Warn(ctx, "error report not delivered", "error", perr)
	}
}

func (r *HTTPReporter) post(ctx context.Context, rep Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set(common.APIKeyHeaderName, r.apiKey)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("error sink returned %d", resp.StatusCode)
	}
	return nil
}

// Nop discards reports.
type Nop struct{}

func (Nop) Report(context.Context, string, error, map[string]any) {}
