// Package statsapi is the JSON-over-HTTP client of the remote statistics
// service. Failures are returned as errors.AppError values whose message is
// safe to show to the user; nothing is retried.
package statsapi

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"medstat/domain/analysis"
	"medstat/internal"
	"medstat/internal/errors"
	"medstat/ports"
)

const serviceName = "stats API"

var _ ports.StatsAPI = (*Client)(nil)

// Client calls the stats API endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *internal.Logger
}

// NewClient creates a client for the service at baseURL. timeout bounds each
// request on top of any deadline carried by the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *internal.Logger) *Client {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Component("statsapi"),
	}
}

// BaseURL returns the service root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload sends a CSV or Excel file as multipart field "file"
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*analysis.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, errors.Wrap(err, "read upload file")
	}
	if err := mw.Close(); err != nil {
		return nil, errors.Wrap(err, "build upload request")
	}

	var out analysis.UploadResult
	if err := c.do(ctx, "/api/data/upload", mw.FormDataContentType(), &body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchREDCap(ctx context.Context, req analysis.REDCapRequest) (*analysis.UploadResult, error) {
	if req.RawOrLabel == "" {
		req.RawOrLabel = "label"
	}
	return post[analysis.UploadResult](ctx, c, "/api/data/redcap", req)
}

func (c *Client) Survival(ctx context.Context, req analysis.SurvivalRequest) (*analysis.SurvivalResult, error) {
	return post[analysis.SurvivalResult](ctx, c, "/api/survival/analyze", req)
}

func (c *Client) Meta(ctx context.Context, req analysis.MetaRequest) (*analysis.MetaResult, error) {
	return post[analysis.MetaResult](ctx, c, "/api/meta/analyze", req)
}

func (c *Client) TTest(ctx context.Context, req analysis.TTestRequest) (*analysis.TTestResult, error) {
	return post[analysis.TTestResult](ctx, c, "/api/clinical/ttest", req)
}

func (c *Client) Anova(ctx context.Context, req analysis.AnovaRequest) (*analysis.AnovaResult, error) {
	return post[analysis.AnovaResult](ctx, c, "/api/clinical/anova", req)
}

func (c *Client) ChiSquare(ctx context.Context, req analysis.ChiSquareRequest) (*analysis.ChiSquareResult, error) {
	return post[analysis.ChiSquareResult](ctx, c, "/api/clinical/chi_square", req)
}

func (c *Client) SampleSize(ctx context.Context, req analysis.SampleSizeRequest) (*analysis.SampleSizeResult, error) {
	return post[analysis.SampleSizeResult](ctx, c, "/api/clinical/sample_size", req)
}

func (c *Client) TwoByTwo(ctx context.Context, req analysis.TwoByTwoRequest) (*analysis.TwoByTwoResult, error) {
	return post[analysis.TwoByTwoResult](ctx, c, "/api/epi/two_by_two", req)
}

func (c *Client) IncidenceRate(ctx context.Context, req analysis.IncidenceRequest) (*analysis.IncidenceResult, error) {
	return post[analysis.IncidenceResult](ctx, c, "/api/epi/incidence_rate", req)
}

// Logistic reports a model that failed to fit as a remote error even though
// the service answers it with 200.
func (c *Client) Logistic(ctx context.Context, req analysis.LogisticRequest) (*analysis.LogisticResult, error) {
	res, err := post[analysis.LogisticResult](ctx, c, "/api/epi/logistic", req)
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, errors.RemoteError(http.StatusOK, res.Error)
	}
	return res, nil
}

func (c *Client) ROC(ctx context.Context, req analysis.ROCRequest) (*analysis.ROCResult, error) {
	return post[analysis.ROCResult](ctx, c, "/api/biomarker/roc", req)
}

func post[T any](ctx context.Context, c *Client, path string, req any) (*T, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s request", path)
	}
	var out T
	if err := c.do(ctx, path, "application/json", bytes.NewReader(raw), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return errors.Wrapf(err, "build request for %s", path)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("POST %s failed after %s: %v", path, time.Since(start), err)
		if stderrors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return errors.Timeout("the stats API did not answer in time", err)
		}
		if stderrors.Is(err, context.Canceled) {
			return errors.Wrap(err, "request cancelled")
		}
		return errors.ExternalServiceError(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.ExternalServiceError(serviceName, fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("POST %s -> %d in %s (%d bytes)", path, resp.StatusCode, time.Since(start), len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.RemoteError(resp.StatusCode, errorDetail(resp.StatusCode, raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.ExternalServiceError(serviceName, fmt.Errorf("decode %s response: %w", path, err))
	}
	return nil
}

// errorDetail extracts the human readable "detail" of an error response. A
// validation error list yields its first message, prefixed with the field
// when one is named. Without a detail the status text is used.
func errorDetail(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		detail := gjson.GetBytes(body, "detail")
		switch {
		case detail.Type == gjson.String && detail.String() != "":
			return detail.String()
		case detail.IsArray() && len(detail.Array()) > 0:
			first := detail.Array()[0]
			msg := first.Get("msg").String()
			if loc := first.Get("loc").Array(); len(loc) > 0 && msg != "" {
				return fmt.Sprintf("%s: %s", loc[len(loc)-1].String(), msg)
			}
			if msg != "" {
				return msg
			}
		case detail.IsObject():
			return detail.Raw
		}
	}
	return fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}
