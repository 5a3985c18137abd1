package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jobsift/jobsift/pkg/model"
)

const (
	defaultPageSize = 50
	maxPages        = 3
	httpTimeout     = 15 * time.Second
)

// HTTPSource fetches job rows from an Adzuna-compatible search API.
//
// The API fans a single search call out to multiple underlying boards,
// which is why the throttle layer paces per call rather than per site.
type HTTPSource struct {
	BaseURL string
	AppID   string
	AppKey  string

	client *http.Client
}

// NewHTTPSource constructs an HTTP source with a shared client.
func NewHTTPSource(baseURL, appID, appKey string) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		AppID:   appID,
		AppKey:  appKey,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

type apiResponse struct {
	Results []apiResult `json:"results"`
	Count   int         `json:"count"`
}

type apiResult struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	RedirectURL  string  `json:"redirect_url"`
	Created      string  `json:"created"`
	ContractTime string  `json:"contract_time"`
}

// Fetch retrieves rows for the task, iterating pages until the result
// budget is met, a short page signals the end, or maxPages is reached.
func (s *HTTPSource) Fetch(ctx context.Context, task model.SearchTask, opts FetchOptions) ([]model.Job, error) {
	pageSize := opts.ResultsWanted
	if pageSize <= 0 || pageSize > defaultPageSize {
		pageSize = defaultPageSize
	}

	var rows []model.Job
	for page := 1; page <= maxPages; page++ {
		batch, err := s.fetchPage(ctx, task, opts, page, pageSize)
		if err != nil {
			return rows, err
		}
		rows = append(rows, batch...)
		if len(batch) < pageSize {
			break
		}
		if opts.ResultsWanted > 0 && len(rows) >= opts.ResultsWanted {
			rows = rows[:opts.ResultsWanted]
			break
		}
	}
	return rows, nil
}

func (s *HTTPSource) fetchPage(ctx context.Context, task model.SearchTask, opts FetchOptions, page, pageSize int) ([]model.Job, error) {
	country := opts.Country
	if country == "" {
		country = "us"
	}
	endpoint := fmt.Sprintf("%s/%s/search/%d", s.BaseURL, country, page)

	params := url.Values{}
	params.Set("app_id", s.AppID)
	params.Set("app_key", s.AppKey)
	params.Set("results_per_page", strconv.Itoa(pageSize))
	params.Set("what", task.Query)
	params.Set("where", task.Location)
	params.Set("sort_by", "date")
	if opts.HoursOld > 0 {
		params.Set("max_days_old", strconv.Itoa((opts.HoursOld+23)/24))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &Error{Op: "Fetch", Err: fmt.Errorf("%w: %v", ErrPermanent, err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Op: "Fetch", Err: classifyNetErr(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: "Fetch", Err: fmt.Errorf("%w: read body: %v", ErrTransient, err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: "Fetch", Err: classifyStatus(resp.StatusCode, body)}
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, &Error{Op: "Fetch", Err: fmt.Errorf("%w: decode: %v", ErrPermanent, err)}
	}

	rows := make([]model.Job, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		job := model.Job{
			Title:          r.Title,
			Company:        r.Company.DisplayName,
			Location:       r.Location.DisplayName,
			Description:    r.Description,
			URL:            r.RedirectURL,
			Site:           "adzuna",
			MinAmount:      r.SalaryMin,
			MaxAmount:      r.SalaryMax,
			JobType:        r.ContractTime,
			SearchQuery:    task.Query,
			SearchLocation: task.Location,
		}
		if r.SalaryMin > 0 || r.SalaryMax > 0 {
			// Adzuna reports annualized figures.
			job.Interval = "yearly"
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			job.DatePosted = &t
		}
		rows = append(rows, job)
	}
	return rows, nil
}

// classifyNetErr maps transport-level failures onto the retry taxonomy.
// Timeouts and connection resets are transient; everything else is not.
func classifyNetErr(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return fmt.Errorf("%w: %v", ErrPermanent, err)
}

func classifyStatus(code int, body []byte) error {
	if code == http.StatusTooManyRequests || code >= 500 {
		return fmt.Errorf("%w: status %d", ErrTransient, code)
	}
	return fmt.Errorf("%w: status %d: %s", ErrPermanent, code, truncate(body, 200))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
