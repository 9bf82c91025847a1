package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrTimeout is returned when every attempt timed out.
	ErrTimeout = errors.New("openlibrary: timeout")
	// ErrUnavailable is returned when retries were exhausted on transport
	// errors or 5xx responses, or on a non-retryable HTTP failure.
	ErrUnavailable = errors.New("openlibrary: unavailable")
)

const (
	coverURLPattern = "https://covers.openlibrary.org/b/id/%d-L.jpg"
	maxSubjects     = 10
)

// BookData is the normalized subset of an Open Library search document.
// Absent fields stay zero-valued; the zero BookData means "looked up,
// nothing found" and is a valid, cacheable result.
type BookData struct {
	CoverURL  string   `json:"cover_url,omitempty"`
	Subjects  []string `json:"subjects,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Language  string   `json:"language,omitempty"`
	Rating    float64  `json:"rating,omitempty"`
}

func (d BookData) IsEmpty() bool {
	return d.CoverURL == "" && len(d.Subjects) == 0 && d.Publisher == "" &&
		d.Language == "" && d.Rating == 0
}

// searchResponse matches search.json
type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		CoverID    int      `json:"cover_i"`
		Subject    []string `json:"subject"`
		Publisher  []string `json:"publisher"`
		Language   []string `json:"language"`
		RatingsAvg float64  `json:"ratings_average"`
	} `json:"docs"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

func NewClient(baseURL, userAgent string, timeout time.Duration, maxRetries, rps int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if rps < 1 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// LookupByISBN fetches normalized metadata for an ISBN. An empty BookData
// with a nil error means the ISBN is unknown to Open Library.
func (c *Client) LookupByISBN(ctx context.Context, isbn string) (BookData, error) {
	q := url.Values{}
	q.Set("isbn", isbn)
	q.Set("limit", "1")
	return c.search(ctx, q)
}

// LookupByTitleAuthor fetches normalized metadata for a title/author pair.
func (c *Client) LookupByTitleAuthor(ctx context.Context, title, author string) (BookData, error) {
	q := url.Values{}
	q.Set("title", title)
	q.Set("author", author)
	q.Set("limit", "1")
	return c.search(ctx, q)
}

func (c *Client) search(ctx context.Context, q url.Values) (BookData, error) {
	var res searchResponse
	if err := c.get(ctx, c.baseURL+"/search.json?"+q.Encode(), &res); err != nil {
		return BookData{}, err
	}
	if len(res.Docs) == 0 {
		return BookData{}, nil
	}
	return extract(res), nil
}

func extract(res searchResponse) BookData {
	doc := res.Docs[0]
	var d BookData
	if doc.CoverID != 0 {
		d.CoverURL = fmt.Sprintf(coverURLPattern, doc.CoverID)
	}
	if len(doc.Subject) > 0 {
		subjects := doc.Subject
		if len(subjects) > maxSubjects {
			subjects = subjects[:maxSubjects]
		}
		d.Subjects = subjects
	}
	if len(doc.Publisher) > 0 {
		d.Publisher = doc.Publisher[0]
	}
	if len(doc.Language) > 0 {
		d.Language = doc.Language[0]
	}
	d.Rating = doc.RatingsAvg
	return d
}

// get issues one logical GET with a bounded attempt budget: maxRetries
// is the total number of attempts, not the number of extra tries.
// Timeouts, transport errors and 5xx responses are retried with
// exponential backoff; 4xx and decode failures are terminal.
func (c *Client) get(ctx context.Context, url string, target any) error {
	var lastErr error
	lastTimeout := false

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff * (1 << uint(attempt-1))):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			lastTimeout = isTimeout(err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				lastTimeout = false
				continue
			}
			return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
		}
		return nil
	}

	if lastTimeout {
		return fmt.Errorf("%w after %d attempts: %v", ErrTimeout, c.maxRetries, lastErr)
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, c.maxRetries, lastErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
