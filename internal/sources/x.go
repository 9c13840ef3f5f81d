package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dghubble/oauth1"
	"golang.org/x/time/rate"

	"github.com/user/bookmarksync/internal/config"
	"github.com/user/bookmarksync/internal/db"
)

const xPageSize = 100

// XSource lists bookmarks through the X API v2 using OAuth 1.0a user
// context credentials.
type XSource struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

func NewXSource(cfg config.XConfig) *XSource {
	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	return newXSource(oauthConfig.Client(oauth1.NoContext, token), cfg.BaseURL, cfg.RequestsPerSecond)
}

func newXSource(client *http.Client, baseURL string, requestsPerSecond float64) *XSource {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &XSource{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (x *XSource) Name() string {
	return "x"
}

func (x *XSource) Available() bool {
	return x.client != nil && x.baseURL != ""
}

// APIError is a non-success response from the X API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("x api %s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("x api %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

type xUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type xTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	AuthorID      string `json:"author_id"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

type xProblem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type xMeResponse struct {
	Data   *xUser     `json:"data"`
	Errors []xProblem `json:"errors"`
}

// xBookmarksResponse is one page of GET /2/users/:id/bookmarks
type xBookmarksResponse struct {
	Data     []xTweet `json:"data"`
	Includes struct {
		Users []xUser `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
	Errors []xProblem `json:"errors"`
}

func (x *XSource) Bookmarks(ctx context.Context) iter.Seq2[db.Bookmark, error] {
	return func(yield func(db.Bookmark, error) bool) {
		me, err := x.me(ctx)
		if err != nil {
			yield(db.Bookmark{}, err)
			return
		}

		nextToken := ""
		for {
			page, err := x.bookmarksPage(ctx, me.ID, nextToken)
			if err != nil {
				yield(db.Bookmark{}, err)
				return
			}

			authors := make(map[string]string, len(page.Includes.Users))
			for _, u := range page.Includes.Users {
				authors[u.ID] = u.Username
			}

			for _, tweet := range page.Data {
				if !yield(tweetToBookmark(tweet, authors), nil) {
					return
				}
			}

			if page.Meta.NextToken == "" {
				return
			}
			nextToken = page.Meta.NextToken
		}
	}
}

func (x *XSource) me(ctx context.Context) (*xUser, error) {
	var resp xMeResponse
	if err := x.get(ctx, "/2/users/me", nil, &resp); err != nil {
		return nil, errors.Wrap(err, "resolving authenticated user")
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, errors.Newf("resolving authenticated user: %s", describeProblems(resp.Errors))
	}
	return resp.Data, nil
}

func (x *XSource) bookmarksPage(ctx context.Context, userID, paginationToken string) (*xBookmarksResponse, error) {
	params := url.Values{}
	params.Set("max_results", fmt.Sprintf("%d", xPageSize))
	params.Set("tweet.fields", "created_at,public_metrics,author_id")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username")
	if paginationToken != "" {
		params.Set("pagination_token", paginationToken)
	}

	var resp xBookmarksResponse
	if err := x.get(ctx, "/2/users/"+url.PathEscape(userID)+"/bookmarks", params, &resp); err != nil {
		return nil, errors.Wrap(err, "listing bookmarks")
	}
	// Partial errors come alongside data; only a page with nothing usable fails.
	if len(resp.Data) == 0 && len(resp.Errors) > 0 {
		return nil, errors.Newf("listing bookmarks: %s", describeProblems(resp.Errors))
	}
	return &resp, nil
}

func (x *XSource) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := x.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := x.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := x.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s response", path)
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path, Detail: problemDetail(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decoding %s response", path)
	}
	return nil
}

func tweetToBookmark(tweet xTweet, authors map[string]string) db.Bookmark {
	createdAt := time.Now()
	if tweet.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			createdAt = parsed
		}
	}

	author := authors[tweet.AuthorID]
	if author == "" {
		author = tweet.AuthorID
	}

	return db.Bookmark{
		ID:        tweet.ID,
		Text:      tweet.Text,
		URL:       db.StatusURL(tweet.ID),
		Author:    author,
		CreatedAt: createdAt,
		Engagement: db.Engagement{
			Likes:    tweet.PublicMetrics.LikeCount,
			Retweets: tweet.PublicMetrics.RetweetCount,
		},
	}
}

// problemDetail pulls a readable message out of an error body.
func problemDetail(body []byte) string {
	var problem struct {
		xProblem
		Errors []xProblem `json:"errors"`
	}
	if err := json.Unmarshal(body, &problem); err != nil {
		return strings.TrimSpace(string(body))
	}
	if problem.Detail != "" {
		return problem.Detail
	}
	if problem.Title != "" {
		return problem.Title
	}
	return describeProblems(problem.Errors)
}

func describeProblems(problems []xProblem) string {
	if len(problems) == 0 {
		return "empty response"
	}
	msgs := make([]string, 0, len(problems))
	for _, p := range problems {
		if p.Detail != "" {
			msgs = append(msgs, p.Detail)
		} else {
			msgs = append(msgs, p.Title)
		}
	}
	return strings.Join(msgs, "; ")
}
