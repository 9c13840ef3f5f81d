package sources

import (
	"context"
	"encoding/json"
	"iter"
	"os"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/user/bookmarksync/internal/db"
)

// BirdSource lists bookmarks by shelling out to the bird CLI. It needs no
// API credentials, only a logged-in bird installation.
type BirdSource struct {
	binary string
}

func NewBirdSource() *BirdSource {
	return &BirdSource{binary: "bird"}
}

func (b *BirdSource) Name() string {
	return "bird"
}

func (b *BirdSource) Available() bool {
	_, err := exec.LookPath(b.binary)
	return err == nil
}

// birdBookmark matches the JSON schema from bird CLI --json output
type birdBookmark struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	LikeCount    int    `json:"likeCount"`
	RetweetCount int    `json:"retweetCount"`
	Author       struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"author"`
}

// birdResponse handles paginated response: { tweets: [...], nextCursor: "..." }
type birdResponse struct {
	Tweets     []birdBookmark `json:"tweets"`
	NextCursor string         `json:"nextCursor"`
}

func (b *BirdSource) Bookmarks(ctx context.Context) iter.Seq2[db.Bookmark, error] {
	return func(yield func(db.Bookmark, error) bool) {
		output, err := b.run(ctx)
		if err != nil {
			yield(db.Bookmark{}, err)
			return
		}

		bookmarks, err := parseBirdOutput(output)
		if err != nil {
			yield(db.Bookmark{}, err)
			return
		}

		for _, bm := range bookmarks {
			if !yield(bm, nil) {
				return
			}
		}
	}
}

// run executes bird bookmarks --all --json. Output goes through a temp file
// because bird can emit more than a pipe buffer in one burst.
func (b *BirdSource) run(ctx context.Context) ([]byte, error) {
	tmpFile, err := os.CreateTemp("", "bird-*.json")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp file")
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, b.binary, "bookmarks", "--all", "--json")
	cmd.Stdout = tmpFile
	runErr := cmd.Run()
	tmpFile.Close()
	if runErr != nil {
		return nil, errors.Wrap(runErr, "bird bookmarks failed")
	}

	output, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading bird output")
	}
	return output, nil
}

func parseBirdOutput(output []byte) ([]db.Bookmark, error) {
	// bird returns { tweets: [...], nextCursor: "..." } when using --all
	var resp birdResponse
	if err := json.Unmarshal(output, &resp); err != nil {
		// Try parsing as direct array (fallback for older versions)
		var tweets []birdBookmark
		if arrErr := json.Unmarshal(output, &tweets); arrErr != nil {
			return nil, errors.Wrap(err, "parsing bird output")
		}
		resp.Tweets = tweets
	}

	bookmarks := make([]db.Bookmark, 0, len(resp.Tweets))
	for _, tweet := range resp.Tweets {
		createdAt := time.Now()
		if tweet.CreatedAt != "" {
			// bird uses Twitter's Ruby-style format: "Mon Jan 02 15:04:05 +0000 2006"
			const twitterTimeFormat = "Mon Jan 02 15:04:05 -0700 2006"
			if parsed, err := time.Parse(twitterTimeFormat, tweet.CreatedAt); err == nil {
				createdAt = parsed
			}
		}

		if tweet.ID == "" {
			return nil, errors.New("bird output contains a tweet without an id")
		}

		bookmarks = append(bookmarks, db.Bookmark{
			ID:        tweet.ID,
			Text:      tweet.Text,
			URL:       db.StatusURL(tweet.ID),
			Author:    tweet.Author.Username,
			CreatedAt: createdAt,
			Engagement: db.Engagement{
				Likes:    tweet.LikeCount,
				Retweets: tweet.RetweetCount,
			},
		})
	}

	return bookmarks, nil
}
