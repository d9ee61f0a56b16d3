package connector

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/model"
)

const ytAnalyticsBaseURL = "https://youtubeanalytics.googleapis.com/v2"

var youtubeEndpoint = oauth2.Endpoint{TokenURL: "https://oauth2.googleapis.com/token"}

// YouTube talks to the YouTube Analytics API for channels.
type YouTube struct {
	app App
	*client
	baseURL string
}

// NewYouTube constructs the YouTube channel adapter.
func NewYouTube(app App, gate Gate, timeout time.Duration) *YouTube {
	return &YouTube{app: app, client: newClient(model.PlatformYouTube, gate, timeout), baseURL: ytAnalyticsBaseURL}
}

func (c *YouTube) Platform() model.Platform { return model.PlatformYouTube }

// ytReportResponse mirrors the Analytics report shape: column headers plus
// positional rows.
type ytReportResponse struct {
	ColumnHeaders []struct {
		Name string `json:"name"`
	} `json:"columnHeaders"`
	Rows [][]any `json:"rows"`
}

type ytSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    int64 `json:"viewCount,string"`
			LikeCount    int64 `json:"likeCount,string"`
			CommentCount int64 `json:"commentCount,string"`
		} `json:"statistics"`
	} `json:"items"`
}

// FetchDailyMetrics runs a day-dimension analytics report.
func (c *YouTube) FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	q := url.Values{}
	q.Set("ids", "channel=="+account.ExternalID)
	q.Set("dimensions", "day")
	q.Set("metrics", "views,estimatedMinutesWatched,subscribersGained,likes,comments")
	q.Set("startDate", dayKey(r.From))
	q.Set("endDate", dayKey(r.To))

	var resp ytReportResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/reports", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	col := map[string]int{}
	for i, h := range resp.ColumnHeaders {
		col[h.Name] = i
	}
	num := func(row []any, name string) int64 {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return 0
		}
		f, _ := row[i].(float64)
		return nonNegInt(int64(f))
	}

	rows := make([]model.DailyMetricRow, 0, len(resp.Rows))
	for _, raw := range resp.Rows {
		di, ok := col["day"]
		if !ok || di >= len(raw) {
			continue
		}
		ds, _ := raw[di].(string)
		day, err := time.Parse("2006-01-02", ds)
		if err != nil {
			continue
		}
		rows = append(rows, model.DailyMetricRow{
			Date:        day.UTC(),
			Views:       num(raw, "views"),
			Impressions: num(raw, "views"),
			Followers:   num(raw, "subscribersGained"),
			Engagements: num(raw, "likes") + num(raw, "comments"),
			WatchTimeS:  float64(num(raw, "estimatedMinutesWatched")) * 60,
		})
	}
	return rows, nil
}

// FetchPosts lists channel uploads inside the range.
func (c *YouTube) FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	q := url.Values{}
	q.Set("channelId", account.ExternalID)
	q.Set("publishedAfter", r.From.UTC().Format(time.RFC3339))
	q.Set("publishedBefore", r.To.AddDate(0, 0, 1).UTC().Format(time.RFC3339))
	q.Set("type", "video")

	var resp ytSearchResponse
	if err := c.getJSON(ctx, queryURL("https://www.googleapis.com/youtube/v3/search", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	posts := make([]model.PostRow, 0, len(resp.Items))
	for _, it := range resp.Items {
		ts, err := time.Parse(time.RFC3339, it.Snippet.PublishedAt)
		if err != nil {
			continue
		}
		posts = append(posts, model.PostRow{
			ExternalID:  it.ID.VideoID,
			PublishedAt: ts.UTC(),
			Caption:     it.Snippet.Title,
			Views:       nonNegInt(it.Statistics.ViewCount),
			Likes:       nonNegInt(it.Statistics.LikeCount),
			Comments:    nonNegInt(it.Statistics.CommentCount),
		})
	}
	return posts, nil
}

// RefreshAccessToken runs the Google refresh grant. Google never returns a
// new refresh token on refresh, so the stored one is kept.
func (c *YouTube) RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return c.refreshGrant(ctx, c.app, youtubeEndpoint, creds)
}
