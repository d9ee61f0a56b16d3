package connector

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/model"
)

const tiktokBaseURL = "https://open.tiktokapis.com/v2"

var tiktokEndpoint = oauth2.Endpoint{TokenURL: tiktokBaseURL + "/oauth/token/"}

// TikTok talks to the TikTok open API for creator accounts.
type TikTok struct {
	app App
	*client
	baseURL string
}

// NewTikTok constructs the TikTok adapter.
func NewTikTok(app App, gate Gate, timeout time.Duration) *TikTok {
	return &TikTok{app: app, client: newClient(model.PlatformTikTok, gate, timeout), baseURL: tiktokBaseURL}
}

func (c *TikTok) Platform() model.Platform { return model.PlatformTikTok }

type ttMetricsResponse struct {
	Data struct {
		Days []struct {
			Date           string  `json:"date"` // 2006-01-02
			FollowerCount  int64   `json:"follower_count"`
			VideoViews     int64   `json:"video_views"`
			ProfileViews   int64   `json:"profile_views"`
			Likes          int64   `json:"likes"`
			Comments       int64   `json:"comments"`
			Shares         int64   `json:"shares"`
			AvgWatchTimeS  float64 `json:"average_watch_time"`
		} `json:"days"`
	} `json:"data"`
}

type ttVideosResponse struct {
	Data struct {
		Videos []struct {
			ID           string `json:"id"`
			Description  string `json:"video_description"`
			CreateTime   int64  `json:"create_time"` // epoch seconds
			LikeCount    int64  `json:"like_count"`
			CommentCount int64  `json:"comment_count"`
			ShareCount   int64  `json:"share_count"`
			ViewCount    int64  `json:"view_count"`
		} `json:"videos"`
	} `json:"data"`
}

// FetchDailyMetrics reads creator daily stats.
func (c *TikTok) FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	q := url.Values{}
	q.Set("open_id", account.ExternalID)
	q.Set("start_date", dayKey(r.From))
	q.Set("end_date", dayKey(r.To))

	var resp ttMetricsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/research/user/stats/", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	rows := make([]model.DailyMetricRow, 0, len(resp.Data.Days))
	for _, d := range resp.Data.Days {
		day, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		rows = append(rows, model.DailyMetricRow{
			Date:        day.UTC(),
			Followers:   nonNegInt(d.FollowerCount),
			Impressions: nonNegInt(d.VideoViews),
			Reach:       nonNegInt(d.ProfileViews),
			Engagements: nonNegInt(d.Likes) + nonNegInt(d.Comments) + nonNegInt(d.Shares),
			Views:       nonNegInt(d.VideoViews),
			WatchTimeS:  nonNegFloat(d.AvgWatchTimeS),
		})
	}
	return rows, nil
}

// FetchPosts lists videos created inside the range.
func (c *TikTok) FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	q := url.Values{}
	q.Set("open_id", account.ExternalID)
	q.Set("fields", "id,video_description,create_time,like_count,comment_count,share_count,view_count")

	var resp ttVideosResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/video/list/", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	posts := make([]model.PostRow, 0, len(resp.Data.Videos))
	for _, v := range resp.Data.Videos {
		ts := time.Unix(v.CreateTime, 0).UTC()
		if ts.Before(r.From) || ts.After(r.To.AddDate(0, 0, 1)) {
			continue
		}
		posts = append(posts, model.PostRow{
			ExternalID:  v.ID,
			PublishedAt: ts,
			Caption:     v.Description,
			Likes:       nonNegInt(v.LikeCount),
			Comments:    nonNegInt(v.CommentCount),
			Shares:      nonNegInt(v.ShareCount),
			Views:       nonNegInt(v.ViewCount),
		})
	}
	return posts, nil
}

// RefreshAccessToken runs the TikTok refresh grant. TikTok rotates refresh
// tokens on every exchange.
func (c *TikTok) RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return c.refreshGrant(ctx, c.app, tiktokEndpoint, creds)
}
