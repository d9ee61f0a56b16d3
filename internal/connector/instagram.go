package connector

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/model"
)

const (
	graphBaseURL  = "https://graph.facebook.com/v19.0"
	graphTokenURL = graphBaseURL + "/oauth/access_token"
)

var graphEndpoint = oauth2.Endpoint{TokenURL: graphTokenURL}

// Instagram talks to the Instagram Graph API for business/creator accounts.
type Instagram struct {
	app App
	*client
	baseURL string
}

// NewInstagram constructs the Instagram adapter.
func NewInstagram(app App, gate Gate, timeout time.Duration) *Instagram {
	return &Instagram{app: app, client: newClient(model.PlatformInstagram, gate, timeout), baseURL: graphBaseURL}
}

func (c *Instagram) Platform() model.Platform { return model.PlatformInstagram }

// igInsightsResponse is the subset of /insights this service consumes.
type igInsightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value   int64  `json:"value"`
			EndTime string `json:"end_time"`
		} `json:"values"`
	} `json:"data"`
}

type igMediaResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Caption       string `json:"caption"`
		Timestamp     string `json:"timestamp"`
		LikeCount     int64  `json:"like_count"`
		CommentsCount int64  `json:"comments_count"`
	} `json:"data"`
}

// FetchDailyMetrics reads day-period insights and folds the per-metric series
// into one row per day.
func (c *Instagram) FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	q := url.Values{}
	q.Set("metric", "impressions,reach,follower_count,total_interactions")
	q.Set("period", "day")
	q.Set("since", dayKey(r.From))
	q.Set("until", dayKey(r.To))

	var resp igInsightsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/"+account.ExternalID+"/insights", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	byDay := map[string]*model.DailyMetricRow{}
	for _, series := range resp.Data {
		for _, v := range series.Values {
			day, err := parseGraphTime(v.EndTime)
			if err != nil {
				continue
			}
			key := dayKey(day)
			row, ok := byDay[key]
			if !ok {
				row = &model.DailyMetricRow{Date: day.UTC().Truncate(24 * time.Hour)}
				byDay[key] = row
			}
			switch series.Name {
			case "impressions":
				row.Impressions = nonNegInt(v.Value)
			case "reach":
				row.Reach = nonNegInt(v.Value)
			case "follower_count":
				row.Followers = nonNegInt(v.Value)
			case "total_interactions":
				row.Engagements = nonNegInt(v.Value)
			}
		}
	}
	return sortRows(byDay), nil
}

// FetchPosts lists media published inside the range.
func (c *Instagram) FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	q := url.Values{}
	q.Set("fields", "id,caption,timestamp,like_count,comments_count")
	q.Set("since", dayKey(r.From))
	q.Set("until", dayKey(r.To))

	var resp igMediaResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/"+account.ExternalID+"/media", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	posts := make([]model.PostRow, 0, len(resp.Data))
	for _, m := range resp.Data {
		ts, err := parseGraphTime(m.Timestamp)
		if err != nil {
			continue
		}
		posts = append(posts, model.PostRow{
			ExternalID:  m.ID,
			PublishedAt: ts.UTC(),
			Caption:     m.Caption,
			Likes:       nonNegInt(m.LikeCount),
			Comments:    nonNegInt(m.CommentsCount),
		})
	}
	return posts, nil
}

// RefreshAccessToken runs the graph refresh grant.
func (c *Instagram) RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return c.refreshGrant(ctx, c.app, graphEndpoint, creds)
}
