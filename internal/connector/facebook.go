package connector

import (
	"context"
	"net/url"
	"time"

	"github.com/socialpulse/syncd/internal/model"
)

// Facebook talks to the Graph API for pages.
type Facebook struct {
	app App
	*client
	baseURL string
}

// NewFacebook constructs the Facebook page adapter.
func NewFacebook(app App, gate Gate, timeout time.Duration) *Facebook {
	return &Facebook{app: app, client: newClient(model.PlatformFacebook, gate, timeout), baseURL: graphBaseURL}
}

func (c *Facebook) Platform() model.Platform { return model.PlatformFacebook }

type fbInsightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value   int64  `json:"value"`
			EndTime string `json:"end_time"`
		} `json:"values"`
	} `json:"data"`
}

type fbPostsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Message     string `json:"message"`
		CreatedTime string `json:"created_time"`
		Shares      struct {
			Count int64 `json:"count"`
		} `json:"shares"`
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
	} `json:"data"`
}

// FetchDailyMetrics reads page insights day series.
func (c *Facebook) FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	q := url.Values{}
	q.Set("metric", "page_impressions,page_impressions_unique,page_post_engagements,page_fans,page_video_views")
	q.Set("period", "day")
	q.Set("since", dayKey(r.From))
	q.Set("until", dayKey(r.To))

	var resp fbInsightsResponse
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
			case "page_impressions":
				row.Impressions = nonNegInt(v.Value)
			case "page_impressions_unique":
				row.Reach = nonNegInt(v.Value)
			case "page_post_engagements":
				row.Engagements = nonNegInt(v.Value)
			case "page_fans":
				row.Followers = nonNegInt(v.Value)
			case "page_video_views":
				row.Views = nonNegInt(v.Value)
			}
		}
	}
	return sortRows(byDay), nil
}

// FetchPosts lists published page posts inside the range.
func (c *Facebook) FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	q := url.Values{}
	q.Set("fields", "id,message,created_time,shares,likes.summary(true),comments.summary(true)")
	q.Set("since", dayKey(r.From))
	q.Set("until", dayKey(r.To))

	var resp fbPostsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/"+account.ExternalID+"/published_posts", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	posts := make([]model.PostRow, 0, len(resp.Data))
	for _, p := range resp.Data {
		ts, err := parseGraphTime(p.CreatedTime)
		if err != nil {
			continue
		}
		posts = append(posts, model.PostRow{
			ExternalID:  p.ID,
			PublishedAt: ts.UTC(),
			Caption:     p.Message,
			Likes:       nonNegInt(p.Likes.Summary.TotalCount),
			Comments:    nonNegInt(p.Comments.Summary.TotalCount),
			Shares:      nonNegInt(p.Shares.Count),
		})
	}
	return posts, nil
}

// RefreshAccessToken runs the graph refresh grant.
func (c *Facebook) RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return c.refreshGrant(ctx, c.app, graphEndpoint, creds)
}
