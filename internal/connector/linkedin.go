package connector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/model"
)

const linkedinBaseURL = "https://api.linkedin.com/rest"

var linkedinEndpoint = oauth2.Endpoint{TokenURL: "https://www.linkedin.com/oauth/v2/accessToken"}

// LinkedIn talks to the organization statistics REST API.
type LinkedIn struct {
	app App
	*client
	baseURL string
}

// NewLinkedIn constructs the LinkedIn organization adapter.
func NewLinkedIn(app App, gate Gate, timeout time.Duration) *LinkedIn {
	return &LinkedIn{app: app, client: newClient(model.PlatformLinkedIn, gate, timeout), baseURL: linkedinBaseURL}
}

func (c *LinkedIn) Platform() model.Platform { return model.PlatformLinkedIn }

type liStatsResponse struct {
	Elements []struct {
		TimeRange struct {
			Start int64 `json:"start"` // epoch millis
		} `json:"timeRange"`
		TotalShareStatistics struct {
			ImpressionCount        int64 `json:"impressionCount"`
			UniqueImpressionsCount int64 `json:"uniqueImpressionsCount"`
			EngagementCount        int64 `json:"engagement"`
			ShareCount             int64 `json:"shareCount"`
		} `json:"totalShareStatistics"`
	} `json:"elements"`
}

type liFollowerResponse struct {
	Elements []struct {
		TimeRange struct {
			Start int64 `json:"start"`
		} `json:"timeRange"`
		FollowerGains struct {
			OrganicFollowerGain int64 `json:"organicFollowerGain"`
			PaidFollowerGain    int64 `json:"paidFollowerGain"`
		} `json:"followerGains"`
	} `json:"elements"`
}

type liPostsResponse struct {
	Elements []struct {
		ID          string `json:"id"`
		Commentary  string `json:"commentary"`
		PublishedAt int64  `json:"publishedAt"` // epoch millis
		SocialCounts struct {
			NumLikes    int64 `json:"numLikes"`
			NumComments int64 `json:"numComments"`
			NumShares   int64 `json:"numShares"`
		} `json:"socialCounts"`
	} `json:"elements"`
}

// FetchDailyMetrics joins share statistics with follower gains per day.
func (c *LinkedIn) FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	orgURN := "urn:li:organization:" + account.ExternalID
	window := fmt.Sprintf("(start:%d,end:%d)", r.From.UnixMilli(), r.To.UnixMilli())

	q := url.Values{}
	q.Set("q", "organizationalEntity")
	q.Set("organizationalEntity", orgURN)
	q.Set("timeIntervals.timeGranularityType", "DAY")
	q.Set("timeIntervals.timeRange", window)

	var stats liStatsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/organizationalEntityShareStatistics", q), creds.AccessToken, &stats); err != nil {
		return nil, err
	}

	byDay := map[string]*model.DailyMetricRow{}
	rowFor := func(millis int64) *model.DailyMetricRow {
		day := time.UnixMilli(millis).UTC().Truncate(24 * time.Hour)
		key := dayKey(day)
		row, ok := byDay[key]
		if !ok {
			row = &model.DailyMetricRow{Date: day}
			byDay[key] = row
		}
		return row
	}
	for _, el := range stats.Elements {
		row := rowFor(el.TimeRange.Start)
		row.Impressions = nonNegInt(el.TotalShareStatistics.ImpressionCount)
		row.Reach = nonNegInt(el.TotalShareStatistics.UniqueImpressionsCount)
		row.Engagements = nonNegInt(el.TotalShareStatistics.EngagementCount)
		row.PostCount = nonNegInt(el.TotalShareStatistics.ShareCount)
	}

	fq := url.Values{}
	fq.Set("q", "organizationalEntity")
	fq.Set("organizationalEntity", orgURN)
	fq.Set("timeIntervals.timeGranularityType", "DAY")
	fq.Set("timeIntervals.timeRange", window)

	var followers liFollowerResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/organizationalEntityFollowerStatistics", fq), creds.AccessToken, &followers); err != nil {
		return nil, err
	}
	for _, el := range followers.Elements {
		row := rowFor(el.TimeRange.Start)
		row.Followers = nonNegInt(el.FollowerGains.OrganicFollowerGain) + nonNegInt(el.FollowerGains.PaidFollowerGain)
	}
	return sortRows(byDay), nil
}

// FetchPosts lists organization posts inside the range.
func (c *LinkedIn) FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	q := url.Values{}
	q.Set("q", "author")
	q.Set("author", "urn:li:organization:"+account.ExternalID)

	var resp liPostsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/posts", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	posts := make([]model.PostRow, 0, len(resp.Elements))
	for _, p := range resp.Elements {
		ts := time.UnixMilli(p.PublishedAt).UTC()
		if ts.Before(r.From) || ts.After(r.To.AddDate(0, 0, 1)) {
			continue
		}
		posts = append(posts, model.PostRow{
			ExternalID:  p.ID,
			PublishedAt: ts,
			Caption:     p.Commentary,
			Likes:       nonNegInt(p.SocialCounts.NumLikes),
			Comments:    nonNegInt(p.SocialCounts.NumComments),
			Shares:      nonNegInt(p.SocialCounts.NumShares),
		})
	}
	return posts, nil
}

// RefreshAccessToken runs the LinkedIn refresh grant.
func (c *LinkedIn) RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return c.refreshGrant(ctx, c.app, linkedinEndpoint, creds)
}
