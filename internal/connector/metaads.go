package connector

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/socialpulse/syncd/internal/model"
)

// MetaAds is the campaign-metrics variant of the graph adapter: it reads ad
// account insights instead of organic page series.
type MetaAds struct {
	app App
	*client
	baseURL string
}

// NewMetaAds constructs the Meta ads adapter.
func NewMetaAds(app App, gate Gate, timeout time.Duration) *MetaAds {
	return &MetaAds{app: app, client: newClient(model.PlatformMetaAds, gate, timeout), baseURL: graphBaseURL}
}

func (c *MetaAds) Platform() model.Platform { return model.PlatformMetaAds }

// Graph insights returns numeric fields as strings.
type adsInsightsResponse struct {
	Data []struct {
		DateStart   string `json:"date_start"` // 2006-01-02
		Impressions string `json:"impressions"`
		Reach       string `json:"reach"`
		Clicks      string `json:"clicks"`
		VideoViews  string `json:"video_play_actions"`
	} `json:"data"`
}

type adsCampaignsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		CreatedTime string `json:"created_time"`
	} `json:"data"`
}

func atoiLoose(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return nonNegInt(n)
}

// FetchDailyMetrics reads daily ad-account insights.
func (c *MetaAds) FetchDailyMetrics(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.DailyMetricRow, error) {
	q := url.Values{}
	q.Set("fields", "impressions,reach,clicks,video_play_actions")
	q.Set("time_increment", "1")
	q.Set("time_range", `{"since":"`+dayKey(r.From)+`","until":"`+dayKey(r.To)+`"}`)

	var resp adsInsightsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/act_"+account.ExternalID+"/insights", q), creds.AccessToken, &resp); err != nil {
		return nil, err
	}

	rows := make([]model.DailyMetricRow, 0, len(resp.Data))
	for _, d := range resp.Data {
		day, err := time.Parse("2006-01-02", d.DateStart)
		if err != nil {
			continue
		}
		rows = append(rows, model.DailyMetricRow{
			Date:        day.UTC(),
			Impressions: atoiLoose(d.Impressions),
			Reach:       atoiLoose(d.Reach),
			Engagements: atoiLoose(d.Clicks),
			Views:       atoiLoose(d.VideoViews),
		})
	}
	return rows, nil
}

// FetchPosts lists campaigns as post rows so reporting can join spend series
// against campaign identity.
func (c *MetaAds) FetchPosts(ctx context.Context, account model.SocialAccount, creds model.Credentials, r model.DateRange) ([]model.PostRow, error) {
	q := url.Values{}
	q.Set("fields", "id,name,created_time")

	var resp adsCampaignsResponse
	if err := c.getJSON(ctx, queryURL(c.baseURL+"/act_"+account.ExternalID+"/campaigns", q), creds.AccessToken, &resp); err != nil {
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
			Caption:     p.Name,
		})
	}
	return posts, nil
}

// RefreshAccessToken runs the graph refresh grant on the shared app.
func (c *MetaAds) RefreshAccessToken(ctx context.Context, account model.SocialAccount, creds model.Credentials) (model.RefreshedToken, error) {
	return c.refreshGrant(ctx, c.app, graphEndpoint, creds)
}
