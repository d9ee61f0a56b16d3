package connector

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/socialpulse/syncd/internal/errs"
	"github.com/socialpulse/syncd/internal/model"
)

// Authorize URLs for the user-facing half of each platform's code flow. The
// token URLs live next to the adapters that use them.
var authURLs = map[model.Platform]string{
	model.PlatformInstagram: "https://www.facebook.com/v19.0/dialog/oauth",
	model.PlatformFacebook:  "https://www.facebook.com/v19.0/dialog/oauth",
	model.PlatformMetaAds:   "https://www.facebook.com/v19.0/dialog/oauth",
	model.PlatformLinkedIn:  "https://www.linkedin.com/oauth/v2/authorization",
	model.PlatformTikTok:    "https://www.tiktok.com/v2/auth/authorize/",
	model.PlatformYouTube:   "https://accounts.google.com/o/oauth2/auth",
}

var tokenURLs = map[model.Platform]string{
	model.PlatformInstagram: graphTokenURL,
	model.PlatformFacebook:  graphTokenURL,
	model.PlatformMetaAds:   graphTokenURL,
	model.PlatformLinkedIn:  linkedinEndpoint.TokenURL,
	model.PlatformTikTok:    tiktokEndpoint.TokenURL,
	model.PlatformYouTube:   youtubeEndpoint.TokenURL,
}

// scopes requested when a tenant connects an account.
var platformScopes = map[model.Platform][]string{
	model.PlatformInstagram: {"instagram_basic", "instagram_manage_insights", "pages_show_list"},
	model.PlatformFacebook:  {"pages_read_engagement", "read_insights"},
	model.PlatformMetaAds:   {"ads_read"},
	model.PlatformLinkedIn:  {"r_organization_social", "rw_organization_admin"},
	model.PlatformTikTok:    {"user.info.basic", "video.list"},
	model.PlatformYouTube:   {"https://www.googleapis.com/auth/youtube.readonly", "https://www.googleapis.com/auth/yt-analytics.readonly"},
}

// OAuthEndpoint returns the code-flow endpoint for a platform. The mock
// platform has none.
func OAuthEndpoint(p model.Platform) (oauth2.Endpoint, error) {
	auth, ok := authURLs[p]
	if !ok {
		return oauth2.Endpoint{}, fmt.Errorf("oauth endpoint: %q: %w", p, errs.ErrUnknownPlatform)
	}
	return oauth2.Endpoint{AuthURL: auth, TokenURL: tokenURLs[p]}, nil
}

// OAuthScopes returns the scopes requested on connect.
func OAuthScopes(p model.Platform) []string { return platformScopes[p] }
