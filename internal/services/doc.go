// Package services implements the [Provider] interface for the external music
// catalogs ytune searches.
//
// # Providers
//
//   - [YouTubeService]: YouTube Data API v3 search.list, authorised by an API key
//     picked per call by the quota tracker
//   - [SpotifyService]: Spotify Web API search using the OAuth2 client credentials
//     flow; the API key on the request is ignored
//   - [DemoService]: a built-in catalog used when no credentials are configured
//   - [Fallback]: wraps two providers and retries the second when the first fails
//
// # Error Handling
//
// Every failure is a [*ProviderError] carrying one of three kinds:
//   - [KindQuota]: the API key is out of quota (YouTube reason quotaExceeded,
//     Spotify HTTP 429); matches [shared.ErrQuotaExceeded]
//   - [KindDomainQuota]: the project or referring domain is out of quota
//     (dailyLimitExceeded, dailyLimitExceededUnreg, rateLimitExceeded); matches
//     [shared.ErrDomainQuotaExceeded]
//   - [KindTransient]: anything else; matches [shared.ErrAPIRequest]
//
// [UserMessage] maps any search error to the text shown to the user.
package services
