package remote

// Config holds configuration for the remote illustration API.
type Config struct {
	// RefreshToken is the long-lived OAuth refresh token of the account.
	RefreshToken string `mapstructure:"refresh_token" default:""`
	// UserID is the account whose bookmarks are synchronized.
	UserID int `mapstructure:"user_id" default:"0"`
	// Language is sent as Accept-Language and selects tag translations.
	Language string `mapstructure:"language" default:"zh-cn"`
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// WaitMS is the fixed delay between retries and after every successful call.
	WaitMS int `mapstructure:"wait_ms" default:"1500"`
	// TimeoutSeconds bounds a single HTTP exchange.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// APIURL is the base URL of the app API.
	APIURL string `mapstructure:"api_url" default:"https://app-api.pixiv.net"`
	// AuthURL is the OAuth token endpoint.
	AuthURL string `mapstructure:"auth_url" default:"https://oauth.secure.pixiv.net/auth/token"`
	// ClientID identifies the app to the OAuth endpoint.
	ClientID string `mapstructure:"client_id" default:"MOBrBDS8blbauoSck0ZfDbtuzpyT"`
	// ClientSecret authenticates the app to the OAuth endpoint.
	ClientSecret string `mapstructure:"client_secret" default:"lsACyCD94FhDUtGTXi3QzcFE2uU1hqtDaKeqrdwj"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"PixivAndroidApp/5.0.234 (Android 11; Pixel 5)"`
	// Referer is required by the image host for downloads.
	Referer string `mapstructure:"referer" default:"https://app-api.pixiv.net/"`
}
