package remote

import (
	"path"
	"strings"
)

// PlaceholderURL is served in place of the original when an illustration was deleted or hidden.
const PlaceholderURL = "https://s.pximg.net/common/images/limit_unknown_360.png"

// TypeIllust is the only illustration type downloaded by bookmark sync.
const TypeIllust = "illust"

// User is the author payload embedded in an illustration.
type User struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Account string `json:"account"`
}

// Tag is one tag of an illustration.
type Tag struct {
	Name           string  `json:"name"`
	TranslatedName *string `json:"translated_name"`
}

// MetaSinglePage holds the original URL of single page works.
type MetaSinglePage struct {
	OriginalImageURL string `json:"original_image_url"`
}

// MetaPage is one page of a multi page work.
type MetaPage struct {
	ImageURLs struct {
		Original string `json:"original"`
	} `json:"image_urls"`
}

// Illust is the illustration detail payload.
type Illust struct {
	ID             int            `json:"id"`
	Title          string         `json:"title"`
	Type           string         `json:"type"`
	User           User           `json:"user"`
	Tags           []Tag          `json:"tags"`
	CreateDate     string         `json:"create_date"`
	PageCount      int            `json:"page_count"`
	SanityLevel    int            `json:"sanity_level"`
	XRestrict      int            `json:"x_restrict"`
	MetaSinglePage MetaSinglePage `json:"meta_single_page"`
	MetaPages      []MetaPage     `json:"meta_pages"`
	TotalView      int            `json:"total_view"`
	TotalBookmarks int            `json:"total_bookmarks"`
	Visible        *bool          `json:"visible"`
}

// OriginalURLs returns one original URL per page.
func (i *Illust) OriginalURLs() []string {
	if i.PageCount <= 1 || len(i.MetaPages) == 0 {
		if i.MetaSinglePage.OriginalImageURL == "" {
			return nil
		}
		return []string{i.MetaSinglePage.OriginalImageURL}
	}
	urls := make([]string, 0, len(i.MetaPages))
	for _, p := range i.MetaPages {
		if p.ImageURLs.Original != "" {
			urls = append(urls, p.ImageURLs.Original)
		}
	}
	return urls
}

// IsVisible reports whether the work can still be downloaded.
// Works flagged invisible, or whose original is the placeholder, are not.
func (i *Illust) IsVisible() bool {
	if i.Visible != nil && !*i.Visible {
		return false
	}
	urls := i.OriginalURLs()
	if len(urls) == 0 {
		return false
	}
	for _, u := range urls {
		if u == PlaceholderURL {
			return false
		}
	}
	return true
}

// TagNames returns the tag names in remote order.
func (i *Illust) TagNames() []string {
	names := make([]string, 0, len(i.Tags))
	for _, t := range i.Tags {
		names = append(names, t.Name)
	}
	return names
}

// FileName returns the last path segment of a download URL.
func FileName(rawURL string) string {
	if q := strings.IndexAny(rawURL, "?#"); q >= 0 {
		rawURL = rawURL[:q]
	}
	return path.Base(rawURL)
}

// BookmarkPage is one page of the bookmark listing.
type BookmarkPage struct {
	Illusts []Illust `json:"illusts"`
	// NextURL is the cursor of the following page, empty on the last page.
	NextURL string `json:"next_url"`
}

type detailResponse struct {
	Illust *Illust    `json:"illust"`
	Error  *errorBody `json:"error"`
}

type bookmarkResponse struct {
	Illusts []Illust   `json:"illusts"`
	NextURL *string    `json:"next_url"`
	Error   *errorBody `json:"error"`
}

type errorBody struct {
	UserMessage string `json:"user_message"`
	Message     string `json:"message"`
	Reason      string `json:"reason"`
}

func (e *errorBody) String() string {
	for _, s := range []string{e.UserMessage, e.Message, e.Reason} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}
