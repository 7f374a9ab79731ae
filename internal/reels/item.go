package reels

import "strings"

// Kind classifies a feed entry. Tutorials, movies and advertisements carry an
// optional deep link into the rest of the platform.
type Kind string

const (
	KindStandard      Kind = "standard"
	KindTutorial      Kind = "tutorial"
	KindMovie         Kind = "movie"
	KindAdvertisement Kind = "advertisement"
)

type Author struct {
	ID          string
	DisplayName string
	AvatarURL   string
	Verified    bool
}

type Counts struct {
	Likes    int
	Comments int
	Shares   int
}

// Item is one normalized feed entry. Items are created by page normalization,
// mutated in place by the interaction reconciler and only ever appended to the
// feed sequence.
type Item struct {
	ID       string
	MediaURL string
	Author   Author
	Counts   Counts
	Liked    bool
	Saved    bool
	Hashtags []string
	Kind     Kind
	DeepLink string
}

// rawItem mirrors one backend feed record. Field presence is not guaranteed;
// normalization fills defaults.
type rawItem struct {
	ID            string    `json:"id"`
	Video         string    `json:"video"`
	Author        rawAuthor `json:"author"`
	LikesCount    int       `json:"likes_count"`
	CommentsCount int       `json:"comments_count"`
	SharesCount   int       `json:"shares_count"`
	IsLiked       bool      `json:"is_liked"`
	IsSaved       bool      `json:"is_saved"`
	Hashtags      []string  `json:"hashtags"`
	Type          string    `json:"type"`
	DeepLink      string    `json:"deep_link"`
}

type rawAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Verified    bool   `json:"is_verified"`
}

// ResolveMediaURL turns a possibly-relative media path into an absolute URL.
// Paths that already carry a scheme pass through untouched; empty paths stay
// empty.
func ResolveMediaURL(origin, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return strings.TrimSuffix(origin, "/") + path
	}
	return strings.TrimSuffix(origin, "/") + "/" + path
}

func normalizeKind(s string) Kind {
	switch Kind(s) {
	case KindTutorial, KindMovie, KindAdvertisement:
		return Kind(s)
	default:
		return KindStandard
	}
}

func normalizeItem(raw rawItem, mediaOrigin string) *Item {
	hashtags := raw.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	return &Item{
		ID:       raw.ID,
		MediaURL: ResolveMediaURL(mediaOrigin, raw.Video),
		Author: Author{
			ID:          raw.Author.ID,
			DisplayName: raw.Author.DisplayName,
			AvatarURL:   ResolveMediaURL(mediaOrigin, raw.Author.AvatarURL),
			Verified:    raw.Author.Verified,
		},
		Counts: Counts{
			Likes:    max(raw.LikesCount, 0),
			Comments: max(raw.CommentsCount, 0),
			Shares:   max(raw.SharesCount, 0),
		},
		Liked:    raw.IsLiked,
		Saved:    raw.IsSaved,
		Hashtags: hashtags,
		Kind:     normalizeKind(raw.Type),
		DeepLink: raw.DeepLink,
	}
}
