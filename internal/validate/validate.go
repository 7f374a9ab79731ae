package validate

import "fmt"

// Text field length limits for reel metadata and viewer input.
const (
	MaxTitleLength        = 200
	MaxDescriptionLength  = 5000
	MaxCommentTextLength  = 2000
	MaxReportReasonLength = 500
	MaxHashtagLength      = 50
	MaxHashtagCount       = 20
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string        { return checkLen(s, MaxTitleLength, "title") }
func Description(s string) string  { return checkLen(s, MaxDescriptionLength, "description") }
func CommentText(s string) string  { return checkLen(s, MaxCommentTextLength, "comment") }
func ReportReason(s string) string { return checkLen(s, MaxReportReasonLength, "report reason") }

func Hashtags(tags []string) string {
	if len(tags) > MaxHashtagCount {
		return fmt.Sprintf("at most %d hashtags allowed", MaxHashtagCount)
	}
	for _, tag := range tags {
		if msg := checkLen(tag, MaxHashtagLength, "hashtag"); msg != "" {
			return msg
		}
	}
	return ""
}

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"title":        MaxTitleLength,
		"description":  MaxDescriptionLength,
		"commentText":  MaxCommentTextLength,
		"reportReason": MaxReportReasonLength,
		"hashtag":      MaxHashtagLength,
	}
}
