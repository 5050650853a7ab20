package prototype

import (
	"fmt"
	"strings"
	"unicode/utf8"

	mapset "github.com/deckarep/golang-set"
)

// ValidatePostData checks a post intent and reports every violation at once.
func ValidatePostData(intent *PostIntent) ValidationResult {
	if intent == nil {
		return ValidationResult{IsValid: false, Errors: []string{"Post data is required"}}
	}
	var errs []string
	if strings.TrimSpace(intent.Title) == "" {
		errs = append(errs, "Title is required")
	}
	if strings.TrimSpace(intent.Body) == "" {
		errs = append(errs, "Body is required")
	}
	if strings.TrimSpace(intent.Author) == "" {
		errs = append(errs, "Author is required")
	}
	if utf8.RuneCountInString(intent.Title) > MaxTitleLength {
		errs = append(errs, fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	}
	if utf8.RuneCountInString(intent.Body) > MaxBodyLength {
		errs = append(errs, fmt.Sprintf("Body must be %d characters or less", MaxBodyLength))
	}
	if len(intent.PostTags()) > MaxTags {
		errs = append(errs, fmt.Sprintf("Maximum %d tags allowed", MaxTags))
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// ValidateCommentData is the reply counterpart of ValidatePostData.
func ValidateCommentData(intent *CommentIntent) ValidationResult {
	if intent == nil {
		return ValidationResult{IsValid: false, Errors: []string{"Comment data is required"}}
	}
	var errs []string
	if strings.TrimSpace(intent.Author) == "" {
		errs = append(errs, "Author is required")
	}
	if strings.TrimSpace(intent.Body) == "" {
		errs = append(errs, "Body is required")
	}
	if utf8.RuneCountInString(intent.Body) > MaxBodyLength {
		errs = append(errs, fmt.Sprintf("Body must be %d characters or less", MaxBodyLength))
	}
	if strings.TrimSpace(intent.ParentAuthor) == "" || strings.TrimSpace(intent.ParentPermlink) == "" {
		errs = append(errs, "Parent post is required")
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping first-seen
// order and dropping empties.
func NormalizeTags(tags []string) []string {
	seen := mapset.NewThreadUnsafeSet()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if seen.Add(t) {
			out = append(out, t)
		}
	}
	return out
}
