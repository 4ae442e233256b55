package domain

import "encoding/json"

const MaxRating = 5

// Review is the structured payload stored in a review block's content.
type Review struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// DefaultReviewContent is what a fresh review block starts with.
const DefaultReviewContent = `{"rating":0,"text":""}`

// ParseReview decodes review content. Empty or malformed content yields an empty review.
func ParseReview(content string) Review {
	var r Review
	if content == "" {
		return r
	}
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return Review{}
	}
	r.Rating = clampRating(r.Rating)
	return r
}

// Encode serializes the review back into block content.
func (r Review) Encode() string {
	r.Rating = clampRating(r.Rating)
	data, err := json.Marshal(r)
	if err != nil {
		return DefaultReviewContent
	}
	return string(data)
}

func clampRating(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxRating {
		return MaxRating
	}
	return n
}
