package models

import "time"

// PostAnalytics is a time-series snapshot of one platform's engagement
// metrics for a published post.
type PostAnalytics struct {
	ID          int64     `db:"id" json:"id"`
	PostID      int64     `db:"post_id" json:"post_id"`
	Platform    string    `db:"platform" json:"platform"`
	Impressions int64     `db:"impressions" json:"impressions"`
	Likes       int64     `db:"likes" json:"likes"`
	Comments    int64     `db:"comments" json:"comments"`
	Shares      int64     `db:"shares" json:"shares"`
	CollectedAt time.Time `db:"collected_at" json:"collected_at"`
}
