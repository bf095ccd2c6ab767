package transfer

type PostCreation struct {
	Content      string   `json:"content"`
	Hashtags     []string `json:"hashtags"`
	MediaURLs    []string `json:"media_urls"`
	Platforms    []string `json:"platforms"`
	ScheduledFor string   `json:"scheduled_for"`
	AIGenerated  bool     `json:"ai_generated"`
}

type PostStatus struct {
	PostID  int64         `json:"post_id"`
	Status  string        `json:"status"`
	Entries []QueueStatus `json:"entries"`
}

type QueueStatus struct {
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	ErrorMessage string `json:"error_message,omitempty"`
}
