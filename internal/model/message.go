package model

import "fmt"

// BriefMessage is a delivery-ready item for the notification channel.
// Direct-relevance articles get a generated summary; indirect ones get a
// templated one-liner.
type BriefMessage struct {
	ArticleURL string    `json:"article_url"`
	Summary    string    `json:"summary"`
	Relevance  Relevance `json:"relevance"`
	Category   string    `json:"category"`
}

// Format renders the channel-ready markdown for a single message.
func (m BriefMessage) Format() string {
	return fmt.Sprintf("📰 **AI News Brief**\n\n%s\n\n🔗 %s\n", m.Summary, m.ArticleURL)
}

// PartnerEntry is one organization mentioned in a direct-relevance article,
// extracted for the partner index.
type PartnerEntry struct {
	Name               string `json:"name"`
	Field              string `json:"field"`
	RecentAchievement  string `json:"recent_achievement"`
	CollaborationPoint string `json:"collaboration_point"`
	SourceURL          string `json:"source_url"`
}
