package model

// ClassificationVerdict is the category classifier's judgment for one article.
// Created once, read-only downstream.
type ClassificationVerdict struct {
	Article    Article    `json:"article"`
	Passed     bool       `json:"passed"`
	Categories []Category `json:"categories"`
	Rationale  string     `json:"rationale"`
}

// IsRegulatory reports whether the article carries the regulation category.
// Regulatory articles are never dropped by a later judgment stage.
func (v ClassificationVerdict) IsRegulatory() bool {
	for _, c := range v.Categories {
		if c == CategoryRegulation {
			return true
		}
	}
	return false
}

// ValueVerdict is the business-value validator's judgment for one article.
type ValueVerdict struct {
	Article      Article    `json:"article"`
	HasValue     bool       `json:"has_value"`
	Rationale    string     `json:"rationale"`
	Categories   []Category `json:"categories"`
	IsRegulatory bool       `json:"is_regulatory"`
}

// Relevance describes how directly an article touches the business.
type Relevance string

const (
	RelevanceDirect   Relevance = "direct"
	RelevanceIndirect Relevance = "indirect"
)

// ImpactType classifies the direction of an article's business impact.
type ImpactType string

const (
	ImpactOpportunity ImpactType = "opportunity"
	ImpactThreat      ImpactType = "threat"
	ImpactMixed       ImpactType = "mixed"
	ImpactWatchlist   ImpactType = "watchlist"
)

// AllImpactTypes returns all defined impact types.
func AllImpactTypes() []ImpactType {
	return []ImpactType{ImpactOpportunity, ImpactThreat, ImpactMixed, ImpactWatchlist}
}

// ImpactArea is a business area an article may affect.
type ImpactArea string

const (
	AreaMembershipData ImpactArea = "membership_data"
	AreaTargeting      ImpactArea = "targeting"
	AreaAdBusiness     ImpactArea = "ad_business"
	AreaOnlineOffline  ImpactArea = "online_offline"
	AreaCompliance     ImpactArea = "compliance"
	AreaNone           ImpactArea = "none"
)

// AllImpactAreas returns all defined impact areas.
func AllImpactAreas() []ImpactArea {
	return []ImpactArea{
		AreaMembershipData,
		AreaTargeting,
		AreaAdBusiness,
		AreaOnlineOffline,
		AreaCompliance,
		AreaNone,
	}
}

// ImpactAnalysis is the context analyzer's judgment for one article.
type ImpactAnalysis struct {
	Article      Article      `json:"article"`
	ImpactType   ImpactType   `json:"impact_type"`
	ImpactAreas  []ImpactArea `json:"impact_areas"`
	Rationale    string       `json:"rationale"`
	Relevance    Relevance    `json:"relevance"`
	Category     string       `json:"category"`
	Categories   []Category   `json:"categories"`
	IsRegulatory bool         `json:"is_regulatory"`
}

// HasRelevance is the capability the delivery path needs from an analyzed
// item. ImpactAnalysis is the only production implementation; tests may
// provide their own.
type HasRelevance interface {
	GetRelevance() Relevance
	GetArticle() Article
	GetCategory() string
}

// GetRelevance implements HasRelevance.
func (a ImpactAnalysis) GetRelevance() Relevance { return a.Relevance }

// GetArticle implements HasRelevance.
func (a ImpactAnalysis) GetArticle() Article { return a.Article }

// GetCategory implements HasRelevance.
func (a ImpactAnalysis) GetCategory() string { return a.Category }
