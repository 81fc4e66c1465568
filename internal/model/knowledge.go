package model

// ReferenceClause is a knowledge-base record stored in the vector index.
type ReferenceClause struct {
	Category        Category  `json:"category" yaml:"category"`
	ClauseText      string    `json:"clause_text" yaml:"clause_text"`
	RiskLevel       RiskLevel `json:"risk_level" yaml:"risk_level"`
	RiskExplanation string    `json:"risk_explanation" yaml:"risk_explanation"`
}

// Neighbor is a reference clause returned by a similarity query.
// Empty fields mean the stored record lacked that metadata.
type Neighbor struct {
	ClauseText      string  `json:"clause_text"`
	RiskLevel       string  `json:"risk_level"`
	RiskExplanation string  `json:"risk_explanation"`
	Score           float32 `json:"score"`
}

// KnowledgeRequest is the body of a knowledge seeding request.
type KnowledgeRequest struct {
	Clauses []ReferenceClause `json:"clauses"`
}

// KnowledgeResponse reports how many clauses were indexed.
type KnowledgeResponse struct {
	Inserted int `json:"inserted"`
}
