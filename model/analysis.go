package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// KeyTerm is a legal term found in the document with a plain-English definition.
type KeyTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
	Importance string `json:"importance"` // high, medium, low
	Location   string `json:"location"`
}

// RedFlag is a risky or problematic clause identified in the document.
type RedFlag struct {
	Issue       string `json:"issue"`
	Explanation string `json:"explanation"`
	Severity    string `json:"severity"` // high, medium, low
}

// SimplifiedSection is a plain-English rewrite of part of the document.
// Order determines presentation order.
type SimplifiedSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   int    `json:"order"`
}

// Analysis is the structured result of analyzing a document. There is at most
// one Analysis per document, written in the same transaction that marks the
// document analyzed.
type Analysis struct {
	ID                 string                 `gorm:"primaryKey;size:36" json:"id"`
	DocumentID         string                 `gorm:"size:36;uniqueIndex;not null" json:"document_id"`
	OverallScore       float64                `json:"overall_score"`
	ReadabilityScore   float64                `json:"readability_score"`
	FairnessScore      float64                `json:"fairness_score"`
	RiskLevel          string                 `gorm:"size:16" json:"risk_level"` // high, medium, low
	Complexity         string                 `gorm:"size:16" json:"complexity"` // high, medium, low
	EstimatedReadTime  string                 `gorm:"size:32" json:"estimated_read_time"`
	Summary            string                 `gorm:"type:text" json:"summary"`
	TopConcerns        StringList             `gorm:"type:jsonb" json:"top_concerns"`
	Recommendations    StringList             `gorm:"type:jsonb" json:"recommendations"`
	KeyTerms           KeyTermList            `gorm:"type:jsonb" json:"key_terms"`
	RedFlags           RedFlagList            `gorm:"type:jsonb" json:"red_flags"`
	SimplifiedSections SimplifiedSectionList  `gorm:"type:jsonb" json:"simplified_sections"`
	AnalysisDate       time.Time              `json:"analysis_date"`
}

// Severity / importance constants shared by key terms, red flags and risk level.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// StringList stores a []string as a jsonb column.
type StringList []string

// KeyTermList stores []KeyTerm as a jsonb column.
type KeyTermList []KeyTerm

// RedFlagList stores []RedFlag as a jsonb column.
type RedFlagList []RedFlag

// SimplifiedSectionList stores []SimplifiedSection as a jsonb column.
type SimplifiedSectionList []SimplifiedSection

func (l StringList) Value() (driver.Value, error)            { return jsonValue(l) }
func (l *StringList) Scan(v interface{}) error               { return jsonScan(v, l) }
func (l KeyTermList) Value() (driver.Value, error)           { return jsonValue(l) }
func (l *KeyTermList) Scan(v interface{}) error              { return jsonScan(v, l) }
func (l RedFlagList) Value() (driver.Value, error)           { return jsonValue(l) }
func (l *RedFlagList) Scan(v interface{}) error              { return jsonScan(v, l) }
func (l SimplifiedSectionList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *SimplifiedSectionList) Scan(v interface{}) error    { return jsonScan(v, l) }

func jsonValue(v interface{}) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func jsonScan(src, dst interface{}) error {
	if src == nil {
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type: %T", src)
	}

	return json.Unmarshal(data, dst)
}
