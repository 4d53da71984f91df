package pipeline

import (
	"fmt"
	"math"
	"sync"
	"time"

	"winequality/ml"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// CleaningRule 清洗规则
type CleaningRule interface {
	Check(row int, sample ml.WineSample) *QualityIssue
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // low, medium, high
	Message  string `json:"message"`
	Row      int    `json:"row"`
}

func (q QualityIssue) String() string {
	return fmt.Sprintf("row %d: %s (%s): %s", q.Row, q.Type, q.Severity, q.Message)
}

// DataCleaner 数据清洗器
type DataCleaner struct {
	rules []CleaningRule

	stats     CleaningStats
	statsLock sync.RWMutex
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TotalProcessed int64            `json:"total_processed"`
	Passed         int64            `json:"passed"`
	Rejected       int64            `json:"rejected"`
	Issues         map[string]int64 `json:"issues"`
	LastClean      time.Time        `json:"last_clean"`
}

// NewDataCleaner 创建数据清洗器
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		rules: make([]CleaningRule, 0),
		stats: CleaningStats{
			Issues: make(map[string]int64),
		},
	}

	cleaner.AddRule(NewFiniteValueRule())
	cleaner.AddRule(NewNonNegativeRule())
	cleaner.AddRule(NewPHRangeRule())
	cleaner.AddRule(NewQualityRangeRule())

	return cleaner
}

// AddRule 添加清洗规则
func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
}

// Clean drops rows with a high severity issue and keeps the rest. Row
// numbers in the returned issues are 1-based data rows.
func (dc *DataCleaner) Clean(samples []ml.WineSample) ([]ml.WineSample, []QualityIssue) {
	cleaned := make([]ml.WineSample, 0, len(samples))
	var issues []QualityIssue

	dc.statsLock.Lock()
	defer dc.statsLock.Unlock()

	for i, sample := range samples {
		dc.stats.TotalProcessed++

		rejected := false
		for _, rule := range dc.rules {
			issue := rule.Check(i+1, sample)
			if issue == nil {
				continue
			}
			issues = append(issues, *issue)
			dc.stats.Issues[issue.Type]++
			if issue.Severity == SeverityHigh {
				rejected = true
			}
		}

		if rejected {
			dc.stats.Rejected++
			continue
		}
		dc.stats.Passed++
		cleaned = append(cleaned, sample)
	}

	dc.stats.LastClean = time.Now()
	return cleaned, issues
}

// GetStats 获取统计
func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for k, v := range dc.stats.Issues {
		stats.Issues[k] = v
	}
	return stats
}

// HighSeverity filters the issues that reject a row.
func HighSeverity(issues []QualityIssue) []QualityIssue {
	var high []QualityIssue
	for _, issue := range issues {
		if issue.Severity == SeverityHigh {
			high = append(high, issue)
		}
	}
	return high
}

// FiniteValueRule 非有限值检查
type FiniteValueRule struct{}

func NewFiniteValueRule() *FiniteValueRule {
	return &FiniteValueRule{}
}

func (r *FiniteValueRule) Name() string {
	return "finite_value"
}

func (r *FiniteValueRule) Check(row int, sample ml.WineSample) *QualityIssue {
	names := ml.FeatureNames()
	for i, value := range ml.FeatureVector(sample.WineFeatures) {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &QualityIssue{Type: r.Name(), Severity: SeverityHigh, Row: row,
				Message: fmt.Sprintf("%s is %v", names[i], value)}
		}
	}
	if math.IsNaN(sample.Quality) || math.IsInf(sample.Quality, 0) {
		return &QualityIssue{Type: r.Name(), Severity: SeverityHigh, Row: row,
			Message: fmt.Sprintf("%s is %v", ml.TargetColumn, sample.Quality)}
	}
	return nil
}

// NonNegativeRule 负值检查
type NonNegativeRule struct{}

func NewNonNegativeRule() *NonNegativeRule {
	return &NonNegativeRule{}
}

func (r *NonNegativeRule) Name() string {
	return "non_negative"
}

func (r *NonNegativeRule) Check(row int, sample ml.WineSample) *QualityIssue {
	names := ml.FeatureNames()
	for i, value := range ml.FeatureVector(sample.WineFeatures) {
		if value < 0 {
			return &QualityIssue{Type: r.Name(), Severity: SeverityLow, Row: row,
				Message: fmt.Sprintf("%s is negative: %g", names[i], value)}
		}
	}
	return nil
}

// PHRangeRule pH范围检查
type PHRangeRule struct {
	min float64
	max float64
}

func NewPHRangeRule() *PHRangeRule {
	return &PHRangeRule{min: 0, max: 14}
}

func (r *PHRangeRule) Name() string {
	return "ph_range"
}

func (r *PHRangeRule) Check(row int, sample ml.WineSample) *QualityIssue {
	if sample.PH < r.min || sample.PH > r.max {
		return &QualityIssue{Type: r.Name(), Severity: SeverityMedium, Row: row,
			Message: fmt.Sprintf("pH %g outside [%g, %g]", sample.PH, r.min, r.max)}
	}
	return nil
}

// QualityRangeRule 标签范围检查
type QualityRangeRule struct {
	min float64
	max float64
}

func NewQualityRangeRule() *QualityRangeRule {
	return &QualityRangeRule{min: 0, max: 10}
}

func (r *QualityRangeRule) Name() string {
	return "quality_range"
}

func (r *QualityRangeRule) Check(row int, sample ml.WineSample) *QualityIssue {
	if sample.Quality < r.min || sample.Quality > r.max {
		return &QualityIssue{Type: r.Name(), Severity: SeverityHigh, Row: row,
			Message: fmt.Sprintf("quality %g outside [%g, %g]", sample.Quality, r.min, r.max)}
	}
	return nil
}
