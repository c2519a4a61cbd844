package processor

import (
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"crew-radar/internal/model"
)

// 质量分权重。
const (
	completenessWeight = 0.6
	linkBonus          = 0.2
	longDescBonus      = 0.2
	shortDescBonus     = 0.1
	longDescLen        = 200
	shortDescLen       = 100
)

// QualityScore 计算职位完整度评分，结果在 [0,1] 内并保留两位小数。
func QualityScore(job model.Job) float64 {
	present := 0
	for _, v := range []string{job.Title, job.Company, job.Location, job.Description} {
		if hasValue(v) {
			present++
		}
	}
	score := completenessWeight * float64(present) / 4

	if validURL(job.SourceURL) && strings.TrimSpace(job.ExternalID) != "" {
		score += linkBonus
	}

	switch n := utf8.RuneCountInString(strings.TrimSpace(job.Description)); {
	case n > longDescLen:
		score += longDescBonus
	case n > shortDescLen:
		score += shortDescBonus
	}

	score = math.Round(score*100) / 100
	return math.Max(0, math.Min(1, score))
}

func hasValue(s string) bool {
	return strings.TrimSpace(s) != ""
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
