package processor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// UnparsedAge 是无法解析的发布日期对应的回溯时长，远超任何保留窗口。
const UnparsedAge = 999 * 24 * time.Hour

// Sentinel 返回无法解析日期时使用的哨兵时间。
func Sentinel(now time.Time) time.Time {
	return now.Add(-UnparsedAge)
}

var (
	relativeRe  = regexp.MustCompile(`(\d+|an?|one)\s*(minute|min|hour|hr|day|week|month|year)s?\s+ago`)
	ordinalRe   = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)
	postedRe    = regexp.MustCompile(`(?i)^\s*(posted|published|date posted|listed)\s*(on)?\s*:?\s*`)
	absoluteFmt = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2 Jan 2006",
		"2 January 2006",
		"Jan 2 2006",
		"January 2 2006",
		"2 Jan 06",
		"02/01/2006",
		"2/1/2006",
		"02.01.2006",
		"02-01-2006",
		"2006/01/02",
		"Mon 2 Jan 2006",
		"Monday 2 January 2006",
	}
)

// ParsePostedDate 解析发布日期文本，支持相对与绝对两种写法。
// 返回值 ok=false 时 t 为哨兵时间。
func ParsePostedDate(text string, now time.Time) (t time.Time, ok bool) {
	cleaned := strings.TrimSpace(postedRe.ReplaceAllString(strings.TrimSpace(text), ""))
	if cleaned == "" {
		return Sentinel(now), false
	}
	lower := strings.ToLower(cleaned)

	switch {
	case strings.Contains(lower, "just now"), lower == "now", strings.HasPrefix(lower, "today"):
		return now, true
	case strings.HasPrefix(lower, "yesterday"):
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeRe.FindStringSubmatch(lower); m != nil {
		n := 1
		if m[1] != "a" && m[1] != "an" && m[1] != "one" {
			v, err := strconv.Atoi(m[1])
			if err != nil {
				return Sentinel(now), false
			}
			n = v
		}
		switch m[2] {
		case "minute", "min":
			return now.Add(-time.Duration(n) * time.Minute), true
		case "hour", "hr":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, -n, 0), true
		case "year":
			return now.AddDate(-n, 0, 0), true
		}
	}

	abs := ordinalRe.ReplaceAllString(cleaned, "$1")
	abs = strings.Join(strings.Fields(strings.ReplaceAll(abs, ",", " ")), " ")
	for _, layout := range absoluteFmt {
		if parsed, err := time.ParseInLocation(layout, abs, now.Location()); err == nil {
			return parsed, true
		}
	}
	return Sentinel(now), false
}
