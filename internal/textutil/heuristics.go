package textutil

import (
	"regexp"
	"strings"
)

// Salary 是从薪资文本中识别出的结构。
type Salary struct {
	Range    string
	Currency string
	Period   string
	OK       bool
}

var currencySymbols = []struct {
	marker string
	code   string
}{
	{"€", "EUR"},
	{"£", "GBP"},
	{"$", "USD"},
}

var currencyCodeRe = regexp.MustCompile(`\b(USD|EUR|GBP|AUD|NZD|CAD|CHF|ZAR)\b`)

var salaryPeriods = []struct {
	re     *regexp.Regexp
	period string
}{
	{regexp.MustCompile(`(?i)(per\s+day|/\s*day|\bp/?d\b|\bdaily\b|a\s+day)`), "day"},
	{regexp.MustCompile(`(?i)(per\s+week|/\s*week|\bweekly\b|\bp/?w\b)`), "week"},
	{regexp.MustCompile(`(?i)(per\s+month|/\s*month|\bpcm\b|\bmonthly\b|\bp/?m\b)`), "month"},
	{regexp.MustCompile(`(?i)(per\s+(?:year|annum)|/\s*year|\bp\.?a\.?\b|\bannual(?:ly)?\b|\byearly\b)`), "year"},
}

var digitRe = regexp.MustCompile(`\d`)

// ParseSalary 识别带货币标记的薪资文本。
func ParseSalary(text string) Salary {
	text = Clean(text)
	if text == "" {
		return Salary{}
	}
	var currency string
	if m := currencyCodeRe.FindString(strings.ToUpper(text)); m != "" {
		currency = m
	}
	if currency == "" {
		for _, c := range currencySymbols {
			if strings.Contains(text, c.marker) {
				currency = c.code
				break
			}
		}
	}
	if currency == "" || !digitRe.MatchString(text) {
		return Salary{}
	}
	s := Salary{Range: text, Currency: currency, OK: true}
	for _, p := range salaryPeriods {
		if p.re.MatchString(text) {
			s.Period = p.period
			break
		}
	}
	return s
}

// HasCurrency 判断文本是否带有货币标记。
func HasCurrency(text string) bool {
	for _, c := range currencySymbols {
		if strings.Contains(text, c.marker) {
			return true
		}
	}
	return currencyCodeRe.MatchString(strings.ToUpper(text))
}

var vesselSizeRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m(?:eters?|etres?)?\s*\(\s*(\d+(?:[.,]\d+)?)\s*(?:ft|feet|')\s*\)`)

// ParseVesselSize 识别形如 "36m (118ft)" 的船长文本，返回规范化形式。
func ParseVesselSize(text string) (string, bool) {
	m := vesselSizeRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1] + "m (" + m[2] + "ft)", true
}

var (
	relativeDateRe = regexp.MustCompile(`(?i)\b(today|yesterday|just now|\d+\s*(?:minute|min|hour|hr|day|week|month|year)s?\s+ago)\b`)
	monthNameRe    = regexp.MustCompile(`(?i)\b` + monthAlt + `\.?\s+\d{1,2}\b|\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthAlt + `\b`)
	numericDateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[/.]\d{1,2}[/.]\d{2,4}\b`)
)

const monthAlt = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

// IsRelativeDate 判断是否为 "2 days ago"、"yesterday" 之类的相对日期。
func IsRelativeDate(text string) bool {
	return relativeDateRe.MatchString(text)
}

// LooksLikeDate 判断文本是相对日期或绝对日期。
func LooksLikeDate(text string) bool {
	if strings.Contains(strings.ToLower(text), "posted") {
		return true
	}
	return IsRelativeDate(text) || monthNameRe.MatchString(text) || numericDateRe.MatchString(text)
}
