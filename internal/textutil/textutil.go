// Package textutil 提供各来源适配器与归一化器共用的文本启发式工具。
package textutil

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold 去除重音、转小写并压缩空白，供关键词匹配使用。
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Clean 压缩空白并去掉首尾空格。
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate 按 rune 截断到 n 个字符。
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

// ContainsWord 判断 kw 是否出现在 text 中某个单词的开头。
// 两者都应已 Fold；"deck" 命中 "deckhand"，"eto" 不命中 "veto"。
func ContainsWord(text, kw string) bool {
	return indexWord(text, kw, false)
}

// ContainsWholeWord 要求 kw 前后都是单词边界："temp" 命中 "chef (temp)"，不命中 "temperature"。
func ContainsWholeWord(text, kw string) bool {
	return indexWord(text, kw, true)
}

func indexWord(text, kw string, whole bool) bool {
	if kw == "" {
		return false
	}
	from := 0
	for from < len(text) {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		pos := from + i
		end := pos + len(kw)
		if boundaryBefore(text, pos) && (!whole || boundaryAfter(text, end)) {
			return true
		}
		from = end
	}
	return false
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func ContainsAny(text string, kws []string) bool {
	for _, kw := range kws {
		if ContainsWord(text, kw) {
			return true
		}
	}
	return false
}

// ContainsAnyWhole 是 ContainsAny 的整词版本。
func ContainsAnyWhole(text string, kws []string) bool {
	for _, kw := range kws {
		if ContainsWholeWord(text, kw) {
			return true
		}
	}
	return false
}

var listSplitRe = regexp.MustCompile(`[•·\n\r;]+|(?:^|\s)-\s`)

// SplitList 按项目符号、短横线与换行切分列表，保持顺序并丢弃空项。
func SplitList(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := listSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = Clean(strings.Trim(p, " -*\t"))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SurrogateID 由若干字段生成稳定的替代外部 ID。
// 同样的输入总是得到同样的 ID，空输入返回空串。
func SurrogateID(parts ...string) string {
	joined := strings.Join(parts, "\x1f")
	if strings.Trim(joined, "\x1f ") == "" {
		return ""
	}
	sum := sha1.Sum([]byte(Fold(joined)))
	return "h" + hex.EncodeToString(sum[:8])
}

var (
	jobsPathRe = regexp.MustCompile(`/jobs?/(\d+)`)
	fragmentRe = regexp.MustCompile(`#(\d+)$`)
	queryIDRe  = regexp.MustCompile(`(?i)[?&](?:id|jobid|job_id)=(\w+)`)
)

// IDFromURL 从详情页链接中推导外部 ID。
func IDFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if m := jobsPathRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := queryIDRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := fragmentRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	seg := path[strings.LastIndex(path, "/")+1:]
	seg = strings.TrimSuffix(seg, ".html")
	seg = strings.TrimSuffix(seg, ".aspx")
	return seg
}

// ResolveURL 以 base 解析相对链接；无法解析时原样返回。
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
