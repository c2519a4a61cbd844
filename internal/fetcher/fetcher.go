package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"crew-radar/internal/model"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent 是未配置时使用的 UA。
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config 定义单个来源的抓取配置。
type Config struct {
	Enabled    *bool  `yaml:"enabled" json:"enabled"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
}

// IsEnabled 未显式配置时视为启用。
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Adapter 是单个来源站点的抓取能力集合。
// 所有方法都应遵守 ctx 的超时与取消。
type Adapter interface {
	Source() model.Source
	// FetchPage 抓取第 page 页（从 1 开始）列表，单张卡片解析失败不影响整页。
	FetchPage(ctx context.Context, page int) ([]model.RawJobFields, error)
	// FetchDetail 抓取单个详情页。
	FetchDetail(ctx context.Context, url string) (model.RawJobFields, error)
	// Probe 做一次廉价的连通性探测，返回 HTTP 状态码。
	Probe(ctx context.Context) (int, error)
}

// AgeLimited 由带有年龄截止策略的适配器实现。
type AgeLimited interface {
	MaxAge() time.Duration
}

// StatusError 表示非 200 响应。
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// IsStatus 判断 err 是否为指定状态码的 StatusError。
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// HTTPClient 封装请求头、状态码检查与字符集解码。
type HTTPClient struct {
	client    *http.Client
	userAgent string
	logger    *log.Logger
}

// NewHTTPClient 创建 HTTPClient，client 为空时使用默认客户端。
func NewHTTPClient(client *http.Client, userAgent string, logger *log.Logger) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[fetcher] ", log.LstdFlags)
	}
	return &HTTPClient{client: client, userAgent: userAgent, logger: logger}
}

func (h *HTTPClient) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}

// Document 请求 rawURL 并解析为 goquery 文档。
func (h *HTTPClient) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := h.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Status 发送 GET 请求并只返回状态码。
func (h *HTTPClient) Status(ctx context.Context, rawURL string) (int, error) {
	req, err := h.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return 0, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http get: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (h *HTTPClient) logf(format string, args ...any) {
	h.logger.Printf(format, args...)
}

// base 是各适配器共享的字段与行为。
type base struct {
	source  model.Source
	baseURL string
	cfg     Config
	http    *HTTPClient
}

func newBase(source model.Source, defaultURL string, cfg Config, client *http.Client, logger *log.Logger) base {
	baseURL := strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultURL
	}
	return base{
		source:  source,
		baseURL: baseURL,
		cfg:     cfg,
		http:    NewHTTPClient(client, cfg.UserAgent, logger),
	}
}

func (b base) Source() model.Source { return b.source }

// MaxAge 返回年龄截止窗口，未配置时为 0（不截止）。
func (b base) MaxAge() time.Duration {
	if b.cfg.MaxAgeDays <= 0 {
		return 0
	}
	return time.Duration(b.cfg.MaxAgeDays) * 24 * time.Hour
}

func (b base) Probe(ctx context.Context) (int, error) {
	return b.http.Status(ctx, b.baseURL)
}

func (b base) pageURL(path string, page int) string {
	u := b.baseURL + path
	if page > 1 {
		sep := "?"
		if strings.Contains(u, "?") {
			sep = "&"
		}
		u = fmt.Sprintf("%s%spage=%d", u, sep, page)
	}
	return u
}

// eachCard 对每张卡片调用 extract，单张卡片 panic 或返回 false 都只跳过该卡片。
func (b base) eachCard(sel *goquery.Selection, page int, extract func(*goquery.Selection) (model.RawJobFields, bool)) []model.RawJobFields {
	out := make([]model.RawJobFields, 0, sel.Length())
	sel.Each(func(i int, card *goquery.Selection) {
		raw, ok := safeExtract(card, extract)
		if !ok {
			b.http.logf("source=%s page=%d skip_card index=%d", b.source, page, i)
			return
		}
		out = append(out, raw)
	})
	return out
}

func safeExtract(card *goquery.Selection, extract func(*goquery.Selection) (model.RawJobFields, bool)) (raw model.RawJobFields, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			raw, ok = model.RawJobFields{}, false
		}
	}()
	return extract(card)
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func firstText(root *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := text(root.Find(s).First()); t != "" {
			return t
		}
	}
	return ""
}

func listItems(root *goquery.Selection, selectors ...string) []string {
	for _, s := range selectors {
		var items []string
		root.Find(s).Each(func(_ int, li *goquery.Selection) {
			if t := text(li); t != "" {
				items = append(items, t)
			}
		})
		if len(items) > 0 {
			return items
		}
	}
	return nil
}
