package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Headline 是一条新闻标题及其来源元数据。
type Headline struct {
	Title       string
	Source      string
	Link        string
	PublishedAt time.Time
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string    `xml:"title"`
	Link    string    `xml:"link"`
	PubDate string    `xml:"pubDate"`
	Source  rssSource `xml:"source"`
	GUID    string    `xml:"guid"`
}

type rssSource struct {
	URL  string `xml:"url,attr"`
	Text string `xml:",chardata"`
}

// Client 通过 Google News RSS 拉取标题。RSS 不需要鉴权，
// 但需要带浏览器 UA，否则偶尔会被拒。
type Client struct {
	http     *resty.Client
	language string
	country  string
}

type Options struct {
	Language string
	Country  string
	Timeout  time.Duration
}

func NewClient(opts Options) *Client {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Country == "" {
		opts.Country = "US"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	c := resty.New()
	c.SetTimeout(opts.Timeout)
	c.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	c.SetRetryCount(2)
	c.SetRetryWaitTime(500 * time.Millisecond)
	return &Client{http: c, language: opts.Language, country: opts.Country}
}

// Search 按关键词查询新闻，返回最多 limit 条标题。
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Headline, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("news: search query cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	resp, err := c.http.R().SetContext(ctx).Get(c.buildSearchURL(query))
	if err != nil {
		return nil, fmt.Errorf("news: fetch rss feed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("news: rss feed returned HTTP %d", resp.StatusCode())
	}

	var feed rssFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("news: parse rss xml: %w", err)
	}

	headlines := make([]Headline, 0, limit)
	for _, item := range feed.Channel.Items {
		if len(headlines) >= limit {
			break
		}
		title := cleanTitle(item.Title)
		if title == "" {
			continue
		}
		headlines = append(headlines, Headline{
			Title:       title,
			Source:      sourceOf(item),
			Link:        item.Link,
			PublishedAt: parsePubDate(item.PubDate),
		})
	}
	return headlines, nil
}

func (c *Client) buildSearchURL(query string) string {
	v := url.Values{}
	v.Set("q", query)
	v.Set("hl", c.language)
	v.Set("gl", c.country)
	v.Set("ceid", fmt.Sprintf("%s:%s", c.country, strings.Split(c.language, "-")[0]))
	return "https://news.google.com/rss/search?" + v.Encode()
}

func sourceOf(item rssItem) string {
	if item.Source.Text != "" {
		return item.Source.Text
	}
	if item.Source.URL != "" {
		if u, err := url.Parse(item.Source.URL); err == nil {
			return u.Host
		}
	}
	return "Google News"
}

func parsePubDate(s string) time.Time {
	t, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		t, _ = time.Parse(time.RFC1123, s)
	}
	if t.IsZero() {
		t = time.Now()
	}
	return t
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// cleanTitle 去掉 RSS 标题里 Google 附加的来源后缀和残余 HTML。
func cleanTitle(s string) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	// Google News 的标题常以 " - Source" 结尾。
	if idx := strings.LastIndex(s, " - "); idx > 0 {
		s = s[:idx]
	}
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
