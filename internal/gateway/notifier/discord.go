package notifier

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Discord webhook 通知器。webhook 无需 bot token，直接 POST 即可。
type Discord struct {
	webhookURL string
	client     *resty.Client
}

func NewDiscord(webhookURL string) *Discord {
	c := resty.New()
	c.SetTimeout(15 * time.Second)
	c.SetRetryCount(2)
	c.SetRetryWaitTime(time.Second)
	return &Discord{webhookURL: webhookURL, client: c}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) SendText(text string) error {
	if d.webhookURL == "" {
		return fmt.Errorf("discord webhook url 未配置")
	}
	// Discord 限制单条 2000 字符。
	if len(text) > 1900 {
		text = text[:1900] + "..."
	}
	resp, err := d.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"content": text}).
		Post(d.webhookURL)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	if resp.StatusCode()/100 != 2 {
		return fmt.Errorf("discord status=%d", resp.StatusCode())
	}
	return nil
}
