package bot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"honeypot-bot/logger"
	"honeypot-bot/utils"
)

const (
	colorTimeout = 15105570 // Orange
	colorBan     = 15158332 // Red
	colorUnban   = 3066993  // Green
	colorInfo    = 3447003  // Blue
	colorError   = 10038562 // Dark red
	colorStartup = 5793266  // Blurple
)

type webhookEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookEmbed struct {
	Title  string              `json:"title"`
	Color  int                 `json:"color"`
	Fields []webhookEmbedField `json:"fields"`
}

type webhookPayload struct {
	Embeds []webhookEmbed `json:"embeds"`
}

// WebhookNotifier posts moderation log embeds to a Discord webhook. All
// methods are fire-and-forget: delivery failures are logged locally and
// never propagate. An empty URL disables the sink.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) LogTimeout(guildID, userID, roleID string, until time.Time, reason string) {
	n.send("Honeypot Timeout", colorTimeout, []webhookEmbedField{
		{Name: "User", Value: mention(userID), Inline: true},
		{Name: "Guild", Value: guildID, Inline: true},
		{Name: "Trigger Role", Value: roleID, Inline: true},
		{Name: "Until", Value: utils.FormatUntil(until)},
		{Name: "Reason", Value: reason},
	})
}

func (n *WebhookNotifier) LogTempBan(guildID, userID, roleID string, unbanAt time.Time, reason string) {
	n.send("Honeypot Temporary Ban", colorBan, []webhookEmbedField{
		{Name: "User", Value: mention(userID), Inline: true},
		{Name: "Guild", Value: guildID, Inline: true},
		{Name: "Trigger Role", Value: roleID, Inline: true},
		{Name: "Unban", Value: utils.FormatUntil(unbanAt)},
		{Name: "Reason", Value: reason},
	})
}

func (n *WebhookNotifier) LogPermanentBan(guildID, userID, reason string) {
	n.send("Honeypot Permanent Ban", colorBan, []webhookEmbedField{
		{Name: "User", Value: mention(userID), Inline: true},
		{Name: "Guild", Value: guildID, Inline: true},
		{Name: "Reason", Value: reason},
	})
}

func (n *WebhookNotifier) LogUnban(guildID, userID, reason string) {
	n.send("Unban", colorUnban, []webhookEmbedField{
		{Name: "User", Value: mention(userID), Inline: true},
		{Name: "Guild", Value: guildID, Inline: true},
		{Name: "Reason", Value: reason},
	})
}

func (n *WebhookNotifier) LogOnboardingComplete(guildID, userID string) {
	n.send("Onboarding Complete", colorInfo, []webhookEmbedField{
		{Name: "User", Value: mention(userID), Inline: true},
		{Name: "Guild", Value: guildID, Inline: true},
	})
}

func (n *WebhookNotifier) LogError(module, message string) {
	n.send("Error", colorError, []webhookEmbedField{
		{Name: "Module", Value: module},
		{Name: "Details", Value: message},
	})
}

// LogStartup posts a lifecycle notice.
func (n *WebhookNotifier) LogStartup(message string) {
	n.send("System", colorStartup, []webhookEmbedField{
		{Name: "Status", Value: message},
	})
}

func (n *WebhookNotifier) send(title string, color int, fields []webhookEmbedField) {
	if n.url == "" {
		return
	}

	payload := webhookPayload{
		Embeds: []webhookEmbed{{Title: title, Color: color, Fields: fields}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("Failed to marshal webhook payload: %v", err)
		return
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Warnf("Failed to deliver log embed %q: %v", title, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		logger.Warnf("Log webhook rejected embed %q: %s %s", title, resp.Status, string(respBody))
	}
}

func mention(userID string) string {
	return fmt.Sprintf("<@%s> (%s)", userID, userID)
}
