package matrix

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const lastMessageWindow = 10

// Message is an m.room.message event flattened for summarizing.
type Message struct {
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	MsgType   string    `json:"msgtype"`
	Timestamp time.Time `json:"timestamp"`
	EventID   string    `json:"event_id"`
}

type event struct {
	Type           string `json:"type"`
	Sender         string `json:"sender"`
	EventID        string `json:"event_id"`
	OriginServerTS int64  `json:"origin_server_ts"`
	Content        struct {
		MsgType       string `json:"msgtype"`
		Body          string `json:"body"`
		Format        string `json:"format"`
		FormattedBody string `json:"formatted_body"`
	} `json:"content"`
}

type messagesPage struct {
	Chunk []event `json:"chunk"`
}

// filterMessages keeps m.room.message events newer than since and returns
// them oldest first. The homeserver pages backwards, newest first.
func filterMessages(events []event, since *time.Time) []Message {
	messages := make([]Message, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Type != "m.room.message" {
			continue
		}
		at := time.UnixMilli(ev.OriginServerTS).UTC()
		if since != nil && !at.After(*since) {
			continue
		}
		body := ev.Content.Body
		if body == "" && ev.Content.FormattedBody != "" {
			body = PlainText(ev.Content.FormattedBody)
		}
		messages = append(messages, Message{
			Sender:    ev.Sender,
			Body:      body,
			MsgType:   ev.Content.MsgType,
			Timestamp: at,
			EventID:   ev.EventID,
		})
	}
	return messages
}

func messagesQuery(limit int) string {
	return url.Values{"dir": {"b"}, "limit": {fmt.Sprint(limit)}}.Encode()
}

// FetchRoomMessages reads the newest limit events through the client API.
func (c *Client) FetchRoomMessages(ctx context.Context, roomID string, since *time.Time, limit int) ([]Message, error) {
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/messages?%s", url.PathEscape(roomID), messagesQuery(limit))
	var page messagesPage
	if err := c.authed(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return filterMessages(page.Chunk, since), nil
}

// AdminRoomMessages reads through the Synapse admin API, which also works for
// rooms the bot has not joined.
func (c *Client) AdminRoomMessages(ctx context.Context, roomID string, since *time.Time, limit int) ([]Message, error) {
	path := fmt.Sprintf("/_synapse/admin/v1/rooms/%s/messages?%s", url.PathEscape(roomID), messagesQuery(limit))
	var page messagesPage
	if err := c.authed(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return filterMessages(page.Chunk, since), nil
}

// LastMessage returns the newest message of the room or nil when there is none.
func (c *Client) LastMessage(ctx context.Context, roomID string) (*Message, error) {
	messages, err := c.FetchRoomMessages(ctx, roomID, nil, lastMessageWindow)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	last := messages[len(messages)-1]
	return &last, nil
}

// PlainText renders a formatted_body as text. Reply fallbacks are dropped.
func PlainText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("mx-reply").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return strings.TrimSpace(doc.Text())
}
