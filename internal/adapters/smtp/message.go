package smtp

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
)

type parsedMessage struct {
	// messageID is the Message-ID header, empty when absent
	messageID string
	text      string
}

// parseMessage turns an RFC 5322 message into relay message text:
// the decoded subject, a blank line, then the text body.
func parseMessage(r io.Reader) (parsedMessage, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return parsedMessage{}, fmt.Errorf("failed to parse message: %w", err)
	}

	body, err := extractText(msg)
	if err != nil {
		return parsedMessage{}, fmt.Errorf("failed to extract text content: %w", err)
	}
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))

	parsed := parsedMessage{messageID: strings.TrimSpace(msg.Header.Get("Message-Id"))}

	subject := strings.TrimSpace(decodeHeader(msg.Header.Get("Subject")))
	switch {
	case subject == "":
		parsed.text = body
	case body == "":
		parsed.text = subject
	default:
		parsed.text = subject + "\n\n" + body
	}
	return parsed, nil
}
