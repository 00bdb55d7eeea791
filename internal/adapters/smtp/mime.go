package smtp

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

var wordDecoder = new(mime.WordDecoder)

// decodeHeader decodes RFC 2047 encoded words, returning the input unchanged on failure
func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// extractText returns the text/plain content of a message. Multipart
// messages are walked recursively; attachments and HTML parts are skipped.
func extractText(msg *mail.Message) (string, error) {
	return extractPart(msg.Header.Get("Content-Type"), msg.Body)
}

func extractPart(contentType string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		// untyped bodies are text/plain per RFC 2045
		return readAll(body)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		if mediaType == "text/plain" {
			return readAll(body)
		}
		return "", nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		return readAll(body)
	}

	var text bytes.Buffer
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if text.Len() > 0 {
				return text.String(), nil
			}
			return "", err
		}

		if part.FileName() != "" {
			continue
		}
		s, err := extractPart(part.Header.Get("Content-Type"), part)
		if err != nil {
			continue
		}
		if s != "" {
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(s)
		}
	}
	return text.String(), nil
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
