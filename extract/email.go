package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/yhilem/distill/mimetype"
)

// EmailExtractor parses RFC 822 messages: headers become metadata, the
// text body (preferring text/plain over text/html parts) becomes content.
type EmailExtractor struct{}

func (e *EmailExtractor) Name() string { return "email" }

func (e *EmailExtractor) Supports(mime string) bool { return mime == mimetype.EML }

func (e *EmailExtractor) Extract(ctx context.Context, content []byte, mimeType string, cfg *Config) (*Result, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing email: %w", err)
	}

	result := &Result{MimeType: mimeType}
	for _, h := range []string{"Subject", "From", "To", "Date"} {
		if v := msg.Header.Get(h); v != "" {
			result.SetMeta(strings.ToLower(h), v)
		}
	}

	body, err := emailBody(msg)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if subject := msg.Header.Get("Subject"); subject != "" {
		sb.WriteString(subject)
		sb.WriteString("\n\n")
	}
	sb.WriteString(strings.TrimSpace(body))
	result.Content = sb.String()
	return result, nil
}

// emailBody returns the message's best textual body part.
func emailBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		data, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", fmt.Errorf("reading email body: %w", err)
		}
		return string(data), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(msg.Body, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransferEncoding(msg.Body, msg.Header.Get("Content-Transfer-Encoding")))
	if err != nil {
		return "", fmt.Errorf("reading email body: %w", err)
	}
	if mediaType == "text/html" {
		return htmlToPlain(data), nil
	}
	return string(data), nil
}

// multipartBody walks MIME parts preferring text/plain, falling back to
// stripped text/html.
func multipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		data, _ := io.ReadAll(r)
		return string(data), nil
	}

	var plain, html string
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		partType, params, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		body := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
		switch {
		case strings.HasPrefix(partType, "multipart/"):
			if nested, err := multipartBody(body, params["boundary"]); err == nil && plain == "" {
				plain = nested
			}
		case partType == "text/plain" && plain == "":
			data, _ := io.ReadAll(body)
			plain = string(data)
		case partType == "text/html" && html == "":
			data, _ := io.ReadAll(body)
			html = htmlToPlain(data)
		}
	}
	if plain != "" {
		return plain, nil
	}
	return html, nil
}

func decodeTransferEncoding(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// htmlToPlain strips tags from an HTML body part. Full HTML handling
// belongs to HTMLExtractor; email parts only need readable text.
func htmlToPlain(data []byte) string {
	var sb strings.Builder
	inTag := false
	for _, r := range string(data) {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteByte(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
