package provider

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
)

// composeRaw assembles a full RFC 5322 message for SendRaw: a
// multipart/mixed outer part when there are non-inline attachments, a
// multipart/related inner part when there are inline images, wrapping
// a multipart/alternative innermost part carrying the text and HTML
// bodies (SPEC_FULL.md §4.4 step 6).
func composeRaw(req Request) ([]byte, error) {
	var buf bytes.Buffer

	altBuf, altBoundary, err := buildAlternative(req.TextBody, req.HTMLBody)
	if err != nil {
		return nil, fmt.Errorf("build alternative part: %w", err)
	}

	body := altBuf
	contentType := fmt.Sprintf("multipart/alternative; boundary=%q", altBoundary)

	if len(req.InlineItems) > 0 {
		relatedBuf, relatedBoundary, err := buildRelated(body, contentType, req.InlineItems)
		if err != nil {
			return nil, fmt.Errorf("build related part: %w", err)
		}
		body = relatedBuf
		contentType = fmt.Sprintf("multipart/related; boundary=%q", relatedBoundary)
	}

	if len(req.Attachments) > 0 {
		mixedBuf, mixedBoundary, err := buildMixed(body, contentType, req.Attachments)
		if err != nil {
			return nil, fmt.Errorf("build mixed part: %w", err)
		}
		body = mixedBuf
		contentType = fmt.Sprintf("multipart/mixed; boundary=%q", mixedBoundary)
	}

	writeHeaders(&buf, req, contentType)
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

func writeHeaders(buf *bytes.Buffer, req Request, contentType string) {
	fmt.Fprintf(buf, "From: %s\r\n", req.FromAddress)
	if req.To != "" {
		fmt.Fprintf(buf, "To: %s\r\n", req.To)
	}
	if req.Cc != "" {
		fmt.Fprintf(buf, "Cc: %s\r\n", req.Cc)
	}
	if req.Bcc != "" {
		fmt.Fprintf(buf, "Bcc: %s\r\n", req.Bcc)
	}
	fmt.Fprintf(buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", req.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: %s\r\n\r\n", contentType)
}

func buildAlternative(text, html string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if text != "" {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"text/plain; charset=UTF-8"},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, "", err
		}
		qp := quotedprintable.NewWriter(part)
		qp.Write([]byte(text))
		qp.Close()
	}

	part, err := w.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, "", err
	}
	qp := quotedprintable.NewWriter(part)
	qp.Write([]byte(html))
	qp.Close()

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.Boundary(), nil
}

func buildRelated(inner *bytes.Buffer, innerContentType string, images []InlineContent) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {innerContentType}})
	if err != nil {
		return nil, "", err
	}
	part.Write(inner.Bytes())

	for _, img := range images {
		if err := writeAttachmentPart(w, textproto.MIMEHeader{
			"Content-Type":              {img.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-ID":                {fmt.Sprintf("<%s>", img.ContentID)},
			"Content-Disposition":       {"inline"},
		}, img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.Boundary(), nil
}

func buildMixed(inner *bytes.Buffer, innerContentType string, attachments []AttachmentContent) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {innerContentType}})
	if err != nil {
		return nil, "", err
	}
	part.Write(inner.Bytes())

	for _, att := range attachments {
		disposition := fmt.Sprintf("attachment; filename=%q", att.Filename)
		if err := writeAttachmentPart(w, textproto.MIMEHeader{
			"Content-Type":              {att.ContentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {disposition},
		}, att.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.Boundary(), nil
}

func writeAttachmentPart(w *multipart.Writer, header textproto.MIMEHeader, data []byte) error {
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		part.Write([]byte(encoded[i:end]))
		part.Write([]byte("\r\n"))
	}
	return nil
}
