package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageWithAttachment(t *testing.T) {
	msg := Message{
		From:    "society@example.com",
		To:      "jane@example.com",
		Subject: "Receipt RCT-1",
		HTML:    "<p>Hello</p>",
		Attachments: []Attachment{
			{Filename: "receipt-RCT-1.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3 fake")},
		},
	}
	raw, err := msg.Bytes()
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", parsed.Header.Get("To"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	r := multipart.NewReader(parsed.Body, params["boundary"])
	htmlPart, err := r.NextPart()
	require.NoError(t, err)
	assert.Contains(t, htmlPart.Header.Get("Content-Type"), "text/html")

	pdfPart, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "receipt-RCT-1.pdf", pdfPart.FileName())
	encoded, err := io.ReadAll(pdfPart)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3 fake", string(decoded))
}

func TestMessageRejectsHeaderInjection(t *testing.T) {
	_, err := Message{To: "a@example.com\r\nBcc: evil@example.com"}.Bytes()
	assert.Error(t, err)

	_, err = Message{}.Bytes()
	assert.Error(t, err)
}

func TestSMTPMailerSend(t *testing.T) {
	m := NewSMTPMailer(Config{Host: "smtp.example.com", Port: "2525", Sender: "society@example.com", Username: "u", Password: "p"})
	var gotAddr string
	var gotTo []string
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		assert.NotNil(t, a)
		assert.Equal(t, "society@example.com", from)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), Message{To: "jane@example.com", Subject: "Hi", HTML: "<p>x</p>"}))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)

	unconfigured := NewSMTPMailer(Config{})
	assert.Error(t, unconfigured.Send(context.Background(), Message{To: "jane@example.com"}))
}

func TestRenderReceiptTemplate(t *testing.T) {
	out, err := Render("receipt", ReceiptEmail{
		SocietyName:   "ABC Housing Society",
		OwnerName:     "Jane Doe",
		ReceiptNumber: "RCT-1710000000000-00000001",
		FlatNumber:    "A-101",
		Month:         "March 2024",
		Amount:        "5000.00",
		PaidAt:        "05/03/2024",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Dear Jane Doe")
	assert.Contains(t, out, "RCT-1710000000000-00000001")
	assert.Contains(t, out, "Rs. 5000.00")
	assert.NotContains(t, out, "Transaction")
}
