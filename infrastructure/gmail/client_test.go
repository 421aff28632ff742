package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"speech-transcriber/domain/notification"

	"google.golang.org/api/gmail/v1"
)

type mockGmailService struct {
	sentMessages []*gmail.Message
	userIDs      []string
	failError    error
}

func (m *mockGmailService) SendMessage(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
	if m.failError != nil {
		return nil, m.failError
	}
	m.userIDs = append(m.userIDs, userID)
	m.sentMessages = append(m.sentMessages, message)
	return &gmail.Message{Id: "test-message-id"}, nil
}

func validRequest() *notification.EmailRequest {
	return &notification.EmailRequest{
		To:           []notification.Recipient{{Name: "John Doe", Address: "john@example.com"}},
		CC:           []notification.Recipient{{Name: "Jane Doe", Address: "jane@example.com"}},
		SourceName:   "lecture.mp4",
		Transcript:   "Welcome to the first lecture.",
		Language:     "en",
		Duration:     185 * time.Second,
		ArtifactURL:  "https://drive.google.com/file/d/abc/view",
		ArtifactName: "lecture.wav",
		CompletedAt:  time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC),
		SenderName:   "Transcriber",
	}
}

func decodeRaw(t *testing.T, msg *gmail.Message) string {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	return string(raw)
}

func TestClient_Send(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(notification.Recipient{Name: "Transcriber", Address: "bot@example.com"}, WithGmailService(mock))

	if err := client.Send(context.Background(), validRequest()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(mock.sentMessages) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(mock.sentMessages))
	}
	if mock.userIDs[0] != "me" {
		t.Errorf("userID = %q, want me", mock.userIDs[0])
	}

	raw := decodeRaw(t, mock.sentMessages[0])
	checks := []string{
		"From: Transcriber <bot@example.com>",
		"To: John Doe <john@example.com>",
		"Cc: Jane Doe <jane@example.com>",
		"Subject: Transcript: lecture.mp4 (12/28/2025)",
		"Dear John,",
		"Welcome to the first lecture.",
		"3m 05s",
		"https://drive.google.com/file/d/abc/view",
		"multipart/alternative",
		"--" + mimeBoundary + "--",
	}
	for _, check := range checks {
		if !strings.Contains(raw, check) {
			t.Errorf("message missing %q in:\n%s", check, raw)
		}
	}
}

func TestClient_Send_NoSpeech(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(notification.Recipient{Address: "bot@example.com"}, WithGmailService(mock))

	req := validRequest()
	req.Transcript = "  "
	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	raw := decodeRaw(t, mock.sentMessages[0])
	if !strings.Contains(raw, "No speech was detected") {
		t.Errorf("message missing no-speech notice:\n%s", raw)
	}
	if !strings.Contains(raw, "From: bot@example.com\r\n") {
		t.Errorf("bare From address not used:\n%s", raw)
	}
}

func TestClient_Send_EncodesNonASCIISubject(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(notification.Recipient{Address: "bot@example.com"}, WithGmailService(mock))

	req := validRequest()
	req.SourceName = "Café talk"
	if err := client.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	raw := decodeRaw(t, mock.sentMessages[0])
	if !strings.Contains(raw, "Subject: =?UTF-8?q?") {
		t.Errorf("subject not Q-encoded:\n%s", raw)
	}
}

func TestClient_Send_ValidationError(t *testing.T) {
	mock := &mockGmailService{}
	client := NewClient(notification.Recipient{Address: "bot@example.com"}, WithGmailService(mock))

	req := validRequest()
	req.To = nil
	err := client.Send(context.Background(), req)
	if !errors.Is(err, notification.ErrNoRecipients) {
		t.Errorf("Send() error = %v, want ErrNoRecipients", err)
	}
	if len(mock.sentMessages) != 0 {
		t.Error("message sent despite validation failure")
	}
}

func TestClient_Send_APIError(t *testing.T) {
	mock := &mockGmailService{failError: errors.New("quota exceeded")}
	client := NewClient(notification.Recipient{Address: "bot@example.com"}, WithGmailService(mock))

	err := client.Send(context.Background(), validRequest())
	if !errors.Is(err, notification.ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}

func TestClient_Send_NoService(t *testing.T) {
	client := NewClient(notification.Recipient{Address: "bot@example.com"})
	err := client.Send(context.Background(), validRequest())
	if !errors.Is(err, notification.ErrSendFailed) {
		t.Errorf("Send() error = %v, want ErrSendFailed", err)
	}
}
