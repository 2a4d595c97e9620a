package notification

import (
	"strings"
	"testing"

	"tribe-notify.io/notify/internal/domain"
)

func TestRendererCatalogCoversAllChannels(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	data := RenderData{
		RecipientName: "Nana",
		Content: UpdateContent{
			ChildName:  "Maya",
			SenderName: "Alex",
			Subject:    "First steps",
			Body:       "Maya took her first steps today!",
			MediaCount: 2,
		},
	}

	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelWhatsApp} {
		for _, typ := range []domain.NotificationType{domain.TypeImmediate, domain.TypeDigest, domain.TypeMilestone} {
			subject, body, err := r.Render(ch, typ, data)
			if err != nil {
				t.Fatalf("Render(%s, %s): %v", ch, typ, err)
			}
			if body == "" {
				t.Errorf("Render(%s, %s) produced empty body", ch, typ)
			}
			if ch == domain.ChannelEmail && subject == "" {
				t.Errorf("Render(email, %s) produced empty subject", typ)
			}
			if ch != domain.ChannelEmail && subject != "" {
				t.Errorf("Render(%s, %s) produced subject %q for subjectless channel", ch, typ, subject)
			}
		}
	}
}

func TestRendererSubstitutesContent(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	subject, body, err := r.Render(domain.ChannelEmail, domain.TypeImmediate, RenderData{
		RecipientName: "Nana",
		Content:       UpdateContent{ChildName: "Maya", SenderName: "Alex", Body: "Hello!", MediaCount: 1},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(subject, "Maya") {
		t.Errorf("subject %q missing child name", subject)
	}
	for _, want := range []string{"Nana", "Alex", "Hello!", "1 photo"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRendererUnknownTypeFallsBack(t *testing.T) {
	t.Parallel()

	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	_, body, err := r.Render(domain.ChannelSMS, domain.NotificationType("reminder"), RenderData{
		Content: UpdateContent{ChildName: "Maya", SenderName: "Alex", Body: "Hi"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if body == "" {
		t.Error("fallback produced empty body")
	}
}
