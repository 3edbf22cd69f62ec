package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dragomanhq/dragoman/pkg/langtag"
	"github.com/dragomanhq/dragoman/pkg/translate"
)

// Activity is the message envelope exchanged with the bot endpoint.
type Activity struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	CallID   string `json:"callId,omitempty"`
	Language string `json:"language,omitempty"`
}

func (g *Gateway) reply(ctx context.Context, act Activity) string {
	text := strings.TrimSpace(act.Text)
	switch {
	case text == "":
		return g.greeting()
	case strings.HasPrefix(text, "/"):
		return g.command(act, text)
	default:
		return g.echoTranslate(ctx, act, text)
	}
}

func (g *Gateway) greeting() string {
	return fmt.Sprintf("Hello! I'm the %s. I can help translate conversations in calls between English, Russian, and Spanish. Type /help for commands.", g.cfg.BotName)
}

func (g *Gateway) command(act Activity, text string) string {
	fields := strings.Fields(text)
	switch fields[0] {
	case "/help":
		return g.helpText()
	case "/language":
		return g.languageCommand(act, fields[1:])
	case "/status":
		return g.statusCommand(act)
	default:
		return fmt.Sprintf("Unknown command: %s\nType /help for available commands.", fields[0])
	}
}

func (g *Gateway) helpText() string {
	return "Available commands:\n" +
		fmt.Sprintf("/language <source> <target> - Set call languages (%s)\n", g.supportedList()) +
		"/status - Check bot status\n" +
		"/help - Show this help message\n"
}

func (g *Gateway) languageCommand(act Activity, args []string) string {
	usage := fmt.Sprintf("Usage: /language <source> <target>\nSupported codes: %s", g.supportedList())
	if len(args) == 0 {
		if sess, ok := g.ctl.Session(act.CallID); ok {
			source, target := sess.Languages()
			return fmt.Sprintf("Current languages for call %s: %s -> %s\n%s", act.CallID, source, target, usage)
		}
		return usage
	}
	if len(args) != 2 {
		return usage
	}
	source, ok := g.supportedTag(args[0])
	if !ok {
		return fmt.Sprintf("Unsupported language code: %s\nSupported codes: %s", args[0], g.supportedList())
	}
	target, ok := g.supportedTag(args[1])
	if !ok {
		return fmt.Sprintf("Unsupported language code: %s\nSupported codes: %s", args[1], g.supportedList())
	}
	if act.CallID == "" {
		return "Add a callId to the message to pick which call to update."
	}
	if err := g.ctl.SetSessionLanguages(act.CallID, source, target); err != nil {
		return fmt.Sprintf("No active call %s.", act.CallID)
	}
	return fmt.Sprintf("Languages for call %s set to %s -> %s.", act.CallID, source, target)
}

func (g *Gateway) statusCommand(act Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bot status: Active\nActive calls: %d\nSupported languages: %s", g.ctl.ActiveCalls(), g.supportedList())
	if sess, ok := g.ctl.Session(act.CallID); ok {
		source, target := sess.Languages()
		fmt.Fprintf(&b, "\nCall %s: %s -> %s (%s)", act.CallID, source, target, sess.Status())
	}
	return b.String()
}

// echoTranslate renders a plain message into every other supported language,
// all attempts sharing one deadline.
func (g *Gateway) echoTranslate(ctx context.Context, act Activity, text string) string {
	if g.translator == nil {
		return "Translation is not available right now."
	}
	source := act.Language
	if source == "" {
		source = g.cfg.MessageLanguage
	}
	deadline := time.Now().Add(g.cfg.MessageBudget)

	var b strings.Builder
	fmt.Fprintf(&b, "Your message: %s\n\nTranslations:\n", text)
	for _, target := range g.cfg.SupportedLanguages {
		if langtag.Same(source, target) {
			continue
		}
		res := g.translator.Translate(ctx, translate.Request{
			Text:     text,
			Source:   source,
			Target:   target,
			CallID:   act.CallID,
			CycleID:  uuid.NewString(),
			Deadline: deadline,
		})
		fmt.Fprintf(&b, "\n%s: %s", target, res.TranslatedText)
	}
	return b.String()
}

func (g *Gateway) supportedList() string {
	return strings.Join(g.cfg.SupportedLanguages, ", ")
}

func (g *Gateway) supportedTag(code string) (string, bool) {
	for _, s := range g.cfg.SupportedLanguages {
		if strings.EqualFold(s, code) {
			return s, true
		}
	}
	return "", false
}
