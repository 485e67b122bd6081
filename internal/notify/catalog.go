package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/phrazzld/sprout-api/internal/domain"
)

// PushRoute is the app screen a reminder push opens.
const PushRoute = "Home"

type entry struct {
	title   string
	subject string
	body    *template.Template
}

type texts struct {
	title   string
	subject string
	body    string
}

// Reminder texts per language and kind. Count is the number of pending tasks.
var catalogTexts = map[string]map[domain.NotificationKind]texts{
	"en": {
		domain.NotificationKindDueToday: {
			title:   "Plant tasks",
			subject: "Your plants need attention today",
			body:    "You have {{.Count}} task(s) due today.",
		},
		domain.NotificationKindOverdue1D: {
			title:   "Plant tasks",
			subject: "You have overdue plant tasks",
			body:    "You have {{.Count}} task(s) overdue since yesterday.",
		},
	},
	"pl": {
		domain.NotificationKindDueToday: {
			title:   "Zadania roślin",
			subject: "Twoje rośliny potrzebują dziś uwagi",
			body:    "Liczba zadań na dziś: {{.Count}}.",
		},
		domain.NotificationKindOverdue1D: {
			title:   "Zadania roślin",
			subject: "Masz zaległe zadania przy roślinach",
			body:    "Liczba zadań zaległych od wczoraj: {{.Count}}.",
		},
	},
}

// Catalog renders localized reminder texts.
// Unknown languages fall back to domain.DefaultLanguage.
type Catalog struct {
	entries map[string]map[domain.NotificationKind]entry
}

// NewCatalog parses the built-in reminder templates.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]map[domain.NotificationKind]entry, len(catalogTexts))}
	for lang, kinds := range catalogTexts {
		c.entries[lang] = make(map[domain.NotificationKind]entry, len(kinds))
		for kind, t := range kinds {
			name := lang + "." + string(kind)
			c.entries[lang][kind] = entry{
				title:   t.title,
				subject: t.subject,
				body:    template.Must(template.New(name).Option("missingkey=error").Parse(t.body)),
			}
		}
	}
	return c
}

func (c *Catalog) lookup(lang string, kind domain.NotificationKind) (entry, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	kinds, ok := c.entries[lang]
	if !ok {
		kinds = c.entries[domain.DefaultLanguage]
	}
	e, ok := kinds[kind]
	if !ok {
		return entry{}, fmt.Errorf("%w: %q", domain.ErrInvalidNotificationKind, kind)
	}
	return e, nil
}

func (c *Catalog) render(e entry, count int) (string, error) {
	var buf bytes.Buffer
	if err := e.body.Execute(&buf, struct{ Count int }{Count: count}); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", e.body.Name(), err)
	}
	return buf.String(), nil
}

// Email renders the reminder email for a recipient.
func (c *Catalog) Email(
	recipient *domain.Recipient,
	kind domain.NotificationKind,
	count int,
) (EmailMessage, error) {
	e, err := c.lookup(recipient.Language, kind)
	if err != nil {
		return EmailMessage{}, err
	}
	body, err := c.render(e, count)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{To: recipient.Email, Subject: e.subject, Body: body}, nil
}

// Push renders the reminder push payload. The data map tells the app which
// reminder arrived and where to navigate.
func (c *Catalog) Push(lang string, kind domain.NotificationKind, count int) (PushMessage, error) {
	e, err := c.lookup(lang, kind)
	if err != nil {
		return PushMessage{}, err
	}
	body, err := c.render(e, count)
	if err != nil {
		return PushMessage{}, err
	}
	return PushMessage{
		Title: e.title,
		Body:  body,
		Data: map[string]string{
			"kind":  string(kind),
			"route": PushRoute,
		},
	}, nil
}
