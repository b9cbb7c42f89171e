package smtp

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/cjfitness/notifier/internal/domain/dto"
)

const layoutHTML = `{{define "layout"}}<div style="font-family: Helvetica, Arial, sans-serif; max-width: 600px; margin: 0 auto; background-color: #141414; color: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #333;">
  <div style="background-color: #ffc105; padding: 20px; text-align: center;">
    <h1 style="color: #111111; margin: 0; font-size: 24px; font-weight: 900;">{{.Brand}}</h1>
  </div>
  <div style="padding: 30px;">
    <h2 style="color: #ffc105; margin-top: 0; font-size: 20px;">{{.Title}}</h2>
    <div style="line-height: 1.6; color: #dddddd; font-size: 16px;">{{template "content" .}}</div>
  </div>
  <div style="padding: 20px; text-align: center; border-top: 1px solid #333; background-color: #1a1a1a; font-size: 12px; color: #888888;">
    This is an automated message from {{.Brand}}. Please do not reply to this email.
    {{if .PortalURL}}<br/><br/><a href="{{.PortalURL}}" style="color: #ffc105; text-decoration: none; font-weight: bold;">Open Client Portal</a>{{end}}
  </div>
</div>{{end}}`

const reminderHTML = `{{define "content"}}<p>Hi {{.Name}},</p>
<p>Your coach set a reminder for you:</p>
<div style="background-color: #222; padding: 15px; border-left: 4px solid #ffc105; margin: 20px 0; font-weight: 500; font-size: 18px;">"{{.Text}}"</div>
<p>Don't forget to mark it as read in your dashboard!</p>{{end}}`

const checkInHTML = `{{define "content"}}<p>Good morning {{.Name}}!</p>
<p>{{.Text}}</p>
<p>Please log in to your portal and submit your updated measurements, weight, and photos.</p>
{{if .CheckInURL}}<div style="text-align: center; margin: 30px 0;"><a href="{{.CheckInURL}}" style="background-color: #ffc105; color: #111; padding: 14px 28px; text-decoration: none; font-weight: bold; border-radius: 8px; display: inline-block;">Submit Check-in</a></div>{{end}}
<p>Let's crush this week!</p>{{end}}`

type templateData struct {
	Brand      string
	Title      string
	Name       string
	Text       string
	PortalURL  string
	CheckInURL string
}

type templates struct {
	byKind map[dto.MessageKind]*template.Template
	titles map[dto.MessageKind]string
}

func newTemplates() (*templates, error) {
	base, err := template.New("layout").Parse(layoutHTML)
	if err != nil {
		return nil, err
	}

	t := &templates{
		byKind: make(map[dto.MessageKind]*template.Template),
		titles: map[dto.MessageKind]string{
			dto.MessageKindReminder: "You have a new Alarm!",
			dto.MessageKindCheckIn:  "Happy Monday!",
		},
	}
	for kind, content := range map[dto.MessageKind]string{
		dto.MessageKindReminder: reminderHTML,
		dto.MessageKindCheckIn:  checkInHTML,
	} {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err = clone.Parse(content); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		t.byKind[kind] = clone
	}
	return t, nil
}

func (t *templates) render(kind dto.MessageKind, data templateData) (string, error) {
	tmpl, ok := t.byKind[kind]
	if !ok {
		return "", fmt.Errorf("no template for message kind %q", kind)
	}
	data.Title = t.titles[kind]

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
