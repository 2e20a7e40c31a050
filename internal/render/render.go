// Package render builds the notification email for a video.
package render

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/notifyhub/tubealert/internal/domain"
)

// Data is everything the email template needs for one subscriber.
type Data struct {
	Video        domain.VideoEvent
	Summary      domain.Summary
	ShowUpgrade  bool
	DashboardURL string
}

type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Video.Title}}</title>
<style>body{font-family:Arial,sans-serif;color:#1a1a1a}.points li{margin-bottom:6px}.upgrade{background:#fff4e5;padding:12px}</style>
</head>
<body>
<h1>{{.Video.Title}}</h1>
{{if .Video.AuthorName}}<p class="author">New from {{.Video.AuthorName}}</p>{{end}}
<p><a href="{{.VideoURL}}"><img src="{{.ThumbnailURL}}" alt="{{.Video.Title}}" width="480"></a></p>
<h2>Summary</h2>
<p>{{.Summary.BriefSummary}}</p>
{{if .Summary.KeyPoints}}<h2>Key points</h2>
<ul class="points">{{range .Summary.KeyPoints}}
<li>{{.}}</li>{{end}}
</ul>{{end}}
<p><a class="button" href="{{.VideoURL}}">Watch on YouTube</a></p>
{{if .ShowUpgrade}}<div class="upgrade">
<p>Get summaries for every channel you follow with TubeAlert Pro.</p>
<p><a href="{{.UpgradeURL}}">Upgrade your plan</a></p>
</div>{{end}}
<p class="footer"><a href="{{.ManageURL}}">Manage your alerts</a></p>
</body>
</html>
`))

type view struct {
	Data
	VideoURL     string
	ThumbnailURL string
	UpgradeURL   string
	ManageURL    string
}

// Render produces the subject, HTML body and plain-text fallback. It is
// pure: the same Data always yields the same output.
func Render(d Data) (*Rendered, error) {
	base := strings.TrimRight(d.DashboardURL, "/")
	v := view{
		Data:         d,
		VideoURL:     d.Video.URL(),
		ThumbnailURL: d.Video.ThumbnailURL(),
		UpgradeURL:   base + "/pricing",
		ManageURL:    base + "/dashboard",
	}

	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("execute email template: %w", err)
	}

	text, err := PlainText(buf.String())
	if err != nil {
		return nil, err
	}

	return &Rendered{
		Subject: Subject(d.Video),
		HTML:    buf.String(),
		Text:    text,
	}, nil
}

func Subject(v domain.VideoEvent) string {
	if v.AuthorName == "" {
		return "New video: " + v.Title
	}
	return fmt.Sprintf("New video from %s: %s", v.AuthorName, v.Title)
}

// PlainText strips markup from an email body. Block elements become line
// breaks, list items get a dash and links keep their target in parentheses.
func PlainText(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("head, style, script").Remove()
	doc.Find("img").Remove()
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href != "" && strings.TrimSpace(s.Text()) != "" {
			s.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("- ")
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, tr, ul").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
