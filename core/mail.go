package core

import (
	"bytes"
	"embed"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

//go:embed templates/email
var emailFS embed.FS

var (
	templates tmplCache
	tmplErr   error
	tmplInit  sync.Once

	tmplFuncs = map[string]interface{}{
		"fromNow": func(t time.Time) string { return humanize.Time(t) },
		"date":    func(t time.Time) string { return t.Format("2006-01-02") },
	}
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
		// Wait blocks until every message passed to SendMessages is handled
		Wait()
	}
)

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.TemplateData); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if m.TemplateName != "" {
		if err := ParseEmailTemplates(); err != nil {
			return errors.Wrap(err, "loading email templates")
		}
		if _, ok := templates[m.TemplateName]; !ok {
			return errors.Errorf("unknown email template %q", m.TemplateName)
		}
	}
	if err := m.renderText(); err != nil {
		return errors.Wrap(err, "rendering text content")
	}
	return errors.Wrap(m.renderHTML(), "rendering html content")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseEmailTemplates loads every embedded email template, paired with its `_base` layout.
// Parsing happens once; later calls return the first result.
func ParseEmailTemplates() error {
	tmplInit.Do(func() {
		templates, tmplErr = parseEmailTemplates(emailFS, "templates/email")
	})
	return tmplErr
}

func parseEmailTemplates(fsys fs.FS, root string) (tmplCache, error) {
	cache := make(tmplCache)
	fps, err := fs.Glob(fsys, path.Join(root, "*"))
	if err != nil {
		return nil, errors.Wrap(err, "listing email templates")
	}

	for _, fp := range fps {
		fname := path.Base(fp)
		ext := path.Ext(fname)
		if strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		entry, ok := cache[name]
		if !ok {
			cache[name] = make(tmplCacheEntry)
			entry = cache[name]
		}
		if ext == ".txt" {
			tmpl, err := texttmpl.New(fname).Funcs(tmplFuncs).ParseFS(fsys, path.Join(root, "_base.txt"), fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fname)
			}
			entry[ext] = tmpl.Option("missingkey=error")
		} else {
			tmpl, err := htmltmpl.New(fname).Funcs(tmplFuncs).ParseFS(fsys, path.Join(root, "_base.gohtml"), fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fname)
			}
			entry[ext] = tmpl.Option("missingkey=error")
		}
	}
	return cache, nil
}
