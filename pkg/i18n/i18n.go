// Package i18n translates error codes and a few interface strings into
// Spanish and English.
//
// Translations live in an embedded TOML catalog and are compiled into a
// golang.org/x/text message catalog. A [Translator] is immutable after
// construction; the language is chosen per call, never stored globally.
//
//	tr := i18n.Default()
//	lang := tr.Match(r.Header.Get("Accept-Language"))
//	msg := tr.Error(lang, err)
package i18n

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	errs "github.com/matzehuels/leafshift/pkg/errors"
)

//go:embed messages.toml
var defaultCatalog []byte

// Supported languages. Spanish is the default.
var (
	Spanish = language.Spanish
	English = language.English
)

var supported = []language.Tag{Spanish, English}

// entry is one catalog message as stored in the TOML file.
type entry struct {
	Key  string `toml:"key"`
	Args int    `toml:"args"`
	ES   string `toml:"es"`
	EN   string `toml:"en"`
}

type catalogFile struct {
	Message []entry `toml:"message"`
}

// Translator formats catalog messages.
type Translator struct {
	printers map[language.Tag]*message.Printer
	args     map[string]int
	matcher  language.Matcher
}

// New builds a translator from a TOML catalog.
func New(data []byte) (*Translator, error) {
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	b := catalog.NewBuilder(catalog.Fallback(Spanish))
	args := make(map[string]int, len(file.Message))
	for _, m := range file.Message {
		if m.Key == "" {
			return nil, errors.New("catalog entry without key")
		}
		if m.ES == "" || m.EN == "" {
			return nil, fmt.Errorf("catalog entry %q: missing translation", m.Key)
		}
		if err := b.SetString(Spanish, m.Key, m.ES); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", m.Key, err)
		}
		if err := b.SetString(English, m.Key, m.EN); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", m.Key, err)
		}
		args[m.Key] = m.Args
	}

	t := &Translator{
		printers: make(map[language.Tag]*message.Printer, len(supported)),
		args:     args,
		matcher:  language.NewMatcher(supported),
	}
	for _, tag := range supported {
		t.printers[tag] = message.NewPrinter(tag, message.Catalog(b))
	}
	return t, nil
}

var (
	defaultOnce sync.Once
	defaultTr   *Translator
)

// Default returns the translator for the embedded catalog.
func Default() *Translator {
	defaultOnce.Do(func() {
		tr, err := New(defaultCatalog)
		if err != nil {
			panic(fmt.Sprintf("i18n: embedded catalog: %v", err))
		}
		defaultTr = tr
	})
	return defaultTr
}

// Match picks the supported language best matching an Accept-Language
// header or a plain tag such as "en". Empty or unparsable input yields Spanish.
func (t *Translator) Match(accept string) language.Tag {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return Spanish
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return Spanish
	}
	_, idx, conf := t.matcher.Match(tags...)
	if conf == language.No {
		return Spanish
	}
	return supported[idx]
}

// Has reports whether key is in the catalog.
func (t *Translator) Has(key string) bool {
	_, ok := t.args[key]
	return ok
}

// Text formats the catalog message key. Unknown keys are returned verbatim.
func (t *Translator) Text(lang language.Tag, key string, args ...any) string {
	n, ok := t.args[key]
	if !ok {
		return key
	}
	if len(args) < n {
		return key
	}
	return t.printer(lang).Sprintf(key, args[:n]...)
}

// Error returns the localized message for err. Errors whose code is not in
// the catalog, or which lack the details the message needs, fall back to
// their own message.
func (t *Translator) Error(lang language.Tag, err error) string {
	if err == nil {
		return ""
	}
	var e *errs.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if msg, ok := t.format(lang, string(e.Code), e.Details); ok {
		return msg
	}
	return e.Message
}

// Warning returns the localized message for w.
func (t *Translator) Warning(lang language.Tag, w errs.Warning) string {
	if msg, ok := t.format(lang, string(w.Code), w.Details); ok {
		return msg
	}
	return w.Message
}

// Warnings localizes a list of warnings.
func (t *Translator) Warnings(lang language.Tag, ws []errs.Warning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = t.Warning(lang, w)
	}
	return out
}

func (t *Translator) format(lang language.Tag, key string, details []any) (string, bool) {
	n, ok := t.args[key]
	if !ok || len(details) < n {
		return "", false
	}
	return t.printer(lang).Sprintf(key, normalize(details[:n])...), true
}

// normalize turns integral float64 details back into ints. Details that went
// through JSON (cached results, history) decode as float64.
func normalize(details []any) []any {
	out := make([]any, len(details))
	for i, d := range details {
		if f, ok := d.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			out[i] = int(f)
			continue
		}
		out[i] = d
	}
	return out
}

func (t *Translator) printer(lang language.Tag) *message.Printer {
	if p, ok := t.printers[lang]; ok {
		return p
	}
	return t.printers[t.Match(lang.String())]
}
