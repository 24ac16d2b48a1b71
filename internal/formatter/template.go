package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/genrefy/internal/shared"
)

const (
	GenreToken    = "{genre}"
	UsernameToken = "{username}"
	DateToken     = "{date}"
	YearToken     = "{year}"

	footerSeparator = " • "
)

// Bindings are the values substituted into a naming template.
type Bindings struct {
	Genre    string
	Username string
	Date     time.Time
}

// Render substitutes every recognized token in template. Unrecognized tokens are left verbatim.
func Render(template string, b Bindings) string {
	date, year := "", ""
	if !b.Date.IsZero() {
		date = b.Date.Format("2006-01-02")
		year = b.Date.Format("2006")
	}

	r := strings.NewReplacer(
		GenreToken, b.Genre,
		UsernameToken, b.Username,
		DateToken, date,
		YearToken, year,
	)
	return r.Replace(template)
}

// ValidateNameTemplate rejects playlist name templates that cannot tell genres apart.
func ValidateNameTemplate(template string) error {
	if strings.TrimSpace(template) == "" {
		return fmt.Errorf("%w: name template is empty", shared.ErrInvalidTemplate)
	}
	if !strings.Contains(template, GenreToken) {
		return fmt.Errorf("%w: missing %s", shared.ErrInvalidTemplate, GenreToken)
	}
	return nil
}

// Decorator post-processes a rendered string.
type Decorator func(string) string

// FreeTierFooter appends footer to descriptions of non-premium accounts.
func FreeTierFooter(footer string, premium bool) Decorator {
	return func(s string) string {
		if premium || footer == "" || strings.HasSuffix(s, footer) {
			return s
		}
		if s == "" {
			return footer
		}
		return s + footerSeparator + footer
	}
}

// Namer renders playlist names and descriptions for one account.
type Namer struct {
	NameTemplate        string
	DescriptionTemplate string
	Username            string
	Decorators          []Decorator
}

// Name renders the playlist name for genre.
func (n Namer) Name(genre string, at time.Time) string {
	return Render(n.NameTemplate, Bindings{Genre: genre, Username: n.Username, Date: at})
}

// Description renders the description for genre and applies every decorator in order.
func (n Namer) Description(genre string, at time.Time) string {
	return n.Decorate(Render(n.DescriptionTemplate, Bindings{Genre: genre, Username: n.Username, Date: at}))
}

// Decorate applies the decorators to an already rendered description.
func (n Namer) Decorate(s string) string {
	for _, d := range n.Decorators {
		s = d(s)
	}
	return s
}
