// Package vigency extracts publication and in-force dates from legal text.
// Every rule needs an explicit textual trigger; a missing signal yields
// status "desconhecido" rather than a guessed date, since a wrong date is
// worse than an unknown one for compliance state.
package vigency

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/normabase/normabase/engine/legal"
)

var monthNumbers = map[string]time.Month{
	"janeiro": time.January, "fevereiro": time.February,
	"março": time.March, "marco": time.March, "abril": time.April,
	"maio": time.May, "junho": time.June, "julho": time.July,
	"agosto": time.August, "setembro": time.September,
	"outubro": time.October, "novembro": time.November,
	"dezembro": time.December,
}

var (
	rePublishedNumeric  = regexp.MustCompile(`(?i)publicad[ao]\s+(?:no\s+(?:DOU|Di[aá]rio\s+Oficial)\s+(?:da\s+Uni[aã]o\s+)?)?(?:de|em)\s+(\d{1,2})[/.](\d{1,2})[/.](\d{4})`)
	rePublishedLonghand = regexp.MustCompile(`(?i)(?:DOU|Di[aá]rio\s+Oficial)\s+(?:da\s+Uni[aã]o\s+)?de\s+(\d{1,2})\s+de\s+(\p{L}+)\s+de\s+(\d{4})`)

	reVigorOnPublication = regexp.MustCompile(`(?i)entra(?:rá)?\s+em\s+vigor\s+na\s+data\s+de\s+sua\s+publica[çc][ãa]o`)
	reVigorAfterDays     = regexp.MustCompile(`(?i)entra(?:rá)?\s+em\s+vigor\s+(?:ap[oó]s|decorridos)\s+(\d+)\s+dias?`)
	reVigorLonghandDate  = regexp.MustCompile(`(?i)entra(?:rá)?\s+em\s+vigor\s+(?:em|a\s+partir\s+de)\s+(\d{1,2})[ºo]?\s+de\s+(\p{L}+)\s+de\s+(\d{4})`)
	reEffectsFrom        = regexp.MustCompile(`(?i)produz(?:irá|em)?\s+efeitos\s+a\s+partir\s+de\s+(\d{1,2})[/.](\d{1,2})[/.](\d{4})`)
)

// vigorRule produces effective_from given the match groups and the already
// extracted publication date. Rules run in order; the first match wins even
// when its own date cannot be computed.
type vigorRule struct {
	name string
	re   *regexp.Regexp
	from func(groups []string, publishedAt *time.Time) *time.Time
}

var vigorRules = []vigorRule{
	{
		name: "vigor_publicacao",
		re:   reVigorOnPublication,
		from: func(_ []string, publishedAt *time.Time) *time.Time { return publishedAt },
	},
	{
		name: "vigor_dias",
		re:   reVigorAfterDays,
		from: func(groups []string, publishedAt *time.Time) *time.Time {
			if publishedAt == nil {
				return nil
			}
			days, err := strconv.Atoi(groups[1])
			if err != nil {
				return nil
			}
			d := publishedAt.AddDate(0, 0, days)
			return &d
		},
	},
	{
		name: "vigor_data_extenso",
		re:   reVigorLonghandDate,
		from: func(groups []string, _ *time.Time) *time.Time {
			return parseLonghandDate(groups[1], groups[2], groups[3])
		},
	},
	{
		name: "produz_efeitos",
		re:   reEffectsFrom,
		from: func(groups []string, _ *time.Time) *time.Time {
			return parseNumericDate(groups[1], groups[2], groups[3])
		},
	},
}

// ExtractEffectiveDates scans text for publication and vigency signals.
// status is "vigente" only when a rule produced a concrete effective date.
func ExtractEffectiveDates(text, docID string) legal.EffectiveDateResult {
	result := legal.EffectiveDateResult{StatusVigencia: legal.VigencyUnknown}
	if text == "" {
		return result
	}

	if m := rePublishedNumeric.FindStringSubmatch(text); m != nil {
		result.PublishedAt = parseNumericDate(m[1], m[2], m[3])
	}
	if result.PublishedAt == nil {
		if m := rePublishedLonghand.FindStringSubmatch(text); m != nil {
			result.PublishedAt = parseLonghandDate(m[1], m[2], m[3])
		}
	}

	for _, rule := range vigorRules {
		loc := rule.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = text[loc[2*i]:loc[2*i+1]]
			}
		}
		result.VigorPattern = rule.name
		result.VigorEvidence = contextAround(text, loc[0], loc[1])
		result.EffectiveFrom = rule.from(groups, result.PublishedAt)
		if result.EffectiveFrom != nil {
			result.StatusVigencia = legal.VigencyInForce
		}
		break
	}
	return result
}

func parseNumericDate(day, month, year string) *time.Time {
	d, errD := strconv.Atoi(day)
	m, errM := strconv.Atoi(month)
	y, errY := strconv.Atoi(year)
	if errD != nil || errM != nil || errY != nil {
		return nil
	}
	return validDate(y, time.Month(m), d)
}

func parseLonghandDate(day, monthName, year string) *time.Time {
	month, ok := monthNumbers[strings.ToLower(monthName)]
	if !ok {
		return nil
	}
	d, errD := strconv.Atoi(day)
	y, errY := strconv.Atoi(year)
	if errD != nil || errY != nil {
		return nil
	}
	return validDate(y, month, d)
}

// validDate rejects day/month combinations time.Date would silently
// normalize (e.g. 31/02 becoming 03/03).
func validDate(year int, month time.Month, day int) *time.Time {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return nil
	}
	return &t
}

func contextAround(text string, start, end int) string {
	s := start - 20
	if s < 0 {
		s = 0
	}
	e := end + 20
	if e > len(text) {
		e = len(text)
	}
	for s > 0 && !utf8.RuneStart(text[s]) {
		s--
	}
	for e < len(text) && !utf8.RuneStart(text[e]) {
		e++
	}
	return strings.TrimSpace(text[s:e])
}
