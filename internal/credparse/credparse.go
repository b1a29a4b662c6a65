// Package credparse recognizes login/password/proxy triples in free-form
// supplier text.
package credparse

import (
	"regexp"
	"strings"
)

type Credential struct {
	Login    string
	Password string
	Proxy    string
}

func (c Credential) HasProxy() bool {
	return c.Proxy != ""
}

// Full labels may be followed by plain whitespace, short aliases need a
// colon or an equals sign so that "user pass" stays a generic pair. A label
// starts the line or follows whitespace or a pipe, so words inside a colon
// line ("user:pass:proxy") never read as labels.
const (
	labelBoundary = `(?:^|[\s|])`
	labelValue    = `([^\s|]+)`
)

var (
	loginLabel    = labelPattern([]string{"login", "логин", "username"}, []string{"user", "e-?mail", "почта"})
	passwordLabel = labelPattern([]string{"password", "пароль"}, []string{"pass", "pwd", "пасс"})
	proxyLabel    = labelPattern([]string{"proxy", "прокси"}, nil)

	genericSeparators = strings.NewReplacer("\t", " ", ";", " ", "|", " ", ",", " ")
)

func labelPattern(full, short []string) *regexp.Regexp {
	alternatives := []string{`(?:` + strings.Join(full, "|") + `)\s*[:=\s]\s*`}
	if len(short) > 0 {
		alternatives = append(alternatives, `(?:`+strings.Join(short, "|")+`)\s*[:=]\s*`)
	}
	return regexp.MustCompile(`(?i)` + labelBoundary + `(?:` + strings.Join(alternatives, "|") + `)` + labelValue)
}

// ParseLine applies the labeled, colon and generic forms in that order and
// returns the first one that yields both a login and a password.
func ParseLine(line string) (Credential, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Credential{}, false
	}

	if cred, ok := parseLabeled(line); ok {
		return cred, true
	}
	if cred, ok := parseColon(line); ok {
		return cred, true
	}
	return parseGeneric(line)
}

func parseLabeled(line string) (Credential, bool) {
	login := labelMatch(loginLabel, line)
	password := labelMatch(passwordLabel, line)
	if login == "" || password == "" {
		return Credential{}, false
	}
	return Credential{Login: login, Password: password, Proxy: labelMatch(proxyLabel, line)}, true
}

func labelMatch(pattern *regexp.Regexp, line string) string {
	match := pattern.FindStringSubmatch(line)
	if len(match) < 2 {
		return ""
	}
	return strings.TrimSpace(match[1])
}

func parseColon(line string) (Credential, bool) {
	if !strings.Contains(line, ":") {
		return Credential{}, false
	}

	parts := make([]string, 0, 4)
	for _, part := range strings.Split(line, ":") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) < 2 {
		return Credential{}, false
	}

	cred := Credential{Login: parts[0], Password: parts[1]}
	if len(parts) > 2 {
		// host:port proxies keep their port.
		cred.Proxy = strings.Join(parts[2:], ":")
	}
	return cred, true
}

func parseGeneric(line string) (Credential, bool) {
	tokens := strings.Fields(genericSeparators.Replace(line))
	if len(tokens) < 2 {
		return Credential{}, false
	}

	cred := Credential{Login: tokens[0], Password: tokens[1]}
	if len(tokens) > 2 {
		cred.Proxy = tokens[2]
	}
	return cred, true
}

// ParseSeparated splits a line on one explicit separator, the way owner
// imports are written ("login;password;proxy").
func ParseSeparated(line string, sep string) (Credential, bool) {
	parts := strings.Split(strings.TrimSpace(line), sep)
	if len(parts) < 2 {
		return Credential{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if parts[0] == "" || parts[1] == "" {
		return Credential{}, false
	}

	cred := Credential{Login: parts[0], Password: parts[1]}
	if len(parts) > 2 {
		cred.Proxy = parts[2]
	}
	return cred, true
}

// ParseBlock parses every non-empty line. skipped counts the non-empty
// lines no form could recognize.
func ParseBlock(text string) (creds []Credential, skipped int) {
	return parseLines(text, ParseLine)
}

func ParseSeparatedBlock(text string, sep string) (creds []Credential, skipped int) {
	return parseLines(text, func(line string) (Credential, bool) {
		return ParseSeparated(line, sep)
	})
}

func parseLines(text string, parse func(string) (Credential, bool)) ([]Credential, int) {
	creds := make([]Credential, 0)
	skipped := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cred, ok := parse(line)
		if !ok {
			skipped++
			continue
		}
		creds = append(creds, cred)
	}
	return creds, skipped
}

// Format renders the canonical colon form that ParseLine reads back.
func Format(c Credential) string {
	if c.HasProxy() {
		return c.Login + ":" + c.Password + ":" + c.Proxy
	}
	return c.Login + ":" + c.Password
}
