package prompts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMissingArgument is returned when a required argument has no value and no default.
var ErrMissingArgument = errors.New("missing required argument")

const (
	elseTag  = "{else}"
	endifTag = "{endif}"

	// maxConditionals bounds conditional expansion for malformed templates.
	maxConditionals = 1000
)

var (
	ifTagPattern       = regexp.MustCompile(`\{if\s+(\w+)\}`)
	placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)
	blankLinesPattern  = regexp.MustCompile(`\n{3,}`)
)

// Render fills the template. Values come from args, then argument defaults.
// Conditionals are resolved first (a value is truthy when non-empty) and
// {name} placeholders are substituted afterwards in a single pass, so
// substituted text is never interpreted as template syntax. Unknown
// placeholders are left untouched.
func (p *Prompt) Render(args map[string]string) (string, error) {
	values := make(map[string]string, len(args)+len(p.Arguments))
	for k, v := range args {
		values[k] = v
	}

	for _, arg := range p.Arguments {
		if _, ok := values[arg.Name]; ok {
			continue
		}
		if arg.HasDefault() {
			values[arg.Name] = arg.DefaultString()
			continue
		}
		if arg.Required {
			return "", fmt.Errorf("%w: %s", ErrMissingArgument, arg.Name)
		}
	}

	text := resolveConditionals(p.Template, values)

	text = placeholderPattern.ReplaceAllStringFunc(text, func(tag string) string {
		if value, ok := values[tag[1:len(tag)-1]]; ok {
			return value
		}
		return tag
	})

	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}

// resolveConditionals expands {if name}...{else}...{endif} blocks innermost
// first so nested blocks work. An {if} without a matching {endif} is left as is.
func resolveConditionals(text string, values map[string]string) string {
	for i := 0; i < maxConditionals; i++ {
		matches := ifTagPattern.FindAllStringSubmatchIndex(text, -1)
		if len(matches) == 0 {
			return text
		}

		// The last opening tag that has an {endif} after it is innermost.
		expanded := false
		for m := len(matches) - 1; m >= 0; m-- {
			start, headerEnd := matches[m][0], matches[m][1]
			name := text[matches[m][2]:matches[m][3]]

			endRel := strings.Index(text[headerEnd:], endifTag)
			if endRel < 0 {
				continue
			}
			bodyEnd := headerEnd + endRel
			body := text[headerEnd:bodyEnd]

			thenPart, elsePart := body, ""
			if idx := strings.Index(body, elseTag); idx >= 0 {
				thenPart, elsePart = body[:idx], body[idx+len(elseTag):]
			}

			chosen := elsePart
			if values[name] != "" {
				chosen = thenPart
			}

			text = text[:start] + chosen + text[bodyEnd+len(endifTag):]
			expanded = true
			break
		}

		if !expanded {
			return text
		}
	}
	return text
}
