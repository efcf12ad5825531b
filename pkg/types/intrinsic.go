package types

import (
	"fmt"
	"regexp"
	"strings"
)

// Template values are kept untyped (they come straight out of JSON). These
// helpers read and build the handful of intrinsic functions the legacy
// templates use.

// Literal returns v when it is a plain string.
func Literal(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// Ref returns the target of {"Ref": id}.
func Ref(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", false
	}
	id, ok := m["Ref"].(string)
	return id, ok
}

// GetAtt returns the target of {"Fn::GetAtt": [id, attr]} or the dotted
// string form.
func GetAtt(v any) (string, string, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", "", false
	}
	switch att := m["Fn::GetAtt"].(type) {
	case []any:
		if len(att) != 2 {
			return "", "", false
		}
		id, iok := att[0].(string)
		name, nok := att[1].(string)
		return id, name, iok && nok
	case []string:
		if len(att) != 2 {
			return "", "", false
		}
		return att[0], att[1], true
	case string:
		id, name, found := strings.Cut(att, ".")
		return id, name, found
	}
	return "", "", false
}

// RefersTo reports whether v is a Ref or GetAtt pointing at logicalID.
func RefersTo(v any, logicalID string) bool {
	if id, ok := Ref(v); ok {
		return id == logicalID
	}
	if id, _, ok := GetAtt(v); ok {
		return id == logicalID
	}
	return false
}

func NewRef(logicalID string) map[string]any {
	return map[string]any{"Ref": logicalID}
}

func NewGetAtt(logicalID, attribute string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{logicalID, attribute}}
}

// Pseudo holds pseudo parameter values used by Render.
type Pseudo map[string]string

func NewPseudo(accountID, region, partition string) Pseudo {
	suffix := "amazonaws.com"
	if strings.HasPrefix(partition, "aws-cn") {
		suffix = "amazonaws.com.cn"
	}
	return Pseudo{
		"AWS::AccountId": accountID,
		"AWS::Region":    region,
		"AWS::Partition": partition,
		"AWS::URLSuffix": suffix,
	}
}

var subPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Render resolves v to a string when it is built only from literals, pseudo
// parameter refs, Fn::Join and Fn::Sub.
func Render(v any, pseudo Pseudo) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case map[string]any:
		if len(val) != 1 {
			return "", false
		}
		if id, ok := Ref(val); ok {
			s, found := pseudo[id]
			return s, found
		}
		if join, ok := val["Fn::Join"].([]any); ok {
			return renderJoin(join, pseudo)
		}
		if sub, ok := val["Fn::Sub"]; ok {
			return renderSub(sub, pseudo)
		}
	}
	return "", false
}

func renderJoin(join []any, pseudo Pseudo) (string, bool) {
	if len(join) != 2 {
		return "", false
	}
	sep, ok := join[0].(string)
	if !ok {
		return "", false
	}
	parts, ok := join[1].([]any)
	if !ok {
		return "", false
	}
	rendered := make([]string, 0, len(parts))
	for _, p := range parts {
		s, ok := Render(p, pseudo)
		if !ok {
			return "", false
		}
		rendered = append(rendered, s)
	}
	return strings.Join(rendered, sep), true
}

func renderSub(sub any, pseudo Pseudo) (string, bool) {
	tmpl, ok := sub.(string)
	if !ok {
		return "", false
	}
	complete := true
	out := subPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := subPattern.FindStringSubmatch(m)[1]
		if s, found := pseudo[name]; found {
			return s
		}
		complete = false
		return m
	})
	return out, complete
}

// Describe prints a template value for log lines and error messages.
func Describe(v any) string {
	if s, ok := Literal(v); ok {
		return s
	}
	if id, ok := Ref(v); ok {
		return "Ref(" + id + ")"
	}
	if id, attr, ok := GetAtt(v); ok {
		return fmt.Sprintf("GetAtt(%s.%s)", id, attr)
	}
	return fmt.Sprintf("%v", v)
}
