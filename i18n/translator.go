package i18n

import (
	"strings"
	"sync/atomic"
)

// Translator retrieves localized messages for validation keywords.
// data provides optional parameters to embed in the message (for example,
// "property" or "limit").
type Translator interface {
	Message(keyword string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(keyword string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch keyword {
		case "type":
			msg = "型が不正です"
		case "required":
			msg = "必須プロパティが不足しています"
		case "additionalProperties":
			msg = "許可されていないプロパティです"
		case "enum", "const":
			msg = "許可された値ではありません"
		case "format":
			msg = "形式が不正です"
		case "pattern":
			msg = "パターンに一致しません"
		case "minLength", "minItems", "minProperties":
			msg = "短すぎます"
		case "maxLength", "maxItems", "maxProperties":
			msg = "長すぎます"
		case "minimum", "exclusiveMinimum":
			msg = "小さすぎます"
		case "maximum", "exclusiveMaximum":
			msg = "大きすぎます"
		case "range", "exclusiveRange":
			msg = "範囲外です"
		case "empty_schema":
			msg = "スキーマが設定されていません"
		case "invalid_argument":
			msg = "データがありません"
		case "invalid_schema":
			msg = "スキーマが不正です"
		case "false schema":
			msg = "値は許可されていません"
		}
	default: // "en"
		switch keyword {
		case "type":
			msg = "invalid type"
		case "required":
			msg = "required property missing"
		case "additionalProperties":
			msg = "property not allowed"
		case "enum", "const":
			msg = "value not allowed"
		case "format":
			msg = "invalid format"
		case "pattern":
			msg = "does not match pattern"
		case "minLength", "minItems", "minProperties":
			msg = "too short"
		case "maxLength", "maxItems", "maxProperties":
			msg = "too long"
		case "minimum", "exclusiveMinimum":
			msg = "too small"
		case "maximum", "exclusiveMaximum":
			msg = "too big"
		case "range", "exclusiveRange":
			msg = "out of range"
		case "empty_schema":
			msg = "schema is not set"
		case "invalid_argument":
			msg = "data is null or undefined"
		case "invalid_schema":
			msg = "invalid schema"
		case "false schema":
			msg = "value not allowed"
		}
	}
	if msg == "" {
		return keyword
	}
	if p := data["property"]; p != "" {
		return msg + ": " + p
	}
	return msg
}

type holder struct{ tr Translator }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{tr: dictTranslator{lang: "en"}}) }

// For returns the built-in Translator for a language tag such as "ja" or
// "en-US". Unsupported languages get English.
func For(lang string) Translator {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "ja" || strings.HasPrefix(lang, "ja-") {
		return dictTranslator{lang: "ja"}
	}
	return dictTranslator{lang: "en"}
}

// FromAcceptLanguage picks a Translator from an Accept-Language header value.
// The first supported language wins; quality values are not weighed.
func FromAcceptLanguage(header string) Translator {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if t, ok := For(tag).(dictTranslator); ok && t.lang == "ja" {
			return t
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(tag)), "en") {
			return dictTranslator{lang: "en"}
		}
	}
	return Default()
}

// SetLanguage switches the default Translator language ("en"/"ja").
func SetLanguage(lang string) {
	current.Store(&holder{tr: For(lang)})
}

// SetTranslator replaces the default Translator (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	current.Store(&holder{tr: tr})
}

// Default returns the default Translator.
func Default() Translator { return current.Load().tr }

// T fetches a message for the given keyword using the default Translator.
func T(keyword string, data map[string]string) string { return Default().Message(keyword, data) }
