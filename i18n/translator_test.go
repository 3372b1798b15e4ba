package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("type", nil); msg == "type" || msg == "" {
		t.Fatalf("expected a human message, got %q", msg)
	}

	SetLanguage("ja")
	if msg := T("type", nil); msg == "invalid type" {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	// reset to en
	SetLanguage("en")
}

func TestTranslator_PropertyAndUnknownKeyword(t *testing.T) {
	if msg := T("required", map[string]string{"property": "email"}); msg != "required property missing: email" {
		t.Fatalf("unexpected message %q", msg)
	}
	if msg := T("uniqueItemProperties", nil); msg != "uniqueItemProperties" {
		t.Fatalf("unknown keywords should fall back to the keyword, got %q", msg)
	}
}

func TestFromAcceptLanguage(t *testing.T) {
	if msg := FromAcceptLanguage("fr-FR, ja;q=0.8").Message("type", nil); msg != "型が不正です" {
		t.Fatalf("expected japanese, got %q", msg)
	}
	if msg := FromAcceptLanguage("en-GB,ja").Message("type", nil); msg != "invalid type" {
		t.Fatalf("expected english, got %q", msg)
	}
	if msg := FromAcceptLanguage("").Message("type", nil); msg != "invalid type" {
		t.Fatalf("expected default english, got %q", msg)
	}
}
