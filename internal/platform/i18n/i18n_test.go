package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestMatchFallsBackToBase(t *testing.T) {
	t.Parallel()

	if got := Match(""); got != language.MustParse("en-US") {
		t.Fatalf("Match(\"\") = %v", got)
	}
	if got := Match("garbage;;;"); got != language.MustParse("en-US") {
		t.Fatalf("Match(garbage) = %v", got)
	}
}

func TestMatchResolvesSupportedLocale(t *testing.T) {
	t.Parallel()

	if got := Match("pt-BR,pt;q=0.9,en;q=0.8"); got != language.MustParse("pt-BR") {
		t.Fatalf("Match(pt-BR) = %v", got)
	}
}

func TestLocalizerResolvesKeys(t *testing.T) {
	t.Parallel()

	en := NewLocalizer(Match("en-US"))
	if got := en.Sprintf("boundary.error.title"); got != "Application Error" {
		t.Fatalf("Sprintf = %q", got)
	}

	pt := NewLocalizer(Match("pt-BR"))
	if got := pt.Sprintf("boundary.catch.title"); got != "Resposta inesperada" {
		t.Fatalf("Sprintf = %q", got)
	}
}

func TestLocalizerUnknownKeyFallsThrough(t *testing.T) {
	t.Parallel()

	loc := NewLocalizer(Match("en-US"))
	if got := loc.Sprintf("nope.missing"); got != "nope.missing" {
		t.Fatalf("Sprintf = %q", got)
	}
}
