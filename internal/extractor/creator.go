package extractor

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"sjsage522/salewatch/internal/page"
	"sjsage522/salewatch/logger"
)

const (
	minCreatorLen = 2
	maxCreatorLen = 50
)

var (
	acon3dBrandLabel = regexp.MustCompile(`(?i)(?:brand|브랜드)\s*[:：]\s*(?:<[^>]*>\s*)*([^<>]{2,80}?)\s*<`)

	nameTokens = `(\p{Lu}[\p{L}\p{N}'’.\-]*(?:[ \t]+\p{Lu}[\p{L}\p{N}'’.\-]*){0,4})`

	creatorLabels = []*regexp.Regexp{
		regexp.MustCompile(`(?i:created by)\s+` + nameTokens),
		regexp.MustCompile(`(?i:author)\s*:\s*` + nameTokens),
		regexp.MustCompile(`(?i:artist)\s*:\s*` + nameTokens),
		regexp.MustCompile(`(?i:creator)\s*:\s*` + nameTokens),
		regexp.MustCompile(`(?i:seller)\s*:\s*` + nameTokens),
		regexp.MustCompile(`\b[Bb]y\s+` + nameTokens),
	}

	creatorSelector = strings.Join([]string{
		`[class*="creator"]`, `[class*="author"]`, `[class*="artist"]`, `[class*="seller"]`,
		`[data-creator]`, `[data-author]`, `[data-artist]`, `[data-seller]`,
		`a[href*="/creator/"]`, `a[href*="/artist/"]`, `a[href*="/user/"]`, `a[href*="/seller/"]`,
	}, ", ")

	creatorDataAttrs = []string{"data-creator", "data-author", "data-artist", "data-seller"}
)

// ResolveCreator finds the seller or brand name. platformHint enables
// platform specific label scans. It returns "" when nothing acceptable is
// found and never fails.
func ResolveCreator(a page.Accessor, platformHint string) (creator string) {
	defer func() {
		if r := recover(); r != nil {
			logger.ForComponent("extractor").Warn().
				Str("url", a.URL()).
				Interface("panic", r).
				Msg("Creator resolution failed")
			creator = ""
		}
	}()

	strategies := []Strategy[string]{creatorFromMeta, creatorFromLabels, creatorFromDOM}
	if platformHint == "ACON3D" {
		strategies = append([]Strategy[string]{creatorFromACON3D}, strategies...)
	}
	creator, _ = firstOf(a, strategies...)
	return creator
}

// acceptCreator applies the length and newline rules and collapses whitespace.
func acceptCreator(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if strings.ContainsAny(s, "\r\n") {
		return "", false
	}
	s = strings.Join(strings.Fields(s), " ")
	n := utf8.RuneCountInString(s)
	if n < minCreatorLen || n > maxCreatorLen {
		return "", false
	}
	return s, true
}

func creatorFromACON3D(a page.Accessor) (string, bool) {
	if m := acon3dBrandLabel.FindStringSubmatch(a.Markup()); m != nil {
		if s, ok := acceptCreator(html.UnescapeString(m[1])); ok {
			return s, true
		}
	}
	for _, el := range a.Query(`a[href*="/brand/"], [class*="brand"]`) {
		if s, ok := acceptCreator(el.RawText); ok {
			return s, true
		}
	}
	return "", false
}

func creatorFromMeta(a page.Accessor) (string, bool) {
	for _, key := range []string{"author", "article:author"} {
		v := a.Meta(key)
		if strings.Contains(v, "://") {
			continue
		}
		if s, ok := acceptCreator(v); ok {
			return s, true
		}
	}
	return "", false
}

func creatorFromLabels(a page.Accessor) (string, bool) {
	text := a.Text()
	for _, re := range creatorLabels {
		if m := re.FindStringSubmatch(text); m != nil {
			if s, ok := acceptCreator(m[1]); ok {
				return s, true
			}
		}
	}
	return "", false
}

func creatorFromDOM(a page.Accessor) (string, bool) {
	for _, el := range a.Query(creatorSelector) {
		for _, attr := range creatorDataAttrs {
			if s, ok := acceptCreator(el.Attr(attr)); ok {
				return s, true
			}
		}
		if s, ok := acceptCreator(el.RawText); ok {
			return s, true
		}
	}
	return "", false
}
