// Package relevance scores candidate social-media handles against Japanese
// business names. Scoring is additive with a hard veto: one off-industry
// keyword zeroes the candidate no matter how many weak positive signals it
// carries, while several weak signals can still add up to a confident match.
package relevance

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketsRe    = regexp.MustCompile(`[()（）\[\]【】「」『』<>《》〈〉]`)
	middleDotsRe  = regexp.MustCompile(`[・･]`)
	ampersandsRe  = regexp.MustCompile(`[&＆]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	nonWordRe     = regexp.MustCompile(`[^a-z0-9_\s]`)
	genericWordRe = regexp.MustCompile(`\s*(美容室|ヘアサロン|サロン|hair|salon)\s*`)
	romajiStripRe = regexp.MustCompile(`[^a-z0-9_]`)
	romajiWordRe  = regexp.MustCompile(`hair|salon|beauty`)
)

// NormalizeName folds a business name into a comparable form: lower-cased,
// bracket and middle-dot characters dropped, ampersand variants mapped to
// "and", whitespace removed, compatibility-normalized, and katakana folded
// to hiragana.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = bracketsRe.ReplaceAllString(s, "")
	s = middleDotsRe.ReplaceAllString(s, "")
	s = ampersandsRe.ReplaceAllString(s, "and")
	s = whitespaceRe.ReplaceAllString(s, "")
	s = norm.NFKC.String(s)
	return FoldKana(s)
}

// FoldKana converts katakana runes to their hiragana counterparts by the
// fixed code-point offset between the two blocks.
func FoldKana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ァ' && r <= 'ヶ' {
			return r - 0x60
		}
		return r
	}, s)
}

// hiraganaRomaji covers the basic syllabary. Small kana and compound
// syllables pass through untouched; the scorer only needs a rough Latin
// shadow of the name, not a full transliteration.
var hiraganaRomaji = map[rune]string{
	'あ': "a", 'い': "i", 'う': "u", 'え': "e", 'お': "o",
	'か': "ka", 'き': "ki", 'く': "ku", 'け': "ke", 'こ': "ko",
	'が': "ga", 'ぎ': "gi", 'ぐ': "gu", 'げ': "ge", 'ご': "go",
	'さ': "sa", 'し': "shi", 'す': "su", 'せ': "se", 'そ': "so",
	'ざ': "za", 'じ': "ji", 'ず': "zu", 'ぜ': "ze", 'ぞ': "zo",
	'た': "ta", 'ち': "chi", 'つ': "tsu", 'て': "te", 'と': "to",
	'だ': "da", 'ぢ': "di", 'づ': "du", 'で': "de", 'ど': "do",
	'な': "na", 'に': "ni", 'ぬ': "nu", 'ね': "ne", 'の': "no",
	'は': "ha", 'ひ': "hi", 'ふ': "fu", 'へ': "he", 'ほ': "ho",
	'ば': "ba", 'び': "bi", 'ぶ': "bu", 'べ': "be", 'ぼ': "bo",
	'ぱ': "pa", 'ぴ': "pi", 'ぷ': "pu", 'ぺ': "pe", 'ぽ': "po",
	'ま': "ma", 'み': "mi", 'む': "mu", 'め': "me", 'も': "mo",
	'や': "ya", 'ゆ': "yu", 'よ': "yo",
	'ら': "ra", 'り': "ri", 'る': "ru", 'れ': "re", 'ろ': "ro",
	'わ': "wa", 'ゐ': "wi", 'ゑ': "we", 'を': "wo", 'ん': "n",
}

// ToRomaji folds katakana to hiragana and maps the basic syllabary to
// Latin letters. Runes outside the map pass through; the result is
// lower-cased.
func ToRomaji(japanese string) string {
	var b strings.Builder
	for _, r := range FoldKana(japanese) {
		if latin, ok := hiraganaRomaji[r]; ok {
			b.WriteString(latin)
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// significantTokens splits a business name into the Latin tokens worth
// matching: symbols and non-Latin script dropped, generic trade words
// removed, tokens of at least two characters kept.
func significantTokens(name string) []string {
	s := strings.ToLower(name)
	s = nonWordRe.ReplaceAllString(s, "")
	s = genericWordRe.ReplaceAllString(s, "")

	var tokens []string
	for _, w := range strings.Fields(s) {
		if len(w) > 1 {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

// romajiForm is the Latin shadow of a business name used for handle
// comparison: transliterated, stripped to word characters, generic trade
// words removed.
func romajiForm(name string) string {
	s := ToRomaji(name)
	s = romajiStripRe.ReplaceAllString(s, "")
	return romajiWordRe.ReplaceAllString(s, "")
}
