package relevance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "へあandめいく", NormalizeName("ヘア＆メイク"))
	assert.Equal(t, "salonabc", NormalizeName("Salon ABC"))
	assert.Equal(t, "さろんabc公式", NormalizeName("サロン・ＡＢＣ【公式】"))
}

func TestFoldKana(t *testing.T) {
	assert.Equal(t, "さろん", FoldKana("サロン"))
	assert.Equal(t, "hair さろん", FoldKana("hair サロン"))
}

func TestToRomaji(t *testing.T) {
	assert.Equal(t, "saron", ToRomaji("サロン"))
	assert.Equal(t, "saron", ToRomaji("さろん"))
	assert.Equal(t, "abc saron", ToRomaji("ABC サロン"))
}

func TestSignificantTokens(t *testing.T) {
	assert.Equal(t, []string{"abcabc"}, significantTokens("サロンABC (Salon ABC)"))
	assert.Empty(t, significantTokens("美容室"))
	assert.Equal(t, []string{"tokyo"}, significantTokens("hair salon Tokyo"))
}
