package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySortsParams(t *testing.T) {
	key := Key("/v7/finance/quote", map[string]string{
		"symbols": "AAPL,NVDA",
		"fields":  "regularMarketPrice",
	})
	assert.Equal(t, "/v7/finance/quote?fields=regularMarketPrice&symbols=AAPL,NVDA", key)
}

func TestKeyNoParams(t *testing.T) {
	assert.Equal(t, "/global", Key("/global", nil))
}

func TestNormalizeKeyEquivalentQueries(t *testing.T) {
	a := NormalizeKey("/v7/finance/quote?symbols=AAPL,NVDA&fields=regularMarketPrice")
	b := NormalizeKey("/v7/finance/quote?fields=regularMarketPrice&symbols=AAPL,NVDA")
	assert.Equal(t, a, b)
}

func TestNormalizeKeyPlainPath(t *testing.T) {
	assert.Equal(t, "/fng", NormalizeKey("/fng"))
	assert.Equal(t, "/fng", NormalizeKey("/fng?"))
}
