package cmn

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ZilToEvmAddress accepts a base16 address with or without the 0x prefix.
// Returns nil for an empty or malformed address.
func ZilToEvmAddress(base16 string) *common.Address {
	base16 = strings.TrimSpace(base16)
	if base16 == "" {
		return nil
	}
	if !strings.HasPrefix(strings.ToLower(base16), "0x") {
		base16 = "0x" + base16
	}
	if !common.IsHexAddress(base16) {
		return nil
	}
	a := common.HexToAddress(base16)
	return &a
}

func ShortAddress(a common.Address) string {
	s := a.Hex()
	return s[:5] + "..." + s[len(s)-3:]
}

// FormatZil renders amounts below 1000 with two decimals and larger ones
// as whole numbers with thousands separators.
func FormatZil(v decimal.Decimal) string {
	if v.LessThan(decimal.NewFromInt(1000)) {
		return v.StringFixed(2)
	}
	return printer.Sprintf("%d", v.Round(0).IntPart())
}
