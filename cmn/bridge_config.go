package cmn

const DEBRIDGE_WIDGET_ELEMENT_ID = "debridgeWidget"
const DEBRIDGE_SCRIPT_SRC = "https://app.debridge.finance/assets/scripts/widget.js"

const AFFILIATE_EVM_RECIPIENT = "0x36e1330847b5a8362ee11921637E92bA83249742"

const REFERRAL_CODE = 32608

const ZIL_EVM_RPC = "https://ssn.zilpay.io/api"

const (
	CHAIN_ETH       = 1
	CHAIN_OPTIMISM  = 10
	CHAIN_BSC       = 56
	CHAIN_POLYGON   = 137
	CHAIN_BASE      = 8453
	CHAIN_ZIL_EVM   = 32769
	CHAIN_ARBITRUM  = 42161
	CHAIN_AVALANCHE = 43114
	CHAIN_LINEA     = 59144
	CHAIN_BERACHAIN = 80094
)

// Chains offered on both sides of the swap widget.
var SupportedChains = []int{
	CHAIN_ETH,
	CHAIN_OPTIMISM,
	CHAIN_BSC,
	CHAIN_POLYGON,
	CHAIN_ARBITRUM,
	CHAIN_AVALANCHE,
	CHAIN_BASE,
	CHAIN_LINEA,
	CHAIN_BERACHAIN,
	CHAIN_ZIL_EVM,
}

type WidgetLayout struct {
	Version     string
	Mode        string
	Theme       string
	Lang        string
	Width       string
	Height      int
	OutputChain int
}

var WidgetDefaults = WidgetLayout{
	Version:     "1",
	Mode:        "deswap",
	Theme:       "dark",
	Lang:        "en",
	Width:       "100%",
	Height:      780,
	OutputChain: CHAIN_ZIL_EVM,
}
