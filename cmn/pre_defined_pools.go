package cmn

import "github.com/ethereum/go-ethereum/common"

type PoolKind string

const (
	POOL_LIQUID     PoolKind = "liquid"     // issues a receipt token (LST) priced by the proxy
	POOL_DELEGATION PoolKind = "delegation" // keeps a staked balance per delegator
)

type EligibilityPool struct {
	Name  string
	Kind  PoolKind
	Proxy common.Address
}

// Pools whose stake counts towards the zero-fee tier.
var EligibilityPools []EligibilityPool = []EligibilityPool{
	{
		Name:  "Amazing Pool",
		Kind:  POOL_LIQUID,
		Proxy: common.HexToAddress("0x1f0e86Bc299Cc66df2e5512a7786C3F528C0b5b6"),
	},
	{
		Name:  "2ZilMoon",
		Kind:  POOL_DELEGATION,
		Proxy: common.HexToAddress("0xCDb0B23Db1439b28689844FD093C478d73C0786A"),
	},
}
