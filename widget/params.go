package widget

import (
	"strconv"

	"github.com/AlexNa-Holdings/stakezil/cmn"
	"github.com/shopspring/decimal"
)

type ChainSet struct {
	InputChains  map[string]string `json:"inputChains"`
	OutputChains map[string]string `json:"outputChains"`
}

// Params is the configuration object handed to the widget factory.
type Params struct {
	Version               string   `json:"v"`
	Element               string   `json:"element"`
	Mode                  string   `json:"mode"`
	Theme                 string   `json:"theme"`
	Lang                  string   `json:"lang"`
	Width                 string   `json:"width"`
	Height                int      `json:"height"`
	OutputChain           int      `json:"outputChain"`
	SupportedChains       ChainSet `json:"supportedChains"`
	AffiliateFeePercent   string   `json:"affiliateFeePercent"`
	AffiliateFeeRecipient string   `json:"affiliateFeeRecipient"`
	Referral              string   `json:"r,omitempty"`
}

type FeeSettings struct {
	DefaultPercent decimal.Decimal
	Recipient      string
}

func allChains(ids []int) map[string]string {
	m := make(map[string]string, len(ids))
	for _, id := range ids {
		m[strconv.Itoa(id)] = "all"
	}
	return m
}

// NewParams builds the initial widget configuration at the default fee.
func NewParams(element string, fee FeeSettings, referral int) Params {
	d := cmn.WidgetDefaults
	p := Params{
		Version:     d.Version,
		Element:     element,
		Mode:        d.Mode,
		Theme:       d.Theme,
		Lang:        d.Lang,
		Width:       d.Width,
		Height:      d.Height,
		OutputChain: d.OutputChain,
		SupportedChains: ChainSet{
			InputChains:  allChains(cmn.SupportedChains),
			OutputChains: allChains(cmn.SupportedChains),
		},
		AffiliateFeePercent:   fee.DefaultPercent.String(),
		AffiliateFeeRecipient: fee.Recipient,
	}
	if referral != 0 {
		p.Referral = strconv.Itoa(referral)
	}
	return p
}

func (s FeeSettings) fee(percent decimal.Decimal) AffiliateFee {
	return AffiliateFee{EVM: &FeeConfig{
		Percent:   percent.String(),
		Recipient: s.Recipient,
	}}
}
