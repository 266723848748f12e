package widget

import (
	"context"
	"errors"

	"github.com/AlexNa-Holdings/stakezil/staking"
	"github.com/ethereum/go-ethereum/common"
)

var ErrNoNamespace = errors.New("widget namespace not found after script load")

const (
	EventOrder       = "order"
	EventBridge      = "bridge"
	EventNeedConnect = "needConnect"
)

type FeeConfig struct {
	Percent   string `json:"affiliateFeePercent"`
	Recipient string `json:"affiliateFeeRecipient"`
}

// AffiliateFee is the setAffiliateFee argument. Only the EVM side is used.
type AffiliateFee struct {
	EVM *FeeConfig `json:"evm,omitempty"`
}

type ExternalWallet struct {
	Provider any    `json:"-"`
	Name     string `json:"name"`
	ImageSrc string `json:"imageSrc,omitempty"`
}

// Widget is a live bridge widget instance.
type Widget interface {
	On(event string, fn func(args ...any))
	SetAffiliateFee(ctx context.Context, fee AffiliateFee) error
	SetExternalEVMWallet(ctx context.Context, w ExternalWallet) error
}

// Destroyer is the optional destroy() of a widget instance.
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// Factory is the namespace the widget script installs on load.
type Factory interface {
	NewWidget(ctx context.Context, params Params) (Widget, error)
}

// Host is the page hosting the widget.
type Host interface {
	LoadScript(ctx context.Context, src string) error
	// Namespace returns ErrNoNamespace when the script loaded but did not
	// install its factory.
	Namespace(ctx context.Context) (Factory, error)
	ClearElement(ctx context.Context, id string) error
}

type EligibilityChecker interface {
	IsEligibleForZeroFee(ctx context.Context, user common.Address) (staking.EligibilityResult, error)
}
