package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AlexNa-Holdings/stakezil/widget"
)

// pageHost loads and creates the bridge widget inside the page.
type pageHost struct {
	s *Session
}

func (h *pageHost) LoadScript(ctx context.Context, src string) error {
	_, err := h.s.call(ctx, "widget_loadScript", map[string]any{"src": src})
	return err
}

func (h *pageHost) Namespace(ctx context.Context) (widget.Factory, error) {
	raw, err := h.s.call(ctx, "widget_namespace", nil)
	if err != nil {
		return nil, err
	}
	var present bool
	if err := json.Unmarshal(raw, &present); err != nil {
		return nil, fmt.Errorf("widget_namespace: %w", err)
	}
	if !present {
		return nil, widget.ErrNoNamespace
	}
	return &pageFactory{s: h.s}, nil
}

func (h *pageHost) ClearElement(ctx context.Context, id string) error {
	_, err := h.s.call(ctx, "dom_clear", map[string]any{"id": id})
	return err
}

type pageFactory struct {
	s *Session
}

func (f *pageFactory) NewWidget(ctx context.Context, params widget.Params) (widget.Widget, error) {
	raw, err := f.s.call(ctx, "widget_create", map[string]any{"params": params})
	if err != nil {
		return nil, err
	}
	var res struct {
		WidgetId string `json:"widgetId"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("widget_create: %w", err)
	}
	if res.WidgetId == "" {
		return nil, fmt.Errorf("widget_create: no widget id")
	}
	return &remoteWidget{s: f.s, id: res.WidgetId}, nil
}

type remoteWidget struct {
	s  *Session
	id string
}

func (w *remoteWidget) On(event string, fn func(args ...any)) {
	if _, first := w.s.listeners.add(w.id, event, fn); first {
		w.s.notify("widget_on", map[string]any{"widgetId": w.id, "event": event})
	}
}

func (w *remoteWidget) SetAffiliateFee(ctx context.Context, fee widget.AffiliateFee) error {
	_, err := w.s.call(ctx, "widget_setAffiliateFee", map[string]any{"widgetId": w.id, "fee": fee})
	return err
}

func (w *remoteWidget) SetExternalEVMWallet(ctx context.Context, ew widget.ExternalWallet) error {
	ref, ok := ew.Provider.(pageObject)
	if !ok {
		return fmt.Errorf("provider of %s does not live in this page", ew.Name)
	}
	_, err := w.s.call(ctx, "widget_setExternalEVMWallet", map[string]any{
		"widgetId":   w.id,
		"providerId": ref.ProviderID(),
		"name":       ew.Name,
		"imageSrc":   ew.ImageSrc,
	})
	return err
}

func (w *remoteWidget) Destroy(ctx context.Context) error {
	_, err := w.s.call(ctx, "widget_destroy", map[string]any{"widgetId": w.id})
	return err
}

type widgetEvent struct {
	WidgetId string `json:"widgetId"`
	Event    string `json:"event"`
	Args     []any  `json:"args"`
}

func handleWidgetMethod(s *Session, m *RPCMessage) error {
	method := strings.TrimPrefix(m.Method, "widget_")

	switch method {
	case "event":
		var ev widgetEvent
		if err := json.Unmarshal(m.Params, &ev); err != nil {
			return fmt.Errorf("bad widget_event: %w", err)
		}
		s.dispatch(ev.WidgetId, ev.Event, ev.Args...)
		return nil
	}
	return &RPCError{Code: -32601, Message: "Method not found"}
}
