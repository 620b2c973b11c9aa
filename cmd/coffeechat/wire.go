package main

import (
	"fmt"

	"github.com/anthann/coffeechat/pkg/cart"
	"github.com/anthann/coffeechat/pkg/chat"
	"github.com/anthann/coffeechat/pkg/event"
	"github.com/anthann/coffeechat/pkg/logx"
	"github.com/anthann/coffeechat/pkg/menu"
	"github.com/anthann/coffeechat/pkg/model"
	"github.com/anthann/coffeechat/pkg/settings"
	"github.com/anthann/coffeechat/pkg/tool"
	"github.com/anthann/coffeechat/pkg/tool/builtin"
)

// app bundles the wired components a command needs.
type app struct {
	store      *cart.Store
	controller *chat.Controller
	settings   *settings.Store
	watcher    *settings.Watcher
}

// buildApp assembles the catalog, cart, tools, session manager, and
// controller, and starts the settings watcher so edits to the settings
// file take effect on the next turn.
func buildApp(cfg appConfig, runtime model.Runtime, sink event.Sink) (*app, error) {
	catalog := menu.DefaultCatalog()
	store := cart.NewStore(catalog)

	registry := tool.NewRegistry()
	for _, t := range []tool.Tool{
		builtin.NewMenuTool(catalog),
		builtin.NewAddToCartTool(store),
		builtin.NewViewCartTool(store),
	} {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("register tool: %w", err)
		}
	}

	settingsStore, err := settings.NewStore(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	sessions := chat.NewSessionManager(runtime, registry)
	configSource := func() chat.GenerationConfig {
		current := settingsStore.Current()
		return chat.GenerationConfig{
			Instructions: current.Instructions,
			Temperature:  current.Temperature,
			Streaming:    current.Streaming,
		}
	}
	controller := chat.NewController(sessions, registry, store, configSource, sink)

	// The watcher only invalidates; Ensure rebuilds the session with the
	// new configuration at the next submit.
	watcher, err := settings.Watch(settingsStore, func(s settings.Settings) {
		logx.Info().
			Bool("streaming", s.Streaming).
			Float64("temperature", s.Temperature).
			Msg("settings changed, session will be recreated")
		sessions.Invalidate()
	})
	if err != nil {
		logx.Warn().Err(err).Msg("settings watcher unavailable, edits require restart")
		watcher = nil
	}

	return &app{
		store:      store,
		controller: controller,
		settings:   settingsStore,
		watcher:    watcher,
	}, nil
}

func (a *app) close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
}
