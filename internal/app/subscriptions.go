package app

import (
	"context"

	"github.com/dshills/actionhistory/internal/config"
	"github.com/dshills/actionhistory/internal/event"
	"github.com/dshills/actionhistory/internal/history"
)

// setupSubscriptions registers the application's own event handlers.
func (app *Application) setupSubscriptions() error {
	log := app.logger.WithComponent("event")

	sub, err := app.bus.Subscribe("**", func(_ context.Context, ev event.Event) error {
		log.Debug("event",
			"topic", ev.Topic.String(), "source", ev.Metadata.Source, "id", ev.Metadata.ID)
		return nil
	})
	if err != nil {
		return err
	}
	app.subs = append(app.subs, sub)
	return nil
}

// publisher returns a history observer that publishes entries on topic.
func (app *Application) publisher(topic event.Topic) history.Observer {
	return func(e history.Entry) {
		app.publish(topic, e)
	}
}

// publish delivers an event, logging handler failures.
func (app *Application) publish(topic event.Topic, payload any) {
	if err := app.bus.Publish(context.Background(), event.New(topic, payload, "history")); err != nil {
		app.logComponentError("event", err)
	}
}

// onActionError publishes closure failures. The payload is the
// *history.ActionError the caller receives.
func (app *Application) onActionError(op string, action history.Action, err error) {
	app.logger.WithComponent("history").Debug("publishing failure", "op", op, "id", action.ID())
	app.publish(event.TopicHistoryFailed, err)
}

// onConfigReload applies a reloaded configuration. Script limits only take
// effect for a new runtime and are not applied here.
func (app *Application) onConfigReload(cfg *config.Config, err error) {
	log := app.logger.WithComponent("config")
	if err != nil {
		log.Warn("config reload failed, keeping current settings", "error", err)
		return
	}

	app.mu.Lock()
	app.config = cfg
	app.mu.Unlock()

	app.manager.SetMaxHistorySize(cfg.History.MaxSize)
	app.manager.SetStrict(cfg.History.Strict)
	if !app.opts.Debug && app.opts.LogLevel == "" {
		app.logger.SetLevel(ParseLogLevel(cfg.Log.Level))
	}

	log.Info("config reloaded",
		"max_size", cfg.History.MaxSize, "strict", cfg.History.Strict, "level", cfg.Log.Level)
	if err := app.bus.Publish(context.Background(), event.New(event.TopicConfigReloaded, cfg, "config")); err != nil {
		app.logComponentError("event", err)
	}
}
