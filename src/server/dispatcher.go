package server

import (
	"encoding/json"
	"fmt"
	"time"

	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
	"mt5-gateway/src/subscription"
)

// -----------------------------------------------------------------------------
// Command Dispatcher
//
// Parses inbound control frames and applies them to the subscription
// index. Every frame is answered with an ack, success or error; a bad
// command never touches the index and never drops the connection.
// -----------------------------------------------------------------------------

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Dispatcher struct {
	Index              *subscription.Index
	Logger             *logger.Logger
	DefaultTerminalID  int64
	DefaultFrequencyMs int64
}

// -----------------------------------------------------------------------------

func (d *Dispatcher) Handle(sub subscription.Subscriber, raw []byte) {
	var cmd models.MCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		d.reply(sub, &models.MAck{
			Status:  StatusError,
			Message: "invalid message format",
		})
		return
	}

	switch cmd.Command {
	case "subscribe":
		d.handleSubscribe(sub, &cmd)
	case "unsubscribe":
		d.handleUnsubscribe(sub, &cmd)
	case "list_subscriptions":
		d.handleList(sub)
	case "update_frequency":
		d.handleUpdateFrequency(sub, &cmd)
	case "":
		d.replyError(sub, "", "missing command")
	default:
		d.replyError(sub, cmd.Command, fmt.Sprintf("unknown command: %s", cmd.Command))
	}
}

// -----------------------------------------------------------------------------
// subscribe
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleSubscribe(sub subscription.Subscriber, cmd *models.MCommand) {
	feed, params, err := d.feedAndParams(cmd)
	if err != nil {
		d.replyError(sub, cmd.Command, err.Error())
		return
	}

	frequency := d.DefaultFrequencyMs
	if cmd.Frequency != nil {
		if *cmd.Frequency <= 0 {
			d.replyError(sub, cmd.Command, "frequency must be positive")
			return
		}
		frequency = *cmd.Frequency
	}

	terminalID := subscription.TerminalID(params, d.DefaultTerminalID)
	key, err := subscription.BuildKey(feed, terminalID, params)
	if err != nil {
		d.replyError(sub, cmd.Command, err.Error())
		return
	}

	created := d.Index.Subscribe(key, feed, terminalID, params.Strings(), frequency, time.Now().UnixMilli(), sub)

	message := "subscription updated"
	if created {
		message = "subscribed"
	}
	d.Logger.Debug("Client %s: %s %s (frequency %dms)", sub.ID(), message, key, frequency)

	d.reply(sub, &models.MAck{
		Command: cmd.Command,
		Status:  StatusSuccess,
		Message: message,
		Data: models.MSubscriptionInfo{
			DataType:  string(feed),
			Params:    params.Strings(),
			Frequency: frequency,
		},
	})
}

// -----------------------------------------------------------------------------
// unsubscribe
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleUnsubscribe(sub subscription.Subscriber, cmd *models.MCommand) {
	feed, params, err := d.feedAndParams(cmd)
	if err != nil {
		d.replyError(sub, cmd.Command, err.Error())
		return
	}

	terminalID := subscription.TerminalID(params, d.DefaultTerminalID)
	key, err := subscription.BuildKey(feed, terminalID, params)
	if err != nil {
		d.replyError(sub, cmd.Command, err.Error())
		return
	}

	// Unsubscribing from a key the client never held still succeeds
	removed := d.Index.Unsubscribe(key, sub.ID())

	message := "not subscribed"
	if removed {
		message = "unsubscribed"
		d.Logger.Debug("Client %s: unsubscribed %s", sub.ID(), key)
	}

	d.reply(sub, &models.MAck{
		Command: cmd.Command,
		Status:  StatusSuccess,
		Message: message,
		Data: models.MSubscriptionInfo{
			DataType: string(feed),
			Params:   params.Strings(),
		},
	})
}

// -----------------------------------------------------------------------------
// list_subscriptions
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleList(sub subscription.Subscriber) {
	subs := d.Index.ListFor(sub.ID())

	d.reply(sub, &models.MAck{
		Command: "list_subscriptions",
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%d active subscriptions", len(subs)),
		Data: models.MSubscriptionList{
			Subscriptions: subs,
			Count:         len(subs),
		},
	})
}

// -----------------------------------------------------------------------------
// update_frequency
// -----------------------------------------------------------------------------

func (d *Dispatcher) handleUpdateFrequency(sub subscription.Subscriber, cmd *models.MCommand) {
	feed, params, err := d.feedAndParams(cmd)
	if err != nil {
		d.replyError(sub, cmd.Command, err.Error())
		return
	}

	if cmd.Frequency == nil {
		d.replyError(sub, cmd.Command, "missing required parameter frequency")
		return
	}
	if *cmd.Frequency <= 0 {
		d.replyError(sub, cmd.Command, "frequency must be positive")
		return
	}

	terminalID := subscription.TerminalID(params, d.DefaultTerminalID)
	key, err := subscription.BuildKey(feed, terminalID, params)
	if err != nil {
		d.replyError(sub, cmd.Command, err.Error())
		return
	}

	if !d.Index.UpdateFrequency(key, sub.ID(), *cmd.Frequency) {
		d.replyError(sub, cmd.Command, "subscription not found")
		return
	}
	d.Logger.Debug("Client %s: %s frequency set to %dms", sub.ID(), key, *cmd.Frequency)

	d.reply(sub, &models.MAck{
		Command: cmd.Command,
		Status:  StatusSuccess,
		Message: "frequency updated",
		Data: models.MSubscriptionInfo{
			DataType:  string(feed),
			Params:    params.Strings(),
			Frequency: *cmd.Frequency,
		},
	})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (d *Dispatcher) feedAndParams(cmd *models.MCommand) (subscription.FeedType, subscription.Params, error) {
	if cmd.DataType == "" {
		return "", nil, fmt.Errorf("missing required parameter data_type")
	}
	feed := subscription.FeedType(cmd.DataType)
	params := subscription.Params(cmd.Params)
	if params == nil {
		params = subscription.Params{}
	}
	if err := subscription.Validate(feed, params); err != nil {
		return "", nil, err
	}
	return feed, params, nil
}

func (d *Dispatcher) replyError(sub subscription.Subscriber, command, message string) {
	d.reply(sub, &models.MAck{
		Command: command,
		Status:  StatusError,
		Message: message,
	})
}

func (d *Dispatcher) reply(sub subscription.Subscriber, ack *models.MAck) {
	if err := sub.Deliver(ack); err != nil {
		d.Logger.Debug("Ack to %s dropped: %v", sub.ID(), err)
	}
}
