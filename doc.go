// Package hiven is a client runtime for the Hiven real-time chat platform.
//
// The module is organised around three cooperating layers:
//
//   - gateway maintains the websocket session: dialing, token auth,
//     heartbeats, the initial state handshake and reconnect policy.
//   - storage holds the partitioned client-side cache that gateway
//     events are merged into. Lookups return deep copies so callers
//     never observe later mutations.
//   - events normalizes wire events into typed dispatch arguments and
//     fans them out to registered listeners.
//
// The client package ties the layers together behind a single facade:
//
//	cfg := config.Default()
//	bot, err := client.New(os.Getenv("HIVEN_TOKEN"), cfg, logger, registry)
//	if err != nil {
//		return err
//	}
//	bot.On(events.EventMessageCreate, func(args ...any) error {
//		msg := args[0].(*types.Message)
//		logger.Info("message", "content", msg.Content())
//		return nil
//	})
//	return bot.Run(ctx)
//
// See cmd/hiven-echo for a complete runnable bot.
package hiven
