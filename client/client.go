// Package client provides the top-level Hiven client: it wires the
// cache, the dispatch engine and the gateway together and exposes the
// public accessor and listener API.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frostbytespace/hiven-go/config"
	"github.com/frostbytespace/hiven-go/errors"
	"github.com/frostbytespace/hiven-go/events"
	"github.com/frostbytespace/hiven-go/gateway"
	"github.com/frostbytespace/hiven-go/metric"
	"github.com/frostbytespace/hiven-go/storage"
	"github.com/frostbytespace/hiven-go/types"
)

// Client is a connected Hiven identity: one websocket session, one
// cache, one listener registry.
type Client struct {
	cfg    *config.Config
	log    *slog.Logger
	cache  *storage.Cache
	engine *events.Engine
	gw     *gateway.Gateway
	rest   *gateway.RESTClient
}

// New builds a client for the given token. cfg, logger and registry may
// be nil; defaults are used.
func New(token string, cfg *config.Config, logger *slog.Logger, registry *metric.Registry) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "client", "New", "validate configuration")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cache := storage.NewCache(logger, registry)
	engine := events.NewEngine(logger, registry)
	return &Client{
		cfg:    cfg,
		log:    logger.With("component", "client"),
		cache:  cache,
		engine: engine,
		gw:     gateway.New(cfg, token, cache, engine, logger, registry),
		rest:   gateway.NewRESTClient(cfg, token, logger),
	}, nil
}

// Run connects to Hiven and blocks until the session ends. Listener
// registration should happen before Run; late registrations still take
// effect for subsequent events.
func (c *Client) Run(ctx context.Context) error {
	return c.gw.Run(ctx)
}

// Close shuts the session down and releases the connection.
func (c *Client) Close() error {
	return c.gw.Close()
}

// Ready reports whether the session finished its startup sequence.
func (c *Client) Ready() bool {
	return c.gw.Ready()
}

// StartupTime returns how long the last session took to become ready.
func (c *Client) StartupTime() time.Duration {
	return c.gw.StartupTime()
}

// On registers a persistent listener. The event name may carry an "on_"
// prefix.
func (c *Client) On(event string, handler events.Handler) (*events.Listener, error) {
	return c.engine.Register(event, handler)
}

// Once registers a one-shot listener that deregisters after first firing.
func (c *Client) Once(event string, handler events.Handler) (*events.Listener, error) {
	return c.engine.RegisterOnce(event, handler)
}

// Off removes a previously registered listener.
func (c *Client) Off(l *events.Listener) error {
	return c.engine.Deregister(l)
}

// WaitFor blocks until the event fires and returns the dispatched
// arguments. The optional handler runs before WaitFor returns.
func (c *Client) WaitFor(ctx context.Context, event string, handler events.Handler) ([]any, error) {
	return c.engine.WaitFor(ctx, event, handler)
}

// Cache exposes the underlying cache for direct record access.
func (c *Client) Cache() *storage.Cache {
	return c.cache
}

// REST exposes the HTTP API client.
func (c *Client) REST() *gateway.RESTClient {
	return c.rest
}

// User returns the cached user with the given id, or nil.
func (c *Client) User(id string) *types.User {
	if r, ok := c.cache.FindUser(id); ok {
		return types.NewUser(r)
	}
	return nil
}

// ClientUser returns the authenticated user, or nil before the session
// initialized.
func (c *Client) ClientUser() *types.User {
	if r, ok := c.cache.ClientUser(); ok {
		return types.NewUser(r)
	}
	return nil
}

// House returns the cached house with the given id, or nil.
func (c *Client) House(id string) *types.House {
	if r, ok := c.cache.FindHouse(id); ok {
		return types.NewHouse(r)
	}
	return nil
}

// Room returns the cached house room with the given id, or nil.
func (c *Client) Room(id string) *types.Room {
	if r, ok := c.cache.FindRoom(id); ok {
		return types.NewRoom(r)
	}
	return nil
}

// PrivateRoom returns the cached single private room, or nil.
func (c *Client) PrivateRoom(id string) *types.PrivateRoom {
	if r, ok := c.cache.FindPrivateRoom(id); ok {
		return types.NewPrivateRoom(r)
	}
	return nil
}

// PrivateGroupRoom returns the cached group private room, or nil.
func (c *Client) PrivateGroupRoom(id string) *types.PrivateGroupRoom {
	if r, ok := c.cache.FindPrivateGroupRoom(id); ok {
		return types.NewPrivateGroupRoom(r)
	}
	return nil
}

// Entity returns the cached entity with the given id, or nil.
func (c *Client) Entity(id string) *types.Entity {
	if r, ok := c.cache.FindEntity(id); ok {
		return types.NewEntity(r)
	}
	return nil
}

// Relationship returns the cached relationship with the given user, or
// nil.
func (c *Client) Relationship(userID string) *types.Relationship {
	if r, ok := c.cache.FindRelationship(userID); ok {
		return types.NewRelationship(r)
	}
	return nil
}

// FetchUser fetches a user profile over the REST API and merges it into
// the cache.
func (c *Client) FetchUser(ctx context.Context, id string) (*types.User, error) {
	data, err := c.rest.Get(ctx, "/users/"+id)
	if err != nil {
		return nil, err
	}
	record, err := c.cache.UpsertUser(data)
	if err != nil {
		return nil, err
	}
	return types.NewUser(record), nil
}

// editableFields are the profile fields Edit accepts.
var editableFields = map[string]struct{}{
	"username": {},
	"bio":      {},
	"location": {},
	"website":  {},
	"icon":     {},
	"header":   {},
}

// Edit updates one field of the authenticated user's profile and keeps
// the cache in sync with the response.
func (c *Client) Edit(ctx context.Context, field string, value string) error {
	if _, ok := editableFields[field]; !ok {
		return errors.WrapInvalid(
			fmt.Errorf("field %q cannot be edited", field),
			"client", "Edit", "validate field")
	}
	data, err := c.rest.Patch(ctx, "/users/@me", map[string]string{field: value})
	if err != nil {
		return err
	}
	if _, err := c.cache.UpdateClientUser(data); err != nil {
		return err
	}
	c.log.Debug("profile updated", "field", field)
	return nil
}
