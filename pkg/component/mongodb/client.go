// Package mongodb wraps the MongoDB driver behind a small client component.
// It owns connection establishment (URI building, TLS configuration, the
// post-connect liveness ping) and exposes the database and collection
// handles the proxy dispatches operations through.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client wraps mongo.Client together with its default database handle.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	opts     *Options
}

// CollectionInfo describes one collection for the stats endpoint.
type CollectionInfo struct {
	Name          string `json:"name"`
	DocumentCount int64  `json:"documentCount"`
	SizeBytes     int64  `json:"sizeBytes"`
	AvgDocSize    int64  `json:"avgDocSize"`
}

// NewWithContext creates a new MongoDB client with context support.
//
// The context bounds connection establishment and the initial ping.
// On any failure no client is returned and the partially established
// connection is torn down.
func NewWithContext(ctx context.Context, opts *Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("mongodb options cannot be nil")
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb options: %w", err)
	}

	uri := BuildURI(opts)

	clientOpts := mongoopts.Client().ApplyURI(uri)

	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.MaxIdleTime > 0 {
		clientOpts.SetMaxConnIdleTime(opts.MaxIdleTime)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}

	tlsCfg, err := LoadTLSConfig(opts.TLS)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		clientOpts.SetTLSConfig(tlsCfg)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping to verify the connection before handing it out.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	var db *mongo.Database
	if opts.Database != "" {
		db = client.Database(opts.Database)
	}

	return &Client{
		client:   client,
		database: db,
		opts:     opts,
	}, nil
}

// Ping checks if the connection to MongoDB is alive.
func (c *Client) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client is nil")
	}
	return c.client.Ping(ctx, readpref.Primary())
}

// Close closes the MongoDB connection gracefully.
// This method is idempotent and safe to call multiple times.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Database returns the default database.
// If no database was specified in options, this returns nil.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Collection returns a collection from the default database.
func (c *Client) Collection(name string) *mongo.Collection {
	if c.database == nil {
		return nil
	}
	return c.database.Collection(name)
}

// ListCollections lists the collections of the default database together
// with per-collection size statistics. A collStats failure for a single
// collection degrades that entry to name-only rather than failing the call.
func (c *Client) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	if c.database == nil {
		return nil, fmt.Errorf("no default database set")
	}

	names, err := c.database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		info := CollectionInfo{Name: name}

		var stats struct {
			Count      int64 `bson:"count"`
			Size       int64 `bson:"size"`
			AvgObjSize int64 `bson:"avgObjSize"`
		}
		res := c.database.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}})
		if err := res.Decode(&stats); err == nil {
			info.DocumentCount = stats.Count
			info.SizeBytes = stats.Size
			info.AvgDocSize = stats.AvgObjSize
		}

		infos = append(infos, info)
	}

	return infos, nil
}
