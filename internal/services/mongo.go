package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// CleanMongoURI strips whitespace and surrounding quotes left over from .env files
func CleanMongoURI(uri string) string {
	uri = strings.TrimSpace(uri)
	uri = strings.Trim(uri, `"'`)
	return strings.TrimSpace(uri)
}

// MaskMongoURI hides the password of a connection string for logging
func MaskMongoURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); !ok {
		return uri
	}
	u.User = url.UserPassword(u.User.Username(), "****")
	return strings.Replace(u.String(), url.QueryEscape("****"), "****", 1)
}

// InitMongo connects to MongoDB and returns the named database
func InitMongo(ctx context.Context, uri, database string, log *glog.Logger) (*mongo.Database, error) {
	uri = CleanMongoURI(uri)
	if uri == "" {
		return nil, errors.New("mongo uri is empty")
	}
	log.Infof("Connecting to MongoDB at %s", MaskMongoURI(uri))

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}

	log.Info("MongoDB connection established")
	return client.Database(database), nil
}
