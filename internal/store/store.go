// Package store persists competitors and generated artifacts for the guardrail engine.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// Store is the persistence surface shared by the Mongo and SQLite backends.
type Store interface {
	ListCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error)
	SaveCompetitor(ctx context.Context, competitor models.Competitor) error
	ListArtifacts(ctx context.Context, projectID string, types []models.ArtifactType) ([]models.Artifact, error)
	SaveArtifact(ctx context.Context, artifact models.Artifact) error
	RunsSince(ctx context.Context, since time.Time) ([]models.RunRef, error)
	Close(ctx context.Context) error
}

// Drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration
	SQLitePath    string
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverMongo:
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoTimeout)
	case DriverSQLite, "":
		return OpenSQLite(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func validateArtifact(a models.Artifact) error {
	if a.ProjectID == "" {
		return errors.New("artifact project id is required")
	}
	if a.Type == "" {
		return errors.New("artifact type is required")
	}
	return nil
}
