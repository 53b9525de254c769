package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
)

const (
	competitorsCollection = "competitors"
	artifactsCollection   = "artifacts"
)

// MongoStore implements Store on MongoDB.
type MongoStore struct {
	client      *mongo.Client
	competitors *mongo.Collection
	artifacts   *mongo.Collection
}

type competitorDoc struct {
	ID        string `bson:"_id"`
	ProjectID string `bson:"project_id"`
	Name      string `bson:"name"`
	URL       string `bson:"url"`
}

type artifactDoc struct {
	ID            string    `bson:"_id"`
	ProjectID     string    `bson:"project_id"`
	RunID         string    `bson:"run_id"`
	Type          string    `bson:"type"`
	SchemaVersion int       `bson:"schema_version"`
	Content       bson.Raw  `bson:"content,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
}

// OpenMongo connects to uri and pings the server before returning.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		database = "guardrails"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:      client,
		competitors: db.Collection(competitorsCollection),
		artifacts:   db.Collection(artifactsCollection),
	}
	_, err = s.artifacts.Indexes().CreateMany(connectCtx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create artifact indexes: %w", err)
	}
	return s, nil
}

// ListCompetitors returns a project's competitors ordered by id.
func (s *MongoStore) ListCompetitors(ctx context.Context, projectID string) ([]models.Competitor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.competitors.Find(ctx, bson.M{"project_id": projectID}, opts)
	if err != nil {
		return nil, utils.NewAppError("mongo.ListCompetitors", "find failed", err)
	}
	var docs []competitorDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.NewAppError("mongo.ListCompetitors", "decode failed", err)
	}

	competitors := make([]models.Competitor, 0, len(docs))
	for _, d := range docs {
		competitors = append(competitors, models.Competitor{ID: d.ID, ProjectID: d.ProjectID, Name: d.Name, URL: d.URL})
	}
	return competitors, nil
}

// SaveCompetitor upserts a competitor.
func (s *MongoStore) SaveCompetitor(ctx context.Context, c models.Competitor) error {
	if c.ProjectID == "" {
		return fmt.Errorf("competitor project id is required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	doc := competitorDoc{ID: c.ID, ProjectID: c.ProjectID, Name: c.Name, URL: c.URL}
	_, err := s.competitors.ReplaceOne(ctx, bson.M{"_id": c.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return utils.NewAppError("mongo.SaveCompetitor", "upsert failed", err)
	}
	return nil
}

// ListArtifacts returns a project's artifacts of the given types, newest first.
func (s *MongoStore) ListArtifacts(ctx context.Context, projectID string, types []models.ArtifactType) ([]models.Artifact, error) {
	filter := bson.M{"project_id": projectID}
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, string(t))
		}
		filter["type"] = bson.M{"$in": names}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.artifacts.Find(ctx, filter, opts)
	if err != nil {
		return nil, utils.NewAppError("mongo.ListArtifacts", "find failed", err)
	}
	var docs []artifactDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, utils.NewAppError("mongo.ListArtifacts", "decode failed", err)
	}

	artifacts := make([]models.Artifact, 0, len(docs))
	for _, d := range docs {
		artifact := models.Artifact{
			ID:            d.ID,
			ProjectID:     d.ProjectID,
			RunID:         d.RunID,
			Type:          models.ArtifactType(d.Type),
			SchemaVersion: d.SchemaVersion,
			CreatedAt:     d.CreatedAt,
		}
		if len(d.Content) > 0 {
			content, err := bson.MarshalExtJSON(d.Content, false, false)
			if err != nil {
				return nil, utils.NewAppError("mongo.ListArtifacts", "encode content", err)
			}
			artifact.Content = json.RawMessage(content)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, nil
}

// SaveArtifact upserts an artifact. Content must be a JSON object.
func (s *MongoStore) SaveArtifact(ctx context.Context, a models.Artifact) error {
	if err := validateArtifact(a); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	doc := artifactDoc{
		ID:            a.ID,
		ProjectID:     a.ProjectID,
		RunID:         a.RunID,
		Type:          string(a.Type),
		SchemaVersion: a.SchemaVersion,
		CreatedAt:     a.CreatedAt.UTC(),
	}
	if len(a.Content) > 0 && string(a.Content) != "null" {
		var content bson.Raw
		if err := bson.UnmarshalExtJSON(a.Content, false, &content); err != nil {
			return utils.NewAppError("mongo.SaveArtifact", "content is not a JSON object", err)
		}
		doc.Content = content
	}
	_, err := s.artifacts.ReplaceOne(ctx, bson.M{"_id": a.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return utils.NewAppError("mongo.SaveArtifact", "upsert failed", err)
	}
	return nil
}

// RunsSince lists runs whose newest artifact was created after since, oldest first.
func (s *MongoStore) RunsSince(ctx context.Context, since time.Time) ([]models.RunRef, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"run_id": bson.M{"$ne": ""}}}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"project_id": "$project_id", "run_id": "$run_id"},
			"latest": bson.M{"$max": "$created_at"},
		}}},
		{{Key: "$match", Value: bson.M{"latest": bson.M{"$gt": since.UTC()}}}},
		{{Key: "$sort", Value: bson.D{{Key: "latest", Value: 1}}}},
	}
	cursor, err := s.artifacts.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, utils.NewAppError("mongo.RunsSince", "aggregate failed", err)
	}
	var rows []struct {
		ID struct {
			ProjectID string `bson:"project_id"`
			RunID     string `bson:"run_id"`
		} `bson:"_id"`
		Latest time.Time `bson:"latest"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, utils.NewAppError("mongo.RunsSince", "decode failed", err)
	}

	runs := make([]models.RunRef, 0, len(rows))
	for _, r := range rows {
		runs = append(runs, models.RunRef{ProjectID: r.ID.ProjectID, RunID: r.ID.RunID, CreatedAt: r.Latest})
	}
	return runs, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
