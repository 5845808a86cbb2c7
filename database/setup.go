package database

import (
	"context"

	"github.com/Aditya-GrowAI/civicvoice3/config"

	"github.com/apex/log"
)

// NewIssueStore builds the configured store. Missing or unreachable stores
// never stop startup; they yield a Disconnected store instead.
func NewIssueStore(ctx context.Context, cfg *config.Config) IssueStore {
	switch cfg.StoreDriver {
	case "mysql":
		s, err := NewMySQLStore(ctx, cfg.MySQLDSN(), cfg.StoreTimeout)
		if err != nil {
			log.Errorf("Could not connect to MySQL: %v", err)
			return Disconnected{Reason: err.Error()}
		}
		if err := s.CreateIssuesTable(ctx); err != nil {
			log.Errorf("Failed to create issues table: %v", err)
		}
		log.Info("Successfully connected to MySQL!")
		return s
	default:
		if cfg.MongoURL == "" {
			log.Warn("MONGODB_URL not found in environment variables, issue storage is disabled")
			return Disconnected{Reason: "MONGODB_URL not set"}
		}
		s, err := NewMongoStore(ctx, cfg.MongoURL, cfg.MongoDatabase, cfg.StoreTimeout)
		if err != nil {
			log.Errorf("Could not create MongoDB client: %v", err)
			return Disconnected{Reason: err.Error()}
		}
		if err := s.Ping(ctx); err != nil {
			log.Errorf("Could not connect to MongoDB: %v", err)
		} else {
			log.Info("Successfully connected to MongoDB!")
		}
		return s
	}
}
