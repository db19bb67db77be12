package database

import (
	"context"
	"fmt"
	"time"

	"cleanbook/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/valkey-io/valkey-go"
)

// Valkey database indexes, one per cache category
const (
	// GENERAL_CACHE_INDEX (DB 0) - anything without its own category
	GENERAL_CACHE_INDEX = iota

	// USER_CACHE_INDEX (DB 1) - users by auth subject
	USER_CACHE_INDEX

	// EVENTS_CACHE_INDEX (DB 2) - pub/sub for job events
	EVENTS_CACHE_INDEX

	// PRICING_CACHE_INDEX (DB 3) - active service pricing rows
	PRICING_CACHE_INDEX

	// LOOKUP_CACHE_INDEX (DB 4) - company registry and address responses
	LOOKUP_CACHE_INDEX
)

func (s *DB) initializeCacheDB(config config.Config) error {
	log := s.log.Function("initializeCacheDB")
	log.Info("initializing cache database")

	address := config.DatabaseCacheAddress
	port := config.DatabaseCachePort
	if address == "" || port == 0 {
		if config.DatabaseDriver == "sqlite" {
			log.Warn("cache address not set, running without valkey")
			return nil
		}
		return log.Errorf("failed to initialize cache database", "address or port is empty")
	}

	newClient := func(index int) (CacheClient, error) {
		return valkey.NewClient(
			valkey.ClientOption{
				InitAddress: []string{fmt.Sprintf("%s:%d", address, port)},
				SelectDB:    index,
			},
		)
	}

	var cacheDB Cache
	var err error

	if cacheDB.General, err = newClient(GENERAL_CACHE_INDEX); err != nil {
		return log.Err("failed to create general valkey client", err)
	}
	if cacheDB.User, err = newClient(USER_CACHE_INDEX); err != nil {
		return log.Err("failed to create user valkey client", err)
	}
	if cacheDB.Events, err = newClient(EVENTS_CACHE_INDEX); err != nil {
		return log.Err("failed to create events valkey client", err)
	}
	if cacheDB.Pricing, err = newClient(PRICING_CACHE_INDEX); err != nil {
		return log.Err("failed to create pricing valkey client", err)
	}
	if cacheDB.Lookup, err = newClient(LOOKUP_CACHE_INDEX); err != nil {
		return log.Err("failed to create lookup valkey client", err)
	}

	s.Cache = cacheDB

	if config.DatabaseCacheReset != -1 {
		go clearCacheDB(config.DatabaseCacheReset, cacheDB)
	}

	return nil
}

func cacheClientForIndex(index int, cacheDB Cache) (CacheClient, string, bool) {
	switch index {
	case GENERAL_CACHE_INDEX:
		return cacheDB.General, "General", true
	case USER_CACHE_INDEX:
		return cacheDB.User, "User", true
	case EVENTS_CACHE_INDEX:
		return cacheDB.Events, "Events", true
	case PRICING_CACHE_INDEX:
		return cacheDB.Pricing, "Pricing", true
	case LOOKUP_CACHE_INDEX:
		return cacheDB.Lookup, "Lookup", true
	}
	return nil, "", false
}

func clearCacheDB(index int, cacheDB Cache) {
	log := logger.New("database").File("cache.database").Function("clearCacheDB")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, dbName, ok := cacheClientForIndex(index, cacheDB)
	if !ok || client == nil {
		log.Warn("Invalid cache database index", "index", index)
		return
	}

	if err := client.Do(ctx, client.B().Flushdb().Build()).Error(); err != nil {
		log.Er("Failed to clear cache database", err, "index", index, "dbName", dbName)
		return
	}

	log.Info("Successfully cleared cache database", "index", index, "dbName", dbName)
}
