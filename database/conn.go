/*
 * Copyright 2025 the magpie authors.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/magpie-io/magpie/metadata"
)

var (
	globalFactory *BaseDatabaseFactory
	globalConfig  *Config
	globalWatcher *metadata.Watcher
	DB            *bun.DB
)

// GetDB returns the global Bun database instance.
func GetDB() *bun.DB {
	if globalFactory != nil {
		return globalFactory.GetDB()
	}
	return DB
}

// GetDatabaseManager returns the global database manager.
func GetDatabaseManager() AbstractDatabaseManager {
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// GetDatabaseFactory returns the global database factory.
func GetDatabaseFactory() *BaseDatabaseFactory {
	return globalFactory
}

// InitDB initializes the global database using the provided configuration and
// loads metadata documents from the configured directory into the default
// registry. With metadata.watch enabled the directory is also watched for
// changes, so edited documents re-register without a restart.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	globalConfig = cfg
	globalFactory = NewDatabaseFactory()
	manager, err := globalFactory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}

	ctx := context.Background()
	if err := globalFactory.InitializeDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	DB = manager.GetDB()

	if cfg.MetadataConfig.Dir != "" {
		if cfg.MetadataConfig.Watch {
			watcher, err := metadata.Default().Watch(cfg.MetadataConfig.Dir)
			if err != nil {
				return nil, fmt.Errorf("failed to watch metadata directory: %w", err)
			}
			globalWatcher = watcher
		} else if err := metadata.Default().LoadDir(cfg.MetadataConfig.Dir); err != nil {
			return nil, fmt.Errorf("failed to load metadata directory: %w", err)
		}
	}
	return DB, nil
}

// CloseDB closes the global database connection and stops the metadata
// watcher if one is running.
func CloseDB() error {
	if globalWatcher != nil {
		_ = globalWatcher.Close()
		globalWatcher = nil
	}
	if globalFactory != nil {
		return globalFactory.Close()
	}
	return nil
}

// GetHealthStatus returns the current database health status.
func GetHealthStatus(ctx context.Context) *HealthStatus {
	if globalFactory != nil {
		return globalFactory.GetHealthStatus(ctx)
	}
	return &HealthStatus{
		Healthy:   false,
		Connected: false,
		LastError: "Database not initialized",
	}
}

// GetDatabaseStats returns global database statistics.
func GetDatabaseStats() *DBStats {
	if globalFactory != nil {
		return globalFactory.GetStats()
	}
	return &DBStats{}
}
