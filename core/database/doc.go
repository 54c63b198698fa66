// Package database opens the optional catalog database.
//
// Connect wraps GORM and picks the dialect from database.driver: "sqlite" opens a
// local file (or an in-memory database in tests), "mysql" builds a go-sql-driver
// DSN with utf8mb4 and connection timeouts. Both are verified with a ping.
//
// TableColumns and MissingColumns inspect a live table, which lets callers detect
// a catalog schema that drifted from the model.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", zap.Error(err))
//	}
package database
