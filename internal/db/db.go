package db

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var DB *sql.DB

// Init opens the postgres connection shared by the repositories.
func Init(databaseURL string, logger *logrus.Logger) {
	var err error
	DB, err = sql.Open("postgres", databaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to DB")
	}

	if err = DB.Ping(); err != nil {
		logger.WithError(err).Fatal("failed to ping DB")
	}

	logger.Info("✅ Connected to database")
}
