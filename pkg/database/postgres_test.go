package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/teacher-stats-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "stats", Password: "pw", Name: "teacher_stats", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=stats password=pw dbname=teacher_stats sslmode=disable", dsn)
}
