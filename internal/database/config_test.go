package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetConfig_Defaults(t *testing.T) {
	c := GetConfig()

	assert.Equal(t, "archivist", c.Name)
	assert.Equal(t, "disable", c.SSLMode)
	assert.Equal(t, 5*time.Second, c.ConnectTimeout)
	assert.Equal(t, 10, c.MaxOpenConns)
}

func TestDBConfig_DSN(t *testing.T) {
	c := &DBConfig{
		Host:           "db.club.internal",
		Port:           "5432",
		User:           "archivist",
		Password:       "hush",
		Name:           "archivist",
		SSLMode:        "require",
		ConnectTimeout: 3 * time.Second,
	}

	assert.Equal(t,
		"host=db.club.internal port=5432 user=archivist password=hush dbname=archivist sslmode=require connect_timeout=3",
		c.DSN())
}
