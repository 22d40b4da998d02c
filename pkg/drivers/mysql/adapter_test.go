package mysql

import (
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

func TestBuildDSN(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dsn := buildDSN(core.DatabaseConfig{Database: "app"})

		mc, err := gomysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "localhost:3306", mc.Addr)
		assert.Equal(t, "app", mc.DBName)
		assert.True(t, mc.ParseTime)
	})

	t.Run("credentials and options round trip", func(t *testing.T) {
		dsn := buildDSN(core.DatabaseConfig{
			Host:     "edge.example.com",
			Port:     3307,
			Database: "app",
			Username: "svc",
			Password: "hunter2",
			Options:  map[string]string{"charset": "utf8mb4"},
		})

		mc, err := gomysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "edge.example.com:3307", mc.Addr)
		assert.Equal(t, "svc", mc.User)
		assert.Equal(t, "hunter2", mc.Passwd)
		assert.Equal(t, "utf8mb4", mc.Params["charset"])
	})
}

func TestConnectionInfoUsesDatabaseAsSchema(t *testing.T) {
	a := &Adapter{}
	a.Cfg.Database = "app"

	info, ok := a.ConnectionInfo()
	assert.True(t, ok)
	assert.Equal(t, "app", info.Schema)
	assert.Equal(t, 65535, info.MaxBindValues)
}
