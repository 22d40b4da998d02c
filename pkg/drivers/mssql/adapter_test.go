package mssql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querypipe/pkg/core"
)

func TestBuildDSN(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		u, err := url.Parse(buildDSN(core.DatabaseConfig{Database: "app"}))
		require.NoError(t, err)
		assert.Equal(t, "sqlserver", u.Scheme)
		assert.Equal(t, "localhost:1433", u.Host)
		assert.Equal(t, "app", u.Query().Get("database"))
		assert.Nil(t, u.User)
	})

	t.Run("credentials and options", func(t *testing.T) {
		u, err := url.Parse(buildDSN(core.DatabaseConfig{
			Host:     "sql.internal",
			Port:     14330,
			Database: "app",
			Username: "svc",
			Password: "hunter2",
			Options:  map[string]string{"encrypt": "true"},
		}))
		require.NoError(t, err)
		assert.Equal(t, "sql.internal:14330", u.Host)
		assert.Equal(t, "svc", u.User.Username())
		pw, set := u.User.Password()
		assert.True(t, set)
		assert.Equal(t, "hunter2", pw)
		assert.Equal(t, "true", u.Query().Get("encrypt"))
	})
}

func TestConnectionInfoDefaultsToDbo(t *testing.T) {
	a := &Adapter{}
	info, ok := a.ConnectionInfo()
	assert.True(t, ok)
	assert.Equal(t, "dbo", info.Schema)
	assert.Equal(t, 2100, info.MaxBindValues)
}
