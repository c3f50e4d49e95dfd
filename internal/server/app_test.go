package server

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = "memory://"
	c.Environment = config.EnvTest
	c.BcryptCost = 4
	return c
}

func TestNewApp_Memory(t *testing.T) {
	app, err := NewApp(context.Background(), memoryConfig())
	require.NoError(t, err)

	assert.Nil(t, app.db)
	assert.NotNil(t, app.tokens)
	assert.NotNil(t, app.userService)

	res, err := app.userService.Register(context.Background(), "a@example.com", "alice", "Test1234")
	require.NoError(t, err)

	claims, err := app.tokens.VerifyAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.RefreshSecretKey = c.AccessSecretKey

	_, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestRun_StopsWhenContextIsCancelled(t *testing.T) {
	c := memoryConfig()
	c.EndpointAddrHTTP = "127.0.0.1:0"

	app, err := NewApp(context.Background(), c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	cancel()
	<-done
}
