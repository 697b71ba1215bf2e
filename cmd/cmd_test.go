package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryEnv(t *testing.T) {
	t.Helper()
	envFile = filepath.Join(t.TempDir(), "missing.env")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("LOG_MODE", "prod")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("R2_ACCOUNT_ID", "")
}

func TestOneShotCommands_MemoryDriver(t *testing.T) {
	memoryEnv(t)

	for name, tc := range map[string]struct {
		build func() *cobra.Command
		want  string
	}{
		"refresh": {newRefreshDailiesCmd, "0 users refreshed\n"},
		"sweep":   {newSweepChallengesCmd, "0 challenges closed\n"},
		"migrate": {newMigrateCmd, "memory driver has no schema, nothing to do\n"},
	} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			c := tc.build()
			c.SetOut(&out)
			c.SetArgs([]string{})
			require.NoError(t, c.Execute())
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestBootstrap_RejectsUnknownDriver(t *testing.T) {
	memoryEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	c := newRefreshDailiesCmd()
	c.SetOut(&bytes.Buffer{})
	c.SetArgs([]string{})
	err := c.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
