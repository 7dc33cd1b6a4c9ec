package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "pebble", cfg.Store)
	require.Equal(t, "store", cfg.Queue)
	require.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 5*time.Minute, cfg.RateLimit)
	require.EqualValues(t, 4*1024*1024, cfg.MaxSourceBytes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DUEL_STORE", "memory")
	t.Setenv("DUEL_RATE_LIMIT", "30s")
	t.Setenv("DUEL_SCHEDULER_URL", "http://sched:9000")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Store)
	require.Equal(t, 30*time.Second, cfg.RateLimit)
	require.Equal(t, "http://sched:9000", cfg.SchedulerURL)
}

func TestLoadRejectsSqsWithoutUrl(t *testing.T) {
	t.Setenv("DUEL_QUEUE", "sqs")
	_, err := load(viper.New())
	require.Error(t, err)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	t.Setenv("DUEL_STORE", "mongo")
	_, err := load(viper.New())
	require.Error(t, err)
}

func TestParseContest(t *testing.T) {
	c, err := ParseContest([]byte(`
variant = "scheduling"
testcases = 6

[buckets]
usercontent = "uc"
`))
	require.NoError(t, err)
	require.Equal(t, "scheduling", c.Variant)
	require.Equal(t, 6, c.Testcases)
	require.Equal(t, "uc", c.Buckets.UserContent)
	require.Equal(t, "5bt", c.Buckets.Testcases)
	require.Equal(t, "slo", c.Programs.Slo)
}

func TestParseContestRejectsZeroTestcases(t *testing.T) {
	_, err := ParseContest([]byte(`testcases = 0`))
	require.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env")))

	// a directory cannot be read as an env file
	require.Error(t, loadEnvFile(dir))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DUEL_ENVFILE_PORT=9090\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DUEL_ENVFILE_PORT") })
	require.NoError(t, loadEnvFile(path))
	require.Equal(t, "9090", os.Getenv("DUEL_ENVFILE_PORT"))
}
