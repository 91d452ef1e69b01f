package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Вспомогательные хелперы.
func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// Полный корректный YAML с заданными значениями (не зависящими от дефолтов).
const sampleYAML = `
env: "prod"
http:
  host: "127.0.0.1"
  port: "8080"
ops:
  host: "127.0.0.1"
  port: "9100"
auth:
  session_secret: "super-secret"
  session_expires: "30d"
  issuer: "portal-x"
  cookie_secrets: ["new-secret", "old-secret"]
  change_skew: "2s"
  reset_token_ttl: "15m"
db:
  db_url: "mongodb://localhost:27017/portal"
  connect_attempts: 5
redis:
  redis_url: "redis://localhost:6379/0"
timeouts:
  service: "3s"
`

// Минимально валидный YAML (только обязательные поля).
const minimalYAML = `
auth:
  session_secret: "min-secret"
  cookie_secrets: ["cookie-secret"]
db:
  db_url: "mongodb://localhost/min"
`

// Некорректный YAML — для проверки ошибок парсинга.
const brokenYAML = `
auth:
  session_secret: [unclosed
`

func TestLoad_WithExplicitPath_OK(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, EnvProd, cfg.Env)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr())
	require.Equal(t, "127.0.0.1:9100", cfg.Ops.Addr())

	require.Equal(t, "super-secret", cfg.Auth.SessionSecret)
	ttl, err := cfg.Auth.SessionTTL()
	require.NoError(t, err)
	require.Equal(t, 30*24*time.Hour, ttl)
	require.Equal(t, "portal-x", cfg.Auth.Issuer)
	require.Equal(t, []string{"new-secret", "old-secret"}, cfg.Auth.CookieSecrets)
	require.Equal(t, 2*time.Second, cfg.Auth.ChangeSkew)
	require.Equal(t, 15*time.Minute, cfg.Auth.ResetTokenTTL)

	require.Equal(t, "mongodb://localhost:27017/portal", cfg.DB.URL)
	require.EqualValues(t, 5, cfg.DB.ConnectAttempts)
	require.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	require.Equal(t, 3*time.Second, cfg.Timeouts.Service)
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", minimalYAML)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, EnvLocal, cfg.Env)
	require.False(t, cfg.IsProduction())
	require.Equal(t, "0.0.0.0:3000", cfg.HTTP.Addr())
	require.Equal(t, "0.0.0.0:9090", cfg.Ops.Addr())
	require.Equal(t, "__session", cfg.Auth.CookieName)
	require.Equal(t, 5*time.Second, cfg.Auth.ChangeSkew)
	require.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
	require.EqualValues(t, 3, cfg.DB.ConnectAttempts)
	require.Equal(t, 2*time.Second, cfg.DB.RetryDelay)
	require.Empty(t, cfg.Redis.URL)

	ttl, err := cfg.Auth.SessionTTL()
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, ttl)
}

func TestLoad_WithExplicitPath_FileDoesNotExist(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "stat failed")
}

func TestLoad_WithExplicitPath_BrokenYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "broken.yaml", brokenYAML)

	_, err := Load(cfgPath)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_WithCONFIG_PATH_OK(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "from_env_path.yaml", minimalYAML)

	t.Setenv("CONFIG_PATH", cfgPath)

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "min-secret", cfg.Auth.SessionSecret)
	require.Equal(t, "mongodb://localhost/min", cfg.DB.URL)
}

func TestLoad_WithLocalYAML_OK(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", "local.yaml", sampleYAML)

	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "super-secret", cfg.Auth.SessionSecret)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", sampleYAML)

	t.Setenv("SESSION_SECRET", "from-env")
	t.Setenv("SESSION_EXPIRES", "12h")

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.SessionSecret)

	ttl, err := cfg.Auth.SessionTTL()
	require.NoError(t, err)
	require.Equal(t, 12*time.Hour, ttl)
}

func TestLoad_DotEnvIsRead(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, ".", ".env", "SESSION_SECRET=dotenv-secret\nCOOKIE_SECRETS=a,b\nDATABASE_URL=mongodb://dotenv/db\n")

	t.Setenv("CONFIG_PATH", "")
	// t.Setenv гарантирует откат значений, выставленных godotenv.
	t.Setenv("SESSION_SECRET", "")
	require.NoError(t, os.Unsetenv("SESSION_SECRET"))
	t.Setenv("COOKIE_SECRETS", "")
	require.NoError(t, os.Unsetenv("COOKIE_SECRETS"))
	t.Setenv("DATABASE_URL", "")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "dotenv-secret", cfg.Auth.SessionSecret)
	require.Equal(t, []string{"a", "b"}, cfg.Auth.CookieSecrets)
	require.Equal(t, "mongodb://dotenv/db", cfg.DB.URL)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	badEnv := writeFile(t, dir, "bad_env.yaml", minimalYAML+"env: \"staging\"\n")
	_, err := Load(badEnv)
	require.ErrorContains(t, err, "unknown env")

	badExpiry := writeFile(t, dir, "bad_expiry.yaml", `
auth:
  session_secret: "s"
  session_expires: "soon"
  cookie_secrets: ["c"]
db:
  db_url: "mongodb://localhost/x"
`)
	_, err = Load(badExpiry)
	require.ErrorContains(t, err, "session_expires")

	blankSecrets := writeFile(t, dir, "blank_secrets.yaml", `
auth:
  session_secret: "s"
  cookie_secrets: ["  "]
db:
  db_url: "mongodb://localhost/x"
`)
	_, err = Load(blankSecrets)
	require.ErrorContains(t, err, "cookie secret")

	samePorts := writeFile(t, dir, "same_ports.yaml", minimalYAML+"http:\n  port: \"9090\"\n")
	_, err = Load(samePorts)
	require.ErrorContains(t, err, "ops port must differ")

	skewYAML := func(skew string) string {
		return `
auth:
  session_secret: "s"
  cookie_secrets: ["c"]
  change_skew: "` + skew + `"
db:
  db_url: "mongodb://localhost/x"
`
	}

	for _, skew := range []string{"0s", "500ms", "999ms", "-1s"} {
		smallSkew := writeFile(t, dir, "small_skew.yaml", skewYAML(skew))
		_, err = Load(smallSkew)
		require.ErrorContains(t, err, "change_skew must be at least 1s", skew)
	}

	minSkew := writeFile(t, dir, "min_skew.yaml", skewYAML("1s"))
	cfg, err := Load(minSkew)
	require.NoError(t, err)
	require.Equal(t, time.Second, cfg.Auth.ChangeSkew)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	})
}

func TestParseExpiry(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"1.5d", 36 * time.Hour, true},
		{"90m", 90 * time.Minute, true},
		{"3600000", time.Hour, true},
		{"3600", 3600 * time.Millisecond, true},
		{" 2h ", 2 * time.Hour, true},
		{"500ms", 500 * time.Millisecond, true},
		{"", 0, false},
		{"0", 0, false},
		{"-1h", 0, false},
		{"xd", 0, false},
		{"week", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseExpiry(tc.in)
		if !tc.ok {
			require.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}
