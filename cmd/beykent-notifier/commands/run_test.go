package commands

import (
	"os"
	"path/filepath"
	"testing"

	"beykent-notifier/services/notify"

	"github.com/stretchr/testify/require"
)

func TestReadRunConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
    portal: {
        username: "20001",
        password: "hunter2",
    },
    ntfy: {
        topic: "exam-results",
    },
    ocr: {
        endpoint: "https://inference.example.com/trocr",
    },
    database: {
        file: "data/results.db",
    },
}`), 0666)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg := readRunConfig()
	require.Equal(t, notify.DefaultServer, cfg.Ntfy.Server)
	// the captcha solver receives this dir verbatim, an empty value
	// would make every solve fail on mkdir
	require.Equal(t, "data/screenshots", cfg.ScreenshotDir)
}
