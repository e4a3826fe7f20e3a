// Package pathutil manages application file paths and locations
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
)

// EnvVar selects an isolated set of files when set (e.g. "test" uses
// config_test.yml and hyperwork_test.db).
const EnvVar = "HYPERWORK_ENV"

// Paths holds all application path configurations.
type Paths struct {
	appDir              string
	configFileName      string
	dbFileName          string
	credentialsFileName string
	logFileName         string

	// Computed absolute paths
	configFilePath      string
	dbFilePath          string
	credentialsFilePath string
	logFilePath         string
}

var (
	paths   *Paths
	once    sync.Once
	initErr error
)

// Initialize must be called once at program startup.
func Initialize() error {
	once.Do(func() {
		paths = &Paths{
			appDir:              "hyperwork",
			configFileName:      "config.yml",
			dbFileName:          "hyperwork.db",
			credentialsFileName: "credentials.json",
			logFileName:         "hyperwork.log",
		}

		paths.applyEnvironmentOverrides(os.Getenv(EnvVar))
		initErr = paths.computePaths()
	})

	return initErr
}

// Must panics if paths haven't been initialized.
func Must() *Paths {
	if paths == nil {
		panic("pathutil.Initialize() must be called before accessing paths")
	}

	return paths
}

func Dir() string {
	return Must().appDir
}

func ConfigFilePath() string {
	return Must().configFilePath
}

func DBFilePath() string {
	return Must().dbFilePath
}

// CredentialsFilePath is where the signed-in user's token is kept.
func CredentialsFilePath() string {
	return Must().credentialsFilePath
}

func LogFilePath() string {
	return Must().logFilePath
}

func (p *Paths) applyEnvironmentOverrides(env string) {
	env = strings.TrimSpace(env)
	if env == "" {
		return
	}

	p.configFileName = fmt.Sprintf("config_%s.yml", env)
	p.dbFileName = fmt.Sprintf("hyperwork_%s.db", env)
	p.credentialsFileName = fmt.Sprintf("credentials_%s.json", env)
	p.logFileName = fmt.Sprintf("hyperwork_%s.log", env)
}

func (p *Paths) computePaths() error {
	var err error

	relPath := filepath.Join(p.appDir, p.configFileName)

	p.configFilePath, err = xdg.ConfigFile(relPath)
	if err != nil {
		return err
	}

	// DataFile creates the parent directories of the database file
	p.dbFilePath, err = xdg.DataFile(filepath.Join(p.appDir, p.dbFileName))
	if err != nil {
		return err
	}

	dataDir := filepath.Dir(p.dbFilePath)

	p.credentialsFilePath = filepath.Join(dataDir, p.credentialsFileName)

	p.logFilePath = filepath.Join(dataDir, "log", p.logFileName)

	return nil
}
