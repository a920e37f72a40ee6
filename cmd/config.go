package cmd

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"loadpath.dev/pkg/loadpath/internal/domain"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "loadpath"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	classpathFlagName = "classpath"
	archiveFlagName   = "archive"
	overridesFlagName = "overrides"
	excludeFlagName   = "exclude"
	parallelFlagName  = "parallel"
	verboseFlagName   = "verbose"
	mainFlagName      = "main"

	classpathConfigKey      = "classpath"
	archivesConfigKey       = "archives"
	overridesConfigKey      = "overrides"
	scanParallelConfigKey   = "scan.parallel"
	scanExcludeConfigKey    = "scan.exclude"
	codeSuffixConfigKey     = "index.code_suffix"
	archiveSuffixConfigKey  = "index.archive_suffix"
	manifestSuffixConfigKey = "index.manifest_suffix"
	resourceCacheConfigKey  = "resolver.resource_cache_size"
	metricsTextfileKey      = "metrics.textfile"

	launchMainKey           = "launch.main"
	launchUsernameKey       = "launch.username"
	launchVersionKey        = "launch.version"
	launchAccessTokenKey    = "launch.access_token"
	launchUserPropertiesKey = "launch.user_properties"
	launchGameDirKey        = "launch.game_dir"
	launchAssetsDirKey      = "launch.assets_dir"

	defaultScanParallel   = 1
	defaultLaunchMain     = domain.InspectEntryPoint
	defaultUsername       = "Player"
	defaultVersion        = "SDK"
	defaultAccessToken    = "0"
	defaultUserProperties = "{}"
	defaultGameDir        = "game"

	envPrefix = "LOADPATH"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".loadpath.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(classpathConfigKey, "")
	viper.SetDefault(archivesConfigKey, []string{})
	viper.SetDefault(overridesConfigKey, "")
	viper.SetDefault(scanParallelConfigKey, defaultScanParallel)
	viper.SetDefault(scanExcludeConfigKey, []string{})
	viper.SetDefault(codeSuffixConfigKey, domain.DefaultCodeSuffix)
	viper.SetDefault(archiveSuffixConfigKey, domain.DefaultArchiveSuffix)
	viper.SetDefault(manifestSuffixConfigKey, domain.DefaultManifestSuffix)
	viper.SetDefault(resourceCacheConfigKey, domain.DefaultResourceCacheSize)
	viper.SetDefault(metricsTextfileKey, "")

	viper.SetDefault(launchMainKey, defaultLaunchMain)
	viper.SetDefault(launchUsernameKey, defaultUsername)
	viper.SetDefault(launchVersionKey, defaultVersion)
	viper.SetDefault(launchAccessTokenKey, defaultAccessToken)
	viper.SetDefault(launchUserPropertiesKey, defaultUserProperties)
	viper.SetDefault(launchGameDirKey, defaultGameDir)
	viper.SetDefault(launchAssetsDirKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}

		slog.Warn("ignoring unreadable config file", "path", configFileName, "error", err)
	}
}

// scanOptions builds the scanner and resolver conventions from config.
func scanOptions() domain.Options {
	return domain.Options{
		CodeSuffix:        viper.GetString(codeSuffixConfigKey),
		ArchiveSuffix:     viper.GetString(archiveSuffixConfigKey),
		ManifestSuffix:    viper.GetString(manifestSuffixConfigKey),
		Exclude:           viper.GetStringSlice(scanExcludeConfigKey),
		Parallel:          viper.GetInt(scanParallelConfigKey),
		ResourceCacheSize: viper.GetInt(resourceCacheConfigKey),
	}
}

// bootstrapArgs assembles the bootstrap inputs from config, flags and env.
func bootstrapArgs() domain.BootstrapArgs {
	return domain.BootstrapArgs{
		Classpath:       parseClasspath(viper.GetString(classpathConfigKey)),
		Archives:        parsePaths(viper.GetStringSlice(archivesConfigKey)),
		Overrides:       m.Path(viper.GetString(overridesConfigKey)),
		Options:         scanOptions(),
		MetricsTextfile: m.Path(viper.GetString(metricsTextfileKey)),
	}
}

// parseClasspath splits an OS path list; an empty value falls back to $CLASSPATH.
func parseClasspath(value string) []m.Path {
	if strings.TrimSpace(value) == "" {
		value = os.Getenv("CLASSPATH")
	}

	var paths []m.Path

	for _, entry := range filepath.SplitList(value) {
		if strings.TrimSpace(entry) == "" {
			continue
		}

		paths = append(paths, m.Path(entry))
	}

	return paths
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
