package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"loadpath.dev/pkg/loadpath/internal/domain"
	m "loadpath.dev/pkg/loadpath/internal/model"
)

const launchLongDescription = `Index the search path, merge the overrides once and hand control to the
registered entry point given by --main.

The entry point receives the baseline arguments
  --username --version --accessToken --userProperties --assetsDir --gameDir
followed by everything after "--". A "--key value" pair whose key is already
in the baseline replaces that value instead of being appended.`

var launchMainFlag string
var launchUsernameFlag string
var launchVersionFlag string
var launchAccessTokenFlag string
var launchUserPropertiesFlag string
var launchGameDirFlag string
var launchAssetsDirFlag string

// launchCmd represents the launch command.
var launchCmd = newLaunchCmd()

func newLaunchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch [-- args...]",
		Short: "Build the unit index and run an entry point",
		Long:  launchLongDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			return workflow.Launch(cmd.Context(), bootstrapArgs(), launchArgs(args))
		},
	}

	configureLaunchFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

func configureLaunchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&launchMainFlag, mainFlagName, "m", viper.GetString(launchMainKey), "registered entry point to run")
	bindFlagToConfig(cmd.Flags().Lookup(mainFlagName), launchMainKey)

	cmd.Flags().StringVar(&launchUsernameFlag, "username", viper.GetString(launchUsernameKey), "value of --username handed to the entry point")
	bindFlagToConfig(cmd.Flags().Lookup("username"), launchUsernameKey)

	cmd.Flags().StringVar(&launchVersionFlag, "game-version", viper.GetString(launchVersionKey), "value of --version handed to the entry point")
	bindFlagToConfig(cmd.Flags().Lookup("game-version"), launchVersionKey)

	cmd.Flags().StringVar(&launchAccessTokenFlag, "access-token", viper.GetString(launchAccessTokenKey), "value of --accessToken handed to the entry point")
	bindFlagToConfig(cmd.Flags().Lookup("access-token"), launchAccessTokenKey)

	cmd.Flags().StringVar(&launchUserPropertiesFlag, "user-properties", viper.GetString(launchUserPropertiesKey), "value of --userProperties handed to the entry point")
	bindFlagToConfig(cmd.Flags().Lookup("user-properties"), launchUserPropertiesKey)

	cmd.Flags().StringVar(&launchGameDirFlag, "game-dir", viper.GetString(launchGameDirKey), "working directory handed to the entry point as --gameDir")
	bindFlagToConfig(cmd.Flags().Lookup("game-dir"), launchGameDirKey)

	cmd.Flags().StringVar(&launchAssetsDirFlag, "assets-dir", viper.GetString(launchAssetsDirKey), "assets directory handed as --assetsDir (default <game-dir>/assets)")
	bindFlagToConfig(cmd.Flags().Lookup("assets-dir"), launchAssetsDirKey)
}

func launchArgs(extra []string) domain.LaunchArgs {
	return domain.LaunchArgs{
		Main:           viper.GetString(launchMainKey),
		Username:       viper.GetString(launchUsernameKey),
		Version:        viper.GetString(launchVersionKey),
		AccessToken:    viper.GetString(launchAccessTokenKey),
		UserProperties: viper.GetString(launchUserPropertiesKey),
		GameDir:        m.Path(viper.GetString(launchGameDirKey)),
		AssetsDir:      m.Path(viper.GetString(launchAssetsDirKey)),
		Extra:          extra,
	}
}
