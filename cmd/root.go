package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "missing-persons",
	Short: "A registry of missing persons with face similarity search",
	Long: `Missing Persons is a registry of missing-person records. Each record can
carry a photo and a face descriptor, and the registry can be searched by
face similarity or by age, gender, date, location and status.

Run "missing-persons serve" to start the web interface and JSON API.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional YAML config file (keys match environment variable names)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", configFile, err)
		}
	}
}
