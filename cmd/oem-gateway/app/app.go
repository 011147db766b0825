package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loafoe/kong-plugin-oemgateway/cmd/oem-gateway/app/options"
	"github.com/loafoe/kong-plugin-oemgateway/gateway"
	"github.com/loafoe/kong-plugin-oemgateway/log"
)

const envPrefix = "OEMGW"

func NewGatewayCommand(ctx context.Context) *cobra.Command {
	opts := options.NewGatewayOptions()
	var configFile string
	cmd := &cobra.Command{
		Use:          "oem-gateway",
		Short:        "Serve the OEM telemetry gateway over HTTP",
		Long:         "The OEM telemetry gateway exchanges client credentials for vendor tokens, calls the vendor telematics API and returns normalized fleet data.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, configFile, opts); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			log.Init(opts.Log)
			logger := log.Std()

			stack, err := gateway.Build(ctx, opts.Settings(), logger)
			if err != nil {
				logger.Error(err, "failed to build gateway")
				return err
			}
			srv := NewServer(stack, opts.HTTP, logger)
			if err := srv.Run(ctx); err != nil {
				logger.Error(err, "server stopped with error")
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Optional configuration file (yaml, json or toml).")
	opts.AddFlags(cmd.Flags())
	return cmd
}

// loadConfig layers a .env file, OEMGW_* variables and the optional config
// file under the command line flags and decodes the result into opts.
func loadConfig(cmd *cobra.Command, configFile string, opts *options.GatewayOptions) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("error decoding configuration: %w", err)
	}
	return nil
}
