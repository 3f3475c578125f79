// Command mediagate runs the media/static/application gateway.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"example.com/mediagate/internal/config"
	"example.com/mediagate/internal/logger"
	"example.com/mediagate/internal/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mediagate",
	Short: "HTTP gateway for a socket-backed web application",
	Long: `mediagate routes requests between an application backend on a local
Unix-domain socket, static media and asset directories, and custom error
documents, and sanitizes user-uploaded media so it can never execute or
render as code.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the configuration and serve until interrupted",
	RunE:  runServe,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and exit",
	Long: `check runs the same loading and validation as serve and reports the
outcome per section. It exits non-zero if the gateway would refuse to start.`,
	RunE: runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the TOML configuration file (required)")
	rootCmd.MarkPersistentFlagRequired("config")
	rootCmd.AddCommand(serveCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", configPath, err)
	}
	return config.Load(abs)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lg, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer lg.Close()

	srv, err := server.New(cfg, lg)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}
	return srv.Run()
}

func runCheck(cmd *cobra.Command, args []string) error {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", fail("FAIL"), err)
		return fmt.Errorf("configuration invalid")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s server: listening on %s", pass("PASS"), cfg.Server.Listen)
	if cfg.Server.ServerName != "" {
		fmt.Fprintf(out, " as %s", cfg.Server.ServerName)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s routes: media=%s static=%s errordocs=%s uploads=%s\n", pass("PASS"),
		cfg.Routes.MediaPrefix, cfg.Routes.StaticPrefix, cfg.Routes.ErrorDocsPrefix, cfg.Routes.UploadPrefix)
	fmt.Fprintf(out, "%s backend: %s %s\n", pass("PASS"), cfg.Backend.Network, cfg.Backend.Address)
	fmt.Fprintf(out, "%s uploads: %d risky extensions forced to %s\n", pass("PASS"),
		len(cfg.Uploads.RiskyExtensions), cfg.Uploads.ForcedContentType)
	if *cfg.Metrics.Enabled {
		fmt.Fprintf(out, "%s metrics: %s\n", pass("PASS"), cfg.Metrics.Listen)
	}
	fmt.Fprintln(out, "configuration OK")
	return nil
}
