package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/malei-pku/exposure-render/internal/config"
	"github.com/malei-pku/exposure-render/internal/logging"
)

var (
	cfgFile string
	verbose bool
	quiet   bool

	// cfg is loaded before every command runs
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "buf2d",
	Short: "Inspect and exercise memory-space-aware 2D buffers",
	Long: `buf2d drives two-dimensional buffers that live either in host memory or
in accelerator memory.

It allocates, fills, copies and displays buffers so that allocation,
zeroing and the four transfer directions between host and device can be
checked on the current machine. Without a CUDA device an emulated
accelerator stands in for device memory.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.buf2d/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet mode")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("device", "", "device backend: auto, cpu, cuda, emulated")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))

	rootCmd.RegisterFlagCompletionFunc("device", completeDevice)
}

// loadConfig reads the config file and environment, then applies the
// global flags on top.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	if backend := viper.GetString("device"); backend != "" {
		c.Device.Backend = backend
	}
	if viper.GetBool("no-color") {
		c.View.Color = false
	}
	switch {
	case verbose:
		c.Logging.Level = "debug"
		c.Logging.Console = true
	case quiet:
		c.Logging.Level = "error"
	}

	if err := c.Validate(); err != nil {
		return err
	}
	if err := logging.Init(c.Logging.Level, c.Logging.File, c.Logging.Console); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logging.Debugf("config loaded: backend=%s space=%s element=%s", c.Device.Backend, c.Buffer.Space, c.Buffer.Element)

	cfg = c
	return nil
}
