package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mapstitcher",
	Short: "Offline world heightmap and watermask builder",
	Long: `Fast-MapStitcher composites Terrarium elevation tiles and rasterized water
polygons into a single compressed world map.

Configuration is read from a toml file, MAPSTITCHER_* environment variables
and command-line flags.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initConf(cfgFile)
		initLog(viper.GetString("log.file"), viper.GetString("log.level"))
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Decode tiles, rasterize water and write the stitched map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(func(task *Task) error { return task.Build() })
	},
}

var rasterizeCmd = &cobra.Command{
	Use:   "rasterize",
	Short: "Rasterize water polygons into the watermask cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTask(func(task *Task) error { return task.Rasterize() })
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode a heightmap tile or a stitched map and print its statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(args[0])
	},
}

var packCmd = &cobra.Command{
	Use:   "pack <in.mapdat> <out.heightmap>",
	Short: "Re-encode the heights of a stitched map as a Terrarium raster",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return pack(args[0], args[1], viper.GetUint32("pack.chunk"), viper.GetString("pack.filter"))
	},
}

func runTask(run func(task *Task) error) error {
	start := time.Now()
	task, err := NewTask()
	if err != nil {
		return err
	}
	defer task.Close()
	if err := run(task); err != nil {
		log.Errorf("task %s failed ~ %s", task.ID, err)
		return err
	}
	log.Infof("task %s finished in %.3fs", task.ID, time.Since(start).Seconds())
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "conf.toml", "set config `file`")
	rootCmd.PersistentFlags().Int("workers", 0, "worker count, 0 uses every CPU")
	rootCmd.PersistentFlags().String("log-file", "mapstitcher.log", "append log output to `file`")
	rootCmd.PersistentFlags().String("log-level", "debug", "log level")
	bindFlag("task.workers", "workers")
	bindFlag("log.file", "log-file")
	bindFlag("log.level", "log-level")

	packCmd.Flags().Uint32("chunk", 256, "chunk edge length in pixels")
	packCmd.Flags().String("filter", "paeth", "chunk filter: none, left, up, average or paeth")
	_ = viper.BindPFlag("pack.chunk", packCmd.Flags().Lookup("chunk"))
	_ = viper.BindPFlag("pack.filter", packCmd.Flags().Lookup("filter"))

	rootCmd.AddCommand(buildCmd, rasterizeCmd, inspectCmd, packCmd)
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}
