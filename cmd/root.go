package cmd

import (
	"fmt"
	"os"

	"github.com/embtoolkit/elftoolchain-go/cmd/copy"
	"github.com/embtoolkit/elftoolchain-go/cmd/inspect"
	"github.com/embtoolkit/elftoolchain-go/cmd/mcs"
	"github.com/embtoolkit/elftoolchain-go/cmd/strip"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "elftoolchain",
	Short: "A set of ELF/DWARF object file tools",
	Long: `elftoolchain bundles strip, copy (objcopy), mcs, and inspect under one
binary, driving a shared ELF rewriter and DWARF library.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.elftoolchain.yaml)")
	RootCmd.AddCommand(strip.Cmd, copy.Cmd, mcs.Cmd, inspect.Cmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".elftoolchain")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
