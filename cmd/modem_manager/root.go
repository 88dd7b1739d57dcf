package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/LeoCommon/cellgw/internal/gateway"
	"github.com/LeoCommon/cellgw/internal/gateway/config"
	"github.com/LeoCommon/cellgw/pkg/console"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	portName   string
	baudRate   int
	debug      bool

	app     *gateway.App
	printer = console.New(os.Stdout)
)

var rootCmd = &cobra.Command{
	Use:   "modem_manager",
	Short: "SIM7070G cellular gateway",
	Long: `modem_manager drives a SIMCom SIM7070G over its AT port.

It powers the modem, brings up the NB-IoT data connection and runs the
connectivity tests: ICMP ping, a TCP echo, HTTP(S) GET and POST. Every
command and response is appended to the traffic log of the [log] section.

Settings come from the TOML config, --port and --baud override the [modem] section.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Config file")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "AT command port of the modem")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Debug logging")
}

func setup(cmd *cobra.Command, _ []string) error {
	log.Init(debug)
	conf := config.NewManager()

	// The default path may be absent, an explicit one must exist
	if err := conf.Load(configPath, !cmd.Flags().Changed("config")); err != nil {
		log.Error("could not load config", zap.String("path", configPath), zap.Error(err))
		return err
	}

	if conf.Log().Debug && !debug {
		debug = true
		log.Init(debug)
	}

	conf.Modem().Set(func(c *config.ModemConfig) {
		if portName != "" {
			c.Port = portName
		}
		if baudRate > 0 {
			c.BaudRate = baudRate
		}
	})

	var err error
	app, err = gateway.Setup(conf, debug)
	return err
}

// signalContext is cancelled on SIGINT and SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command and releases the modem afterwards
func Execute() error {
	err := rootCmd.Execute()

	if app != nil {
		app.Shutdown()
	}
	log.Sync()

	return err
}
