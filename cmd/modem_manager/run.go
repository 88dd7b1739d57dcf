package main

import (
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/systemd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	skipPing bool
	skipTCP  bool
	skipHTTP bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Bring the modem up and run every connectivity test",
	Long: `run powers the modem, brings up the data connection and then runs the ping,
TCP echo and HTTP GET/POST tests in that order. A failed test is reported and
the next one still runs, a failed bring-up ends the run.`,
	RunE: runAll,
}

func init() {
	runCmd.Flags().BoolVar(&skipPing, "skip-ping", false, "Skip the ping test")
	runCmd.Flags().BoolVar(&skipTCP, "skip-tcp", false, "Skip the TCP echo test")
	runCmd.Flags().BoolVar(&skipHTTP, "skip-http", false, "Skip the HTTP tests")
	rootCmd.AddCommand(runCmd)
}

func runAll(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	res, err := app.BringUp(ctx)
	printBringUp(res, err)
	if err != nil {
		return err
	}

	systemd.NotifyIfSupervised(systemd.NotifyReady)
	defer systemd.NotifyIfSupervised(systemd.NotifyStopping)

	var failed int

	if !skipPing {
		rep, err := app.Ping(ctx)
		printPing(rep, err)
		if err != nil {
			failed++
		}
	}

	if !skipTCP {
		res, err := app.TCPTest(ctx)
		printTCP(res, err)
		if err != nil {
			failed++
		}
	}

	if !skipHTTP {
		res, err := app.HTTPGet(ctx)
		printHTTP("GET", res, err)
		if err != nil {
			failed++
		}

		res, err = app.HTTPPost(ctx, map[string]string{"Hello": "World"})
		printHTTP("POST", res, err)
		if err != nil {
			failed++
		}
	}

	if failed > 0 {
		log.Warn("run finished with failed tests", zap.Int("failed", failed))
		return errTestsFailed
	}
	return nil
}
