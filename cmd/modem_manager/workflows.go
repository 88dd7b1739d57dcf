package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

var bringupCmd = &cobra.Command{
	Use:   "bringup",
	Short: "Power the modem and bring up the data connection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		res, err := app.BringUp(ctx)
		printBringUp(res, err)
		return err
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping the configured host over the data connection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		rep, err := app.Ping(ctx)
		printPing(rep, err)
		return err
	},
}

var tcpCmd = &cobra.Command{
	Use:   "tcp",
	Short: "Send a line to the TCP echo server and wait for it to come back",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		res, err := app.TCPTest(ctx)
		printTCP(res, err)
		return err
	},
}

var httpCmd = &cobra.Command{
	Use:   "http",
	Short: "HTTP(S) requests through the modem's HTTP stack",
}

var httpGetCmd = &cobra.Command{
	Use:   "get",
	Short: "GET the configured path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		res, err := app.HTTPGet(ctx)
		printHTTP("GET", res, err)
		return err
	},
}

var postBody string

var httpPostCmd = &cobra.Command{
	Use:   "post",
	Short: "POST a JSON body to the configured path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var body any
		if err := json.Unmarshal([]byte(postBody), &body); err != nil {
			return errors.New("--body is not valid JSON")
		}

		ctx, cancel := signalContext()
		defer cancel()

		res, err := app.HTTPPost(ctx, body)
		printHTTP("POST", res, err)
		return err
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload <certificate>",
	Short: "Store a CA certificate on the modem and convert it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		res, err := app.UploadCertificate(ctx, args[0], deleteCert)
		printUpload(res, err)
		return err
	},
}

var deleteCert bool

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the network and NB-IoT modes the firmware supports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		modes, err := app.SupportedModes(ctx)
		printModes(modes, err)
		return err
	},
}

func init() {
	httpPostCmd.Flags().StringVar(&postBody, "body", `{"Hello":"World"}`, "JSON body")
	httpCmd.AddCommand(httpGetCmd, httpPostCmd)

	uploadCmd.Flags().BoolVar(&deleteCert, "replace", false, "Delete a converted certificate of the same name first")

	rootCmd.AddCommand(bringupCmd, pingCmd, tcpCmd, httpCmd, uploadCmd, modesCmd)
}
