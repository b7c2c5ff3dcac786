// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/tcp-warp/tcp-warp/addr"
	"github.com/tcp-warp/tcp-warp/client"
	"github.com/tcp-warp/tcp-warp/stats"
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "tcpwarp-client"
	myApp.Usage = "tcp-warp client: bind local ports and tunnel them to a tcp-warp server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "bind",
			Value: "0.0.0.0",
			Usage: "address to bind accepted local listeners on",
		},
		cli.StringFlag{
			Name:  "tunnel",
			Value: "127.0.0.1:18000",
			Usage: "address of the tcp-warp server carrier",
		},
		cli.StringSliceFlag{
			Name:  "connection",
			Usage: `port mapping, "port", "client_port:port", "client_port:host:port", or "host:port"; repeatable`,
		},
		cli.BoolFlag{
			Name:  "retry",
			Usage: "reconnect to the tunnel when the carrier drops",
		},
		cli.IntFlag{
			Name:  "retry-interval",
			Value: 5,
			Usage: "seconds to wait between reconnect attempts",
		},
		cli.BoolFlag{
			Name:  "keep-connections",
			Usage: "carry open logical connections across a reconnect instead of dropping them",
		},
		cli.BoolFlag{
			Name:  "compress",
			Usage: "snappy-compress the carrier connection; the server must be started with --compress too",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect connection/byte counters to file, aware of timeformat in golang, like: ./snmp-20060102.log",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 60,
			Usage: "snmp collect period, in seconds",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = func(c *cli.Context) error {
		config := client.Config{}
		config.Bind = c.String("bind")
		config.Tunnel = c.String("tunnel")
		config.Connections = c.StringSlice("connection")
		config.Retry = c.Bool("retry")
		config.RetryInterval = c.Int("retry-interval")
		config.KeepConnections = c.Bool("keep-connections")
		config.Compress = c.Bool("compress")
		config.Log = c.String("log")
		config.SnmpLog = c.String("snmplog")
		config.SnmpPeriod = c.Int("snmpperiod")

		if c.String("c") != "" {
			err := client.LoadConfig(&config, c.String("c"))
			checkError(err)
		}

		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		log.Println("version:", VERSION)

		bindAddress := net.ParseIP(config.Bind)
		if bindAddress == nil {
			color.Red("invalid bind address: %s", config.Bind)
			return errors.Errorf("invalid bind address: %s", config.Bind)
		}

		connections := make([]addr.PortConnection, 0, len(config.Connections))
		for _, spec := range config.Connections {
			pc, err := addr.ParsePortConnection(spec)
			if err != nil {
				return errors.Wrap(err, "parsing --connection")
			}
			connections = append(connections, pc)
		}
		if len(connections) == 0 {
			color.Red("WARNING: no --connection mappings configured; the client will accept nothing")
		}

		log.Println("bind:", config.Bind)
		log.Println("tunnel:", config.Tunnel)
		log.Println("connections:", config.Connections)
		log.Println("retry:", config.Retry)
		log.Println("retry-interval:", config.RetryInterval)
		log.Println("keep-connections:", config.KeepConnections)
		log.Println("compress:", config.Compress)
		log.Println("snmplog:", config.SnmpLog)
		log.Println("snmpperiod:", config.SnmpPeriod)

		counters := &stats.Counters{}
		engine := &client.Engine{
			BindAddress:   bindAddress,
			TunnelAddress: config.Tunnel,
			Connections:   connections,
			Compress:      config.Compress,
			Stats:         counters,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			cancel()
		}()

		go stats.Logger(ctx, config.SnmpLog, config.SnmpPeriod, counters)

		if config.Retry {
			retryDelay := time.Duration(config.RetryInterval) * time.Second
			if err := engine.ConnectLoop(ctx, retryDelay, config.KeepConnections); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		}

		engine.Connect(ctx)
		return nil
	}
	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
