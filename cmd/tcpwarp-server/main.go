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
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/tcp-warp/tcp-warp/server"
	"github.com/tcp-warp/tcp-warp/stats"
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "tcpwarp-server"
	myApp.Usage = "tcp-warp server: accept a carrier and dial targets on its behalf"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen",
			Value: "127.0.0.1:18000",
			Usage: "address to accept carrier connections on",
		},
		cli.StringFlag{
			Name:  "connect",
			Value: "127.0.0.1",
			Usage: "default host to dial when a HostConnect carries no host of its own",
		},
		cli.StringSliceFlag{
			Name:  "port",
			Usage: "port to advertise to connecting clients via AddPorts; repeatable",
		},
		cli.BoolFlag{
			Name:  "compress",
			Usage: "snappy-compress accepted carrier connections; every connecting client must pass --compress too",
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
		config := server.Config{}
		config.Listen = c.String("listen")
		config.Connect = c.String("connect")
		config.Compress = c.Bool("compress")
		config.Log = c.String("log")
		config.SnmpLog = c.String("snmplog")
		config.SnmpPeriod = c.Int("snmpperiod")

		ports, err := parsePorts(c.StringSlice("port"))
		if err != nil {
			return err
		}
		config.Ports = ports

		if c.String("c") != "" {
			err := server.LoadConfig(&config, c.String("c"))
			checkError(err)
		}

		if config.Log != "" {
			f, err := os.OpenFile(config.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			checkError(err)
			defer f.Close()
			log.SetOutput(f)
		}

		log.Println("version:", VERSION)
		log.Println("listen:", config.Listen)
		log.Println("connect:", config.Connect)
		log.Println("ports:", config.Ports)
		log.Println("compress:", config.Compress)
		log.Println("snmplog:", config.SnmpLog)
		log.Println("snmpperiod:", config.SnmpPeriod)

		if len(config.Ports) == 0 {
			color.Red("WARNING: no --port advertised; AddPorts will announce an empty list")
		}

		counters := &stats.Counters{}
		engine := &server.Engine{
			ListenAddress:  config.Listen,
			ConnectAddress: config.Connect,
			Ports:          config.Ports,
			Compress:       config.Compress,
			Stats:          counters,
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

		if err := engine.Listen(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func parsePorts(specs []string) ([]uint16, error) {
	ports := make([]uint16, 0, len(specs))
	for _, s := range specs {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
		if err != nil {
			return nil, err
		}
		ports = append(ports, uint16(v))
	}
	return ports, nil
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
