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

package client

import (
	"encoding/json"
	"os"
)

// Config mirrors the client's command-line surface so it can also be
// supplied as a JSON file via -c.
type Config struct {
	Bind            string   `json:"bind"`
	Tunnel          string   `json:"tunnel"`
	Connections     []string `json:"connection"`
	Retry           bool     `json:"retry"`
	RetryInterval   int      `json:"retry_interval"`
	KeepConnections bool     `json:"keep_connections"`
	Compress        bool     `json:"compress"`
	Log             string   `json:"log"`
	SnmpLog         string   `json:"snmplog"`
	SnmpPeriod      int      `json:"snmpperiod"`
}

// LoadConfig reads path as JSON into config, overriding whatever fields the
// file sets; fields the file omits keep their existing (e.g. flag-derived)
// value.
func LoadConfig(config *Config, path string) error {
	return parseJSONConfig(config, path)
}

func parseJSONConfig(config *Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(config)
}
