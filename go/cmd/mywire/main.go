/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// mywire is a small command line MySQL client built on the wire
// protocol library. It connects, runs the statements given as
// arguments and prints each result set as a table.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"mywire.io/mywire/go/mw/log"
	"mywire.io/mywire/go/mw/mwtls"
	"mywire.io/mywire/go/mysql"
	"mywire.io/mywire/go/sqltypes"
)

var (
	host        string
	port        int
	unixSocket  string
	user        string
	password    string
	database    string
	charset     string
	sslMode     string
	sslCa       string
	sslCert     string
	sslKey      string
	serverName  string
	compression bool

	allowClearText          bool
	allowPublicKeyRetrieval bool

	dialTimeout time.Duration
	readTimeout time.Duration
	maxRows     int
	verbose     bool
	debug       bool

	root = &cobra.Command{
		Use:   "mywire [flags] <statement> [<statement> ...]",
		Short: "mywire runs SQL statements against a MySQL server and prints the results.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Init(cmd.Flags())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
		SilenceUsage: true,
	}
)

func init() {
	fs := root.PersistentFlags()
	fs.StringVar(&host, "host", "127.0.0.1", "server host")
	fs.IntVar(&port, "port", 3306, "server port")
	fs.StringVar(&unixSocket, "unix-socket", "", "connect through this socket path instead of TCP")
	fs.StringVarP(&user, "user", "u", "root", "user name")
	fs.StringVarP(&password, "password", "p", "", "password")
	fs.StringVarP(&database, "database", "D", "", "default database")
	fs.StringVar(&charset, "charset", "", "connection character set (default utf8mb4)")
	fs.StringVar(&sslMode, "ssl-mode", "", "SSL mode: disabled, preferred, required, verify_ca or verify_identity")
	fs.StringVar(&sslCa, "ssl-ca", "", "path to the CA bundle used to verify the server certificate")
	fs.StringVar(&sslCert, "ssl-cert", "", "path to the client certificate")
	fs.StringVar(&sslKey, "ssl-key", "", "path to the client private key")
	fs.StringVar(&serverName, "ssl-server-name", "", "expected server certificate name, when different from --host")
	fs.BoolVar(&compression, "compression", false, "negotiate the zstd compressed protocol")
	fs.BoolVar(&allowClearText, "allow-cleartext-without-tls", false, "permit mysql_clear_password over a plaintext connection")
	fs.BoolVar(&allowPublicKeyRetrieval, "allow-public-key-retrieval", false, "permit fetching the server RSA key over plaintext during full authentication")
	fs.DurationVar(&dialTimeout, "dial-timeout", 10*time.Second, "bound on establishing the connection")
	fs.DurationVar(&readTimeout, "read-timeout", 0, "bound on every server read, 0 for none")
	fs.IntVar(&maxRows, "max-rows", 10000, "refuse result sets larger than this")
	fs.BoolVarP(&verbose, "verbose", "v", false, "print connection details to stderr")
	fs.BoolVar(&debug, "debug", false, "trace protocol packets through the logger")
	log.RegisterFlags(fs)
}

func connParams() (*mysql.ConnParams, error) {
	params := &mysql.ConnParams{
		Host:                     host,
		Port:                     port,
		UnixSocket:               unixSocket,
		Uname:                    user,
		Pass:                     password,
		DbName:                   database,
		Charset:                  charset,
		SslCa:                    sslCa,
		SslCert:                  sslCert,
		SslKey:                   sslKey,
		ServerName:               serverName,
		EnableCompression:        compression,
		AllowClearTextWithoutTLS: allowClearText,
		AllowPublicKeyRetrieval:  allowPublicKeyRetrieval,
		DialTimeout:              dialTimeout,
		ReadTimeout:              readTimeout,
		Debug:                    debug,
	}
	switch mode := mwtls.SslMode(sslMode); mode {
	case "", mwtls.Disabled, mwtls.Preferred, mwtls.Required, mwtls.VerifyCA, mwtls.VerifyIdentity:
		params.SslMode = mode
	default:
		return nil, fmt.Errorf("unknown SSL mode %q", sslMode)
	}
	return params, nil
}

func run(cmd *cobra.Command, args []string) error {
	params, err := connParams()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	conn, err := mysql.Connect(ctx, params)
	if err != nil {
		return err
	}
	defer conn.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "connected to %s (connection id %v, %s)\n",
			conn.ServerVersion, conn.ConnectionID, conn.AuthSummary())
	}

	for _, query := range args {
		result, err := conn.ExecuteFetch(query, maxRows, true)
		if err != nil {
			return err
		}
		printResult(result)
	}
	return nil
}

func printResult(result *sqltypes.Result) {
	if len(result.Fields) == 0 {
		fmt.Printf("Query OK, %v rows affected", result.RowsAffected)
		if result.InsertID != 0 {
			fmt.Printf(", insert id %v", result.InsertID)
		}
		fmt.Println()
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	header := make([]string, len(result.Fields))
	for i, field := range result.Fields {
		header[i] = field.Name
	}
	table.Header(header)
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			if value.IsNull() {
				cells[i] = "NULL"
			} else {
				cells[i] = value.ToString()
			}
		}
		if err := table.Append(cells); err != nil {
			log.Errorf("cannot render row: %v", err)
		}
	}
	if err := table.Render(); err != nil {
		log.Errorf("cannot render result: %v", err)
	}
	fmt.Printf("%v rows in set\n", len(result.Rows))
}

func main() {
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
