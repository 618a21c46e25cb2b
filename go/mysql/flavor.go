/*
Copyright 2019 The Vitess Authors.

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

package mysql

import (
	"strings"

	"mywire.io/mywire/go/mysql/capabilities"
)

// serverFlavor is the command variant spoken by the server we are
// connected to. Flavors are auto-detected upon connection using the
// server version announced in the initial handshake.
type serverFlavor int

const (
	flavorMySQL serverFlavor = iota
	flavorMariaDB
)

const (
	// mariaDBReplicationHackPrefix is the prefix MariaDB prepends to
	// its version string so that clients comparing versions
	// numerically still see something bigger than 5.5. The real
	// MariaDB version follows it.
	mariaDBReplicationHackPrefix = "5.5.5-"
	// mariaDBVersionString is present in all MariaDB version strings.
	mariaDBVersionString = "MariaDB"
)

func (f serverFlavor) String() string {
	if f == flavorMariaDB {
		return mariaDBVersionString
	}
	return "MySQL"
}

// parseServerVersion derives the flavor from a raw handshake version
// string and returns it along with the canonical version, with any
// MariaDB prefix stripped.
func parseServerVersion(version string) (serverFlavor, string) {
	if strings.HasPrefix(version, mariaDBReplicationHackPrefix) {
		return flavorMariaDB, version[len(mariaDBReplicationHackPrefix):]
	}
	if strings.Contains(version, mariaDBVersionString) {
		return flavorMariaDB, version
	}
	return flavorMySQL, version
}

// fillFlavor fills in c.flavor based on c.ServerVersion, normalizing
// the version in place. It is called once at connect time.
func (c *Conn) fillFlavor() {
	c.flavor, c.ServerVersion = parseServerVersion(c.ServerVersion)
}

// IsMariaDB returns true if the server announced itself as MariaDB.
func (c *Conn) IsMariaDB() bool {
	return c.flavor == flavorMariaDB
}

// CapableOf returns a CapableOf function for the connected server, or
// nil when the server version is unknown.
func (c *Conn) CapableOf() capabilities.CapableOf {
	if c.flavor == flavorMariaDB {
		return capabilities.MariaDBVersionCapableOf(c.ServerVersion)
	}
	return capabilities.MySQLVersionCapableOf(c.ServerVersion)
}

// ServerVersionAtLeast returns true if the connected server is at
// least the given version.
func (c *Conn) ServerVersionAtLeast(parts ...int) (bool, error) {
	return capabilities.ServerVersionAtLeast(c.ServerVersion, parts...)
}
