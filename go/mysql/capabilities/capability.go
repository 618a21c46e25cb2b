/*
Copyright 2024 The Vitess Authors.

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

package capabilities

import (
	"fmt"
	"strconv"
	"strings"
)

// FlavorCapability is a protocol or server feature whose availability
// depends on the announced server version.
type FlavorCapability int

const (
	NoneFlavorCapability FlavorCapability = iota
	// DeprecateEOFFlavorCapability means the server can terminate
	// result sets with OK packets instead of EOF packets.
	DeprecateEOFFlavorCapability
	// SessionTrackGtidsFlavorCapability means OK packets may carry
	// session state tracking data.
	SessionTrackGtidsFlavorCapability
	// CachingSha2PasswordFlavorCapability means caching_sha2_password
	// is available as an authentication plugin.
	CachingSha2PasswordFlavorCapability
	// CachingSha2DefaultFlavorCapability means caching_sha2_password
	// is the default authentication plugin for new accounts.
	CachingSha2DefaultFlavorCapability
	// ZstdCompressionFlavorCapability means the server supports the
	// zstd compressed protocol.
	ZstdCompressionFlavorCapability
	// QueryAttributesFlavorCapability means COM_QUERY may carry
	// query attributes.
	QueryAttributesFlavorCapability
	// MySQLJSONFlavorCapability means the server has a native JSON
	// column type.
	MySQLJSONFlavorCapability
)

func (c FlavorCapability) String() string {
	switch c {
	case DeprecateEOFFlavorCapability:
		return "DeprecateEOF"
	case SessionTrackGtidsFlavorCapability:
		return "SessionTrackGtids"
	case CachingSha2PasswordFlavorCapability:
		return "CachingSha2Password"
	case CachingSha2DefaultFlavorCapability:
		return "CachingSha2Default"
	case ZstdCompressionFlavorCapability:
		return "ZstdCompression"
	case QueryAttributesFlavorCapability:
		return "QueryAttributes"
	case MySQLJSONFlavorCapability:
		return "MySQLJSON"
	}
	return fmt.Sprintf("FlavorCapability(%d)", int(c))
}

// CapableOf returns a bool that indicates if the given capability is
// supported. It also returns an error if the capability is unknown.
type CapableOf func(capability FlavorCapability) (bool, error)

// ServerVersionAtLeast returns true if current server is at least
// given value. Example: ServerVersionAtLeast("8.0.14-log", 8, 0, 13)
func ServerVersionAtLeast(serverVersion string, parts ...int) (bool, error) {
	if serverVersion == "" {
		return false, fmt.Errorf("server version unspecified")
	}
	versionPrefix := strings.Split(serverVersion, "-")[0]
	versionTokens := strings.Split(versionPrefix, ".")
	for i, part := range parts {
		if len(versionTokens) <= i {
			return false, nil
		}
		tokenValue, err := strconv.Atoi(versionTokens[i])
		if err != nil {
			return false, err
		}
		if tokenValue > part {
			return true, nil
		}
		if tokenValue < part {
			return false, nil
		}
	}
	return true, nil
}

// MySQLVersionCapableOf returns a CapableOf function specific to
// MySQL flavors. It returns nil for an empty version.
func MySQLVersionCapableOf(serverVersion string) (capableOf CapableOf) {
	if serverVersion == "" {
		return nil
	}
	return func(capability FlavorCapability) (bool, error) {
		atLeast := func(parts ...int) (bool, error) {
			return ServerVersionAtLeast(serverVersion, parts...)
		}
		switch capability {
		case MySQLJSONFlavorCapability:
			return atLeast(5, 7, 0)
		case DeprecateEOFFlavorCapability:
			return atLeast(5, 7, 5)
		case SessionTrackGtidsFlavorCapability:
			return atLeast(5, 7, 0)
		case CachingSha2PasswordFlavorCapability:
			return atLeast(8, 0, 3)
		case CachingSha2DefaultFlavorCapability:
			return atLeast(8, 0, 4)
		case ZstdCompressionFlavorCapability:
			return atLeast(8, 0, 18)
		case QueryAttributesFlavorCapability:
			return atLeast(8, 0, 23)
		default:
			return false, fmt.Errorf("unknown capability: %v", capability)
		}
	}
}

// MariaDBVersionCapableOf returns a CapableOf function specific to
// MariaDB flavors. The version must already be stripped of its
// "5.5.5-" replication prefix.
func MariaDBVersionCapableOf(serverVersion string) (capableOf CapableOf) {
	if serverVersion == "" {
		return nil
	}
	return func(capability FlavorCapability) (bool, error) {
		atLeast := func(parts ...int) (bool, error) {
			return ServerVersionAtLeast(serverVersion, parts...)
		}
		switch capability {
		case MySQLJSONFlavorCapability:
			// An alias for LONGTEXT, but accepted.
			return atLeast(10, 2, 7)
		case DeprecateEOFFlavorCapability:
			// MariaDB never advertises CLIENT_DEPRECATE_EOF.
			return false, nil
		case SessionTrackGtidsFlavorCapability:
			return atLeast(10, 3, 1)
		case CachingSha2PasswordFlavorCapability,
			CachingSha2DefaultFlavorCapability,
			ZstdCompressionFlavorCapability,
			QueryAttributesFlavorCapability:
			return false, nil
		default:
			return false, fmt.Errorf("unknown capability: %v", capability)
		}
	}
}
