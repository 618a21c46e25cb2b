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
	"golang.org/x/text/encoding/charmap"
)

// MySQL's "latin1" is Windows-1252, not ISO 8859-1: the 0x80-0x9f
// range holds printable characters.
var latin1Decoder = charmap.Windows1252

// latin1ToUTF8 transcodes a latin1 column value to UTF-8. Values that
// are already pure ASCII come back unchanged without allocating.
func latin1ToUTF8(b []byte) []byte {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return b
	}
	out, err := latin1Decoder.NewDecoder().Bytes(b)
	if err != nil {
		// Windows-1252 decodes every byte; this cannot happen.
		return b
	}
	return out
}

// utf8ToLatin1 transcodes a UTF-8 string for a latin1 column.
// Unmappable runes are replaced with the encoder's substitute byte.
func utf8ToLatin1(b []byte) []byte {
	out, err := latin1Decoder.NewEncoder().Bytes(b)
	if err != nil {
		return b
	}
	return out
}
