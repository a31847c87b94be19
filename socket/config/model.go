/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config holds the typed, ambient static configuration a caller
// assembles before handing it to the transport layer (spec §9): which
// kernel-level NetworkProtocol to dial/bind, the address, and optional TLS
// parameters. It is deliberately independent of transport's own Ops/Socket
// model so it can be decoded directly from viper/mapstructure sources.
package config

import (
	"time"

	libtls "github.com/nabbar/xcm/certificates"
	libprm "github.com/nabbar/xcm/file/perm"
	libptc "github.com/nabbar/xcm/network/protocol"
)

// MaxGID is the highest accepted Unix group id (16-bit gid_t ceiling used
// across this module's platforms).
const MaxGID = 32767

// ClientTLS holds a client's optional TLS parameters.
type ClientTLS struct {
	Enabled    bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled" toml:"enabled"`
	Config     libtls.Config `mapstructure:"config" json:"config" yaml:"config" toml:"config"`
	ServerName string        `mapstructure:"serverName" json:"serverName" yaml:"serverName" toml:"serverName"`

	def libtls.TLSConfig
}

// ServerTLS holds a server's optional TLS parameters.
type ServerTLS struct {
	Enable bool          `mapstructure:"enable" json:"enable" yaml:"enable" toml:"enable"`
	Config libtls.Config `mapstructure:"config" json:"config" yaml:"config" toml:"config"`

	def libtls.TLSConfig
}

// Client is the static configuration for a dialing-side socket.
type Client struct {
	Network libptc.NetworkProtocol `mapstructure:"network" json:"network" yaml:"network" toml:"network"`
	Address string                 `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	TLS     ClientTLS              `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
}

// Server is the static configuration for a listening-side socket.
type Server struct {
	Network        libptc.NetworkProtocol `mapstructure:"network" json:"network" yaml:"network" toml:"network"`
	Address        string                 `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	PermFile       libprm.Perm            `mapstructure:"permFile" json:"permFile" yaml:"permFile" toml:"permFile"`
	GroupPerm      int32                  `mapstructure:"groupPerm" json:"groupPerm" yaml:"groupPerm" toml:"groupPerm"`
	ConIdleTimeout time.Duration          `mapstructure:"conIdleTimeout" json:"conIdleTimeout" yaml:"conIdleTimeout" toml:"conIdleTimeout"`
	TLS            ServerTLS              `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
}
