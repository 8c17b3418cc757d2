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

package hooksyslog

// NetworkProtocol names the transport a syslog endpoint is reached over.
type NetworkProtocol string

const (
	NetworkEmpty    NetworkProtocol = ""
	NetworkTCP      NetworkProtocol = "tcp"
	NetworkUDP      NetworkProtocol = "udp"
	NetworkUnix     NetworkProtocol = "unix"
	NetworkUnixgram NetworkProtocol = "unixgram"
)

// ParseNetworkProtocol maps a config string to a NetworkProtocol, defaulting
// to NetworkEmpty (local auto-discovery) for anything unrecognized.
func ParseNetworkProtocol(s string) NetworkProtocol {
	switch NetworkProtocol(s) {
	case NetworkTCP, NetworkUDP, NetworkUnix, NetworkUnixgram:
		return NetworkProtocol(s)
	default:
		return NetworkEmpty
	}
}

// String returns the dial-compatible network name, suitable for net.Dial and
// log/syslog.Dial.
func (n NetworkProtocol) String() string {
	return string(n)
}

// Code returns the short identifier used as part of the aggregator map key.
func (n NetworkProtocol) Code() string {
	if n == NetworkEmpty {
		return "local"
	}
	return string(n)
}
