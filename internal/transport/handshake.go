/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package transport

import (
	"io"

	"github.com/sabouaram/pmix/pkg/status"
	"github.com/sabouaram/pmix/pkg/wire"
)

// ProtocolVersion is the handshake version string this build speaks, compared
// against a peer's version on only its first two dotted components (major and
// minor); a patch-level difference is accepted.
const ProtocolVersion = "1.0.0"

// VersionCompatible reports whether a and b agree on their major.minor
// components, splitting on '.' and comparing at most the first two fields.
func VersionCompatible(a, b string) bool {
	return majorMinor(a) == majorMinor(b)
}

func majorMinor(v string) string {
	var dots int
	for i := 0; i < len(v); i++ {
		if v[i] == '.' {
			dots++
			if dots == 2 {
				return v[:i]
			}
		}
	}
	return v
}

// ClientHello is the first message a client sends after connecting. A tool
// connection (no pre-registered namespace) sets IsTool and leaves Namespace
// empty; the server must resolve a host-assigned namespace for it before
// any job-info is sent (see DESIGN.md on tool namespace allocation).
//
// Credential carries an opaque token a configured validator hook checks
// server-side; a nil Credential is handed to that validator like any other.
// With no validator configured, every Credential, nil included, is accepted.
type ClientHello struct {
	Version    string
	IsTool     bool
	Namespace  string
	Rank       int32
	Credential []byte
}

// ServerHello is the handshake reply: either a peer index and job-info blob
// on success, or a rejection status with no payload. PeerIndex is the
// array-index the client must echo back as a Header's PeerID on every
// subsequent frame it sends.
type ServerHello struct {
	Status      status.Code
	PeerIndex   uint32
	JobInfoBlob []byte
}

// WriteFrame writes a length-prefixed frame: a Header followed by its
// payload bytes.
func WriteFrame(w io.Writer, h wire.Header, payload []byte) error {
	h.NBytes = uint64(len(payload))
	if _, err := w.Write(h.Encode()); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// ReadFrame reads one Header followed by its NBytes payload.
func ReadFrame(r io.Reader) (wire.Header, []byte, error) {
	hb := make([]byte, wire.HeaderSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return wire.Header{}, nil, err
	}
	h, err := wire.DecodeHeader(hb)
	if err != nil {
		return wire.Header{}, nil, err
	}

	payload := make([]byte, h.NBytes)
	if h.NBytes > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return wire.Header{}, nil, err
		}
	}
	return h, payload, nil
}

// EncodeClientHello packs a ClientHello into a FULLY_DESC buffer.
func EncodeClientHello(h ClientHello) []byte {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewStringV(h.Version))
	wire.PackValue(buf, wire.NewBool(h.IsTool))
	wire.PackValue(buf, wire.NewStringV(h.Namespace))
	wire.PackValue(buf, wire.NewInt32(h.Rank))
	wire.PackValue(buf, wire.NewByteObject(h.Credential))
	return buf.Bytes()
}

// DecodeClientHello unpacks a ClientHello written by EncodeClientHello.
func DecodeClientHello(b []byte) (ClientHello, status.Code) {
	buf := wire.NewFromBytes(wire.FullyDesc, b)

	vv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		return ClientHello{}, sc
	}
	tv, sc := wire.UnpackValue(buf, wire.TypeBool)
	if sc != status.Success {
		return ClientHello{}, sc
	}
	nv, sc := wire.UnpackValue(buf, wire.TypeString)
	if sc != status.Success {
		return ClientHello{}, sc
	}
	rv, sc := wire.UnpackValue(buf, wire.TypeInt32)
	if sc != status.Success {
		return ClientHello{}, sc
	}
	cv, sc := wire.UnpackValue(buf, wire.TypeByteObject)
	if sc != status.Success {
		return ClientHello{}, sc
	}

	return ClientHello{
		Version:    vv.StringOrEmpty(),
		IsTool:     tv.Bool(),
		Namespace:  nv.StringOrEmpty(),
		Rank:       rv.Int32(),
		Credential: cv.ByteObject(),
	}, status.Success
}

// EncodeServerHello packs a ServerHello into a FULLY_DESC buffer.
func EncodeServerHello(h ServerHello) []byte {
	buf := wire.New(wire.FullyDesc)
	wire.PackValue(buf, wire.NewInt32(int32(h.Status)))
	wire.PackValue(buf, wire.NewUint32(h.PeerIndex))
	wire.PackValue(buf, wire.NewByteObject(h.JobInfoBlob))
	return buf.Bytes()
}

// DecodeServerHello unpacks a ServerHello written by EncodeServerHello.
func DecodeServerHello(b []byte) (ServerHello, status.Code) {
	buf := wire.NewFromBytes(wire.FullyDesc, b)

	sv, sc := wire.UnpackValue(buf, wire.TypeInt32)
	if sc != status.Success {
		return ServerHello{}, sc
	}
	pv, sc := wire.UnpackValue(buf, wire.TypeUint32)
	if sc != status.Success {
		return ServerHello{}, sc
	}
	bv, sc := wire.UnpackValue(buf, wire.TypeByteObject)
	if sc != status.Success {
		return ServerHello{}, sc
	}

	return ServerHello{
		Status:      status.Code(sv.Int32()),
		PeerIndex:   pv.Uint32(),
		JobInfoBlob: bv.ByteObject(),
	}, status.Success
}
