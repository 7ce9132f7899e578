// Package stomp speaks STOMP 1.2 text frames over a WebSocket. It provides
// the frame codec shared by the client dialer and the relay.
package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	CmdConnect     = "CONNECT"
	CmdStomp       = "STOMP"
	CmdConnected   = "CONNECTED"
	CmdSend        = "SEND"
	CmdSubscribe   = "SUBSCRIBE"
	CmdUnsubscribe = "UNSUBSCRIBE"
	CmdMessage     = "MESSAGE"
	CmdReceipt     = "RECEIPT"
	CmdError       = "ERROR"
	CmdDisconnect  = "DISCONNECT"
)

const (
	HdrAcceptVersion   = "accept-version"
	HdrVersion         = "version"
	HdrHost            = "host"
	HdrHeartBeat       = "heart-beat"
	HdrDestination     = "destination"
	HdrID              = "id"
	HdrAck             = "ack"
	HdrSubscription    = "subscription"
	HdrMessageID       = "message-id"
	HdrContentType     = "content-type"
	HdrContentLength   = "content-length"
	HdrReceipt         = "receipt"
	HdrReceiptID       = "receipt-id"
	HdrMessage         = "message"
	HdrParticipantID   = "participant-id"
	HdrParticipantName = "participant-name"
)

var (
	// ErrHeartbeat is returned by Decode for a frame made only of EOLs.
	ErrHeartbeat = errors.New("stomp: heart-beat")
	ErrMalformed = errors.New("stomp: malformed frame")
)

type Header struct {
	Key   string
	Value string
}

type Frame struct {
	Command string
	Headers []Header
	Body    []byte
}

// NewFrame builds a frame from alternating header keys and values.
func NewFrame(command string, kv ...string) *Frame {
	f := &Frame{Command: command}
	for i := 0; i+1 < len(kv); i += 2 {
		f.Headers = append(f.Headers, Header{Key: kv[i], Value: kv[i+1]})
	}
	return f
}

// Get returns the first value of key; repeated headers keep the first one.
func (f *Frame) Get(key string) (string, bool) {
	for _, h := range f.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return "", false
}

func (f *Frame) Value(key string) string {
	v, _ := f.Get(key)
	return v
}

func (f *Frame) Set(key, value string) {
	for i, h := range f.Headers {
		if h.Key == key {
			f.Headers[i].Value = value
			return
		}
	}
	f.Headers = append(f.Headers, Header{Key: key, Value: value})
}

// Encode serialises the frame including the trailing NUL.
func (f *Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte('\n')

	escape := f.Command != CmdConnect && f.Command != CmdConnected
	headers := append([]Header(nil), f.Headers...)
	if len(f.Body) > 0 {
		if _, ok := f.Get(HdrContentLength); !ok {
			headers = append(headers, Header{Key: HdrContentLength, Value: strconv.Itoa(len(f.Body))})
		}
	}
	for _, h := range headers {
		if escape {
			buf.WriteString(escapeHeader(h.Key))
			buf.WriteByte(':')
			buf.WriteString(escapeHeader(h.Value))
		} else {
			buf.WriteString(h.Key)
			buf.WriteByte(':')
			buf.WriteString(h.Value)
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.Write(f.Body)
	buf.WriteByte(0)
	return buf.Bytes()
}

// Decode parses exactly one frame. Leading EOLs are heart-beats.
func Decode(data []byte) (*Frame, error) {
	data = bytes.TrimLeft(data, "\r\n")
	if len(data) == 0 {
		return nil, ErrHeartbeat
	}

	head, rest, ok := cutLine(data)
	if !ok || head == "" {
		return nil, fmt.Errorf("%w: missing command", ErrMalformed)
	}
	f := &Frame{Command: head}
	escape := f.Command != CmdConnect && f.Command != CmdConnected

	for {
		var line string
		line, rest, ok = cutLine(rest)
		if !ok {
			return nil, fmt.Errorf("%w: unterminated headers", ErrMalformed)
		}
		if line == "" {
			break
		}
		k, v, found := strings.Cut(line, ":")
		if !found || k == "" {
			return nil, fmt.Errorf("%w: bad header %q", ErrMalformed, line)
		}
		if escape {
			var err error
			if k, err = unescapeHeader(k); err != nil {
				return nil, err
			}
			if v, err = unescapeHeader(v); err != nil {
				return nil, err
			}
		}
		f.Headers = append(f.Headers, Header{Key: k, Value: v})
	}

	if cl, ok := f.Get(HdrContentLength); ok {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 || n >= len(rest) || rest[n] != 0 {
			return nil, fmt.Errorf("%w: bad content-length %q", ErrMalformed, cl)
		}
		f.Body = rest[:n]
		return f, nil
	}
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		return nil, fmt.Errorf("%w: missing NUL terminator", ErrMalformed)
	}
	f.Body = rest[:end]
	return f, nil
}

func cutLine(b []byte) (string, []byte, bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return "", b, false
	}
	line := b[:i]
	line = bytes.TrimSuffix(line, []byte{'\r'})
	return string(line), b[i+1:], true
}

var headerEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`, ":", `\c`)

func escapeHeader(s string) string { return headerEscaper.Replace(s) }

func unescapeHeader(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("%w: dangling escape", ErrMalformed)
		}
		i++
		switch s[i] {
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		default:
			return "", fmt.Errorf("%w: invalid escape \\%c", ErrMalformed, s[i])
		}
	}
	return b.String(), nil
}

// String is a debug rendering: command and sorted header keys.
func (f *Frame) String() string {
	keys := make([]string, 0, len(f.Headers))
	for _, h := range f.Headers {
		keys = append(keys, h.Key)
	}
	sort.Strings(keys)
	return fmt.Sprintf("%s[%s] %dB", f.Command, strings.Join(keys, ","), len(f.Body))
}
