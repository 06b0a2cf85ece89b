package cachedb

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
)

// The log speaks a small RESP-like dialect. Every command is an array
// of segments: simple strings prefixed with '+', length-prefixed blobs
// with '$'. The first command in a healthy file is the schema version.
//
//	*2\r\n+ver\r\n+1\r\n
//	*4\r\n+set\r\n$11\r\nproducts:p1\r\n$24\r\n{...}\r\n+sum(16096765249262795)\r\n
//	*2\r\n+del\r\n$11\r\nproducts:p1\r\n
//	*2\r\n+wipe\r\n+products\r\n

const (
	verCommand  = "ver"
	setCommand  = "set"
	delCommand  = "del"
	wipeCommand = "wipe"
)

const sumFn = "sum"

var ErrCommandInvalid = errors.New("log command invalid")
var ErrChecksumMismatch = errors.New("log record checksum mismatch")
var ErrSchemaMismatch = errors.New("log file schema version mismatch")

type serializer struct {
	buf bytes.Buffer
}

func (s *serializer) serializeVersion(v int) {
	writeArray(2, &s.buf)
	writeSimpleString([]byte(verCommand), &s.buf)
	writeSimpleString([]byte(strconv.Itoa(v)), &s.buf)
}

func (s *serializer) serializeSetCommand(ent *entry) {
	writeArray(4, &s.buf)
	writeSimpleString([]byte(setCommand), &s.buf)
	writeBlob([]byte(ent.key.String()), &s.buf)
	writeBlob(ent.value, &s.buf)
	writeSimpleString([]byte(fmt.Sprintf("%s(%d)", sumFn, ent.sum)), &s.buf)
}

func (s *serializer) serializeDelCommand(k key) {
	writeArray(2, &s.buf)
	writeSimpleString([]byte(delCommand), &s.buf)
	writeBlob([]byte(k.String()), &s.buf)
}

func (s *serializer) serializeWipeCommand(store string) {
	writeArray(2, &s.buf)
	writeSimpleString([]byte(wipeCommand), &s.buf)
	writeSimpleString([]byte(store), &s.buf)
}

func writeArray(segments int, buf *bytes.Buffer) {
	buf.WriteRune('*')
	buf.WriteString(strconv.Itoa(segments))
	buf.WriteString("\r\n")
}

func writeSimpleString(b []byte, buf *bytes.Buffer) {
	buf.WriteRune('+')
	buf.Write(b)
	buf.WriteString("\r\n")
}

func writeBlob(blob []byte, buf *bytes.Buffer) {
	buf.WriteRune('$')
	buf.WriteString(strconv.Itoa(len(blob)))
	buf.WriteString("\r\n")
	buf.Write(blob)
	buf.WriteString("\r\n")
}

// replayer consumes parsed commands during log load.
type replayer interface {
	replaySet(k key, value []byte, sum uint64) error
	replayDel(k key)
	replayWipe(store string)
}

type parser struct {
	consumed int
	commands int
}

// parse replays every command in r. It returns the number of bytes of
// healthy prefix; a trailing partial write surfaces as
// io.ErrUnexpectedEOF (or ErrChecksumMismatch) with consumed pointing
// at the last complete command, so the caller can truncate.
func (p *parser) parse(r *bufio.Reader, rp replayer) (int, error) {
	for {
		cmdStart := p.consumed

		firstByte, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return p.consumed, nil
			}

			return p.consumed, errors.Wrap(ErrSourceFileReadFailed, err.Error())
		}

		if err := r.UnreadByte(); err != nil {
			return p.consumed, errors.Wrap(ErrSourceFileReadFailed, err.Error())
		}

		if firstByte != '*' {
			return cmdStart, errors.Wrapf(ErrCommandInvalid, "expected array marker, got %q", firstByte)
		}

		segments, err := p.resolveArrayLen(r)
		if err != nil {
			return cmdStart, err
		}

		cmd, err := p.resolveSimpleString(r)
		if err != nil {
			return cmdStart, err
		}

		switch cmd {
		case verCommand:
			if err := p.parseVersionCommand(r); err != nil {
				return cmdStart, err
			}
		case setCommand:
			if segments != 4 {
				return cmdStart, errors.Wrapf(ErrCommandInvalid, "set expects 4 segments, got %d", segments)
			}

			if err := p.parseSetCommand(r, rp); err != nil {
				return cmdStart, err
			}
		case delCommand:
			k, err := p.resolveBlob(r)
			if err != nil {
				return cmdStart, err
			}

			rp.replayDel(parseKey(string(k)))
		case wipeCommand:
			store, err := p.resolveSimpleString(r)
			if err != nil {
				return cmdStart, err
			}

			rp.replayWipe(store)
		default:
			return cmdStart, errors.Wrapf(ErrCommandInvalid, "unknown command %s", cmd)
		}

		p.commands++
	}
}

func (p *parser) parseVersionCommand(r *bufio.Reader) error {
	v, err := p.resolveSimpleString(r)
	if err != nil {
		return err
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(ErrCommandInvalid, "version %s is not a number", v)
	}

	if n != schemaVersion {
		return errors.Wrapf(ErrSchemaMismatch, "file version %d, supported version %d", n, schemaVersion)
	}

	return nil
}

func (p *parser) parseSetCommand(r *bufio.Reader, rp replayer) error {
	rawKey, err := p.resolveBlob(r)
	if err != nil {
		return err
	}

	value, err := p.resolveBlob(r)
	if err != nil {
		return err
	}

	sum, err := p.resolveSum(r)
	if err != nil {
		return err
	}

	if xxhash.Sum64(value) != sum {
		return errors.Wrapf(ErrChecksumMismatch, "key %s", string(rawKey))
	}

	return rp.replaySet(parseKey(string(rawKey)), value, sum)
}

func (p *parser) resolveArrayLen(r *bufio.Reader) (int, error) {
	line, err := p.readLine(r)
	if err != nil {
		return 0, err
	}

	if len(line) < 2 || line[0] != '*' {
		return 0, errors.Wrapf(ErrCommandInvalid, "line %q is not a valid array", line)
	}

	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return 0, errors.Wrapf(ErrCommandInvalid, "invalid array length in line %q", line)
	}

	return n, nil
}

func (p *parser) resolveSimpleString(r *bufio.Reader) (string, error) {
	line, err := p.readLine(r)
	if err != nil {
		return "", err
	}

	if len(line) < 2 || line[0] != '+' {
		return "", errors.Wrapf(ErrCommandInvalid, "line %q is not a valid simple string", line)
	}

	return string(line[1:]), nil
}

func (p *parser) resolveBlob(r *bufio.Reader) ([]byte, error) {
	line, err := p.readLine(r)
	if err != nil {
		return nil, err
	}

	if len(line) < 2 || line[0] != '$' {
		return nil, errors.Wrapf(ErrCommandInvalid, "line %q is not a valid blob header", line)
	}

	size, err := strconv.Atoi(string(line[1:]))
	if err != nil || size < 0 {
		return nil, errors.Wrapf(ErrCommandInvalid, "invalid blob length in line %q", line)
	}

	blob := make([]byte, size+2)
	if _, err := io.ReadFull(r, blob); err != nil {
		return nil, io.ErrUnexpectedEOF
	}

	p.consumed += size + 2

	if blob[size] != '\r' || blob[size+1] != '\n' {
		return nil, errors.Wrapf(ErrCommandInvalid, "blob of %d bytes is not terminated properly", size)
	}

	return blob[:size], nil
}

func (p *parser) resolveSum(r *bufio.Reader) (uint64, error) {
	s, err := p.resolveSimpleString(r)
	if err != nil {
		return 0, err
	}

	if !strings.HasPrefix(s, sumFn+"(") || !strings.HasSuffix(s, ")") {
		return 0, errors.Wrapf(ErrCommandInvalid, "expression %s is not a valid checksum", s)
	}

	arg := strings.TrimSuffix(strings.TrimPrefix(s, sumFn+"("), ")")
	sum, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrCommandInvalid, "checksum %s is not a valid uint64", arg)
	}

	return sum, nil
}

func (p *parser) readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}

		return nil, errors.Wrap(ErrSourceFileReadFailed, err.Error())
	}

	p.consumed += len(line)

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, errors.Wrapf(ErrCommandInvalid, "line %q is not CRLF terminated", line)
	}

	return line[:len(line)-2], nil
}
