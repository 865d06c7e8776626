package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// CurrentSchemaVersion is the leading byte of every encoded session.
const CurrentSchemaVersion = 1

const (
	flagActive byte = 1 << 0

	maxShortField = math.MaxUint8
	maxUserAgent  = math.MaxUint16
)

// Encode serializes s into the compact binary form stored in Redis:
//
//	version | id | account | hash[32] | flags | created | expires | ip | user-agent
//
// Strings carry a one byte length prefix, except the user agent which has
// two. Timestamps are big-endian unix milliseconds.
func Encode(s Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	if err := writeShort(&buf, "session id", s.ID); err != nil {
		return nil, err
	}
	if err := writeShort(&buf, "account id", s.AccountID); err != nil {
		return nil, err
	}
	buf.Write(s.TokenHash[:])

	var flags byte
	if s.Active {
		flags |= flagActive
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	if err := writeShort(&buf, "ip", s.IP); err != nil {
		return nil, err
	}
	ua := s.UserAgent
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(ua))); err != nil {
		return nil, err
	}
	buf.WriteString(ua)

	return buf.Bytes(), nil
}

// Decode parses the output of Encode.
func Decode(data []byte) (Session, error) {
	var s Session
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return s, err
	}
	if version != CurrentSchemaVersion {
		return s, fmt.Errorf("unsupported session schema version %d", version)
	}

	if s.ID, err = readShort(reader); err != nil {
		return s, err
	}
	if s.AccountID, err = readShort(reader); err != nil {
		return s, err
	}
	if _, err := io.ReadFull(reader, s.TokenHash[:]); err != nil {
		return s, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return s, err
	}
	s.Active = flags&flagActive != 0

	var created, expires int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return s, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return s, err
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.ExpiresAt = time.UnixMilli(expires).UTC()

	if s.IP, err = readShort(reader); err != nil {
		return s, err
	}
	var uaLen uint16
	if err := binary.Read(reader, binary.BigEndian, &uaLen); err != nil {
		return s, err
	}
	ua := make([]byte, uaLen)
	if _, err := io.ReadFull(reader, ua); err != nil {
		return s, err
	}
	s.UserAgent = string(ua)

	if reader.Len() != 0 {
		return s, errors.New("trailing bytes after session")
	}
	return s, nil
}

func writeShort(buf *bytes.Buffer, field, v string) error {
	if len(v) > maxShortField {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readShort(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
