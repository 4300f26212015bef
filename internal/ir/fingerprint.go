package ir

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// DomainFingerprint prefixes every content fingerprint.
// Version suffix enables future algorithm migration.
const DomainFingerprint = "req1/fingerprint/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentFingerprint computes the content identity of an object.
//
// Layout hashed after the domain separator:
//
//	len(h) NFC(heading) len(b) NFC(body) canonical(attrs)
//
// where len is the uint64 big-endian byte length of the normalized text, so
// a NUL inside a field cannot shift a boundary. Absent heading or body
// contribute "". Absent attributes (nil, IRNull) contribute "". Never fails:
// values FromAny cannot produce are not reachable here, and a canonical
// encoding error degrades to "".
func ContentFingerprint(heading, body *string, attrs IRValue) string {
	var buf bytes.Buffer
	writeField(&buf, heading)
	writeField(&buf, body)
	buf.Write(canonicalAttrs(attrs))
	return hashWithDomain(DomainFingerprint, buf.Bytes())
}

func writeField(buf *bytes.Buffer, s *string) {
	var text string
	if s != nil {
		text = norm.NFC.String(*s)
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(text)))
	buf.Write(n[:])
	buf.WriteString(text)
}

func canonicalAttrs(attrs IRValue) []byte {
	switch a := attrs.(type) {
	case nil, IRNull:
		return nil
	case IRObject:
		if a == nil {
			return nil
		}
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, attrs); err != nil {
		return nil
	}
	return buf.Bytes()
}

// Fingerprint returns the object's fingerprint over its current content.
func (o *Object) Fingerprint() string {
	return ContentFingerprint(o.Heading, o.Body, attrsValue(o.Attributes))
}

func attrsValue(attrs IRObject) IRValue {
	if attrs == nil {
		return nil
	}
	return attrs
}
