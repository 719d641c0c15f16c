package jte

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// Algorithm names one of the sideband's named digest engines (§1).
type Algorithm int

const (
	MD5 Algorithm = iota
	SHA1
	SHA256
	SHA512
)

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "MD5"
	case SHA1:
		return "SHA1"
	case SHA256:
		return "SHA256"
	case SHA512:
		return "SHA512"
	default:
		return "unknown"
	}
}

func newHash(a Algorithm) (hash.Hash, error) {
	switch a {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("libburn: unknown JTE digest algorithm %d", a)
	}
}

// Digester accumulates one or more digest algorithms over a stream of
// writes, for the sideband's per-track/per-image checksumming (§1:
// "checksum primitives... consumed as named digest engines").
type Digester struct {
	hashes map[Algorithm]hash.Hash
}

// NewDigester builds a Digester computing every algorithm in algos.
func NewDigester(algos ...Algorithm) (*Digester, error) {
	d := &Digester{hashes: make(map[Algorithm]hash.Hash, len(algos))}
	for _, a := range algos {
		h, err := newHash(a)
		if err != nil {
			return nil, err
		}
		d.hashes[a] = h
	}
	return d, nil
}

// Write feeds p to every configured algorithm. Never returns an error
// or short count: hash.Hash.Write never fails.
func (d *Digester) Write(p []byte) (int, error) {
	for _, h := range d.hashes {
		h.Write(p)
	}
	return len(p), nil
}

// Sum returns the running digest for one algorithm, or nil if that
// algorithm wasn't configured.
func (d *Digester) Sum(a Algorithm) []byte {
	h, ok := d.hashes[a]
	if !ok {
		return nil
	}
	return h.Sum(nil)
}
