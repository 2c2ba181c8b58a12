// Package hasher fingerprints remote records for change detection.
//
// The fingerprint is sha1 over the RFC 8785 canonical JSON of the record,
// the raw source configuration and the pipeline version, joined by "|".
// Canonical JSON sorts keys, so two documents that differ only in key order
// hash identically; a change to the source configuration or to the pipeline
// version changes every hash and forces re-materialization.
package hasher

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

// Hasher computes content hashes for one pipeline version.
type Hasher struct {
	version string
}

// New returns a Hasher for the given pipeline version. An empty version
// selects constants.HarvesterVersion.
func New(version string) *Hasher {
	if version == "" {
		version = constants.HarvesterVersion
	}
	return &Hasher{version: version}
}

// Version returns the pipeline version mixed into every hash.
func (h *Hasher) Version() string {
	return h.version
}

// Hash returns the hex fingerprint of remote under the given raw source config.
func (h *Hasher) Hash(remote records.Remote, sourceConfig string) (string, error) {
	canonical, err := Canonical(remote)
	if err != nil {
		return "", err
	}
	sum := sha1.New() //nolint:gosec
	sum.Write(canonical)
	sum.Write([]byte("|" + sourceConfig + "|" + h.version))
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// Canonical returns the RFC 8785 serialization of remote. It is also the
// content stored on harvest traces.
func Canonical(remote records.Remote) ([]byte, error) {
	if remote == nil {
		remote = records.Remote{}
	}
	raw, err := json.Marshal(remote)
	if err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, errors.WrapParse("json", "", err)
	}
	return out, nil
}
