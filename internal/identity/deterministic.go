// Package identity derives stable ids for seeded catalog records, so the
// same built-in definition gets the same id in memory, sqlite and postgres.
package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

const definitionNamespace = "renderly:block_definition:"

// BlockDefinitionUUID returns the id of the definition with key. Keys are
// compared case-insensitively.
func BlockDefinitionUUID(key string) uuid.UUID {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return uuid.Nil
	}
	return UUID(definitionNamespace + key)
}

// UUID hashes name into a UUID with go-hashid. A blank name yields uuid.Nil.
// If hashing fails the name-based SHA1 UUID is used instead.
func UUID(name string) uuid.UUID {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil
	}
	id, err := hashid.NewUUID(name, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || id == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	}
	return id
}
